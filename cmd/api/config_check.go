package main

import (
	"fmt"
	"os"
	"strconv"

	"almeone-contact-api/config"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect service configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Show which settings are present without printing secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				color.Red.Printf("✗ configuration invalid:\n%v\n", err)
				return err
			}
			printConfigTable(cfg)

			if missing := cfg.MissingEmailSettings(); len(missing) > 0 {
				color.Yellow.Printf("\n! %s provider is missing: %v\n", cfg.Email.Provider, missing)
				return nil
			}
			color.Green.Printf("\n✓ %s provider is fully configured\n", cfg.Email.Provider)
			return nil
		},
	})
	return cmd
}

type settingRow struct {
	name   string
	value  string
	secret bool
}

func printConfigTable(cfg *config.Config) {
	rows := []settingRow{
		{"APP_ENV", cfg.AppEnv, false},
		{"PORT", cfg.Port, false},
		{"EMAIL_PROVIDER", cfg.Email.Provider, false},
		{"SENDER_EMAIL", cfg.Email.SenderEmail, false},
		{"NOTIFICATION_EMAIL", cfg.Email.NotificationEmail, false},
		{"EMAIL_TIMEOUT", cfg.Email.Timeout.String(), false},
		{"SMTP_HOST", cfg.Email.SMTPHost, false},
		{"SMTP_USERNAME", cfg.Email.SMTPUsername, false},
		{"SMTP_PASSWORD", cfg.Email.SMTPPassword, true},
		{"GRAPH_TENANT_ID", cfg.Email.GraphTenantID, true},
		{"GRAPH_CLIENT_ID", cfg.Email.GraphClientID, true},
		{"GRAPH_CLIENT_SECRET", cfg.Email.GraphClientSecret, true},
		{"POSTMARK_SERVER_TOKEN", cfg.Email.PostmarkServerToken, true},
		{"RECAPTCHA_SECRET", cfg.Captcha.Secret, true},
		{"CAPTCHA_STRICT", strconv.FormatBool(cfg.Captcha.Strict), false},
		{"RATE_LIMIT_STORE", cfg.RateLimit.Store, false},
		{"RATE_LIMIT_MAX", strconv.Itoa(cfg.RateLimit.Max), false},
		{"RATE_LIMIT_WINDOW", cfg.RateLimit.Window.String(), false},
		{"REDIS_URL", cfg.RedisURL, true},
		{"DATABASE_URL", cfg.DatabaseURL, true},
		{"ALLOWED_ORIGINS", fmt.Sprint(cfg.AllowedOrigins), false},
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Variable", "Status", "Value"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	table.AppendBulk(lo.Map(rows, func(r settingRow, _ int) []string {
		if r.value == "" {
			return []string{r.name, color.Red.Sprint("NOT SET"), ""}
		}
		value := r.value
		if r.secret {
			value = "********"
		}
		return []string{r.name, color.Green.Sprint("SET"), value}
	}))
	table.Render()
}
