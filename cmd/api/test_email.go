package main

import (
	"context"
	"fmt"
	"time"

	"almeone-contact-api/config"
	"almeone-contact-api/pkg/email"
	"almeone-contact-api/pkg/logger"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

func testEmailCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "test-email",
		Short: "Send a test message through the configured email provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.InitWithLevel(cfg.LogLevel)

			if to == "" {
				to = cfg.Email.NotificationEmail
			}

			provider, err := email.NewProviderFromConfig(cfg, logger.Log)
			if err != nil {
				color.Red.Printf("✗ %s provider not ready: %v\n", cfg.Email.Provider, err)
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Email.Timeout)
			defer cancel()

			now := time.Now()
			err = provider.Send(ctx, email.Message{
				To:      to,
				Subject: "AlmeOne contact relay test",
				HTMLBody: fmt.Sprintf("<p>Test message sent via <strong>%s</strong> at %s.</p>",
					provider.Name(), now.UTC().Format(time.RFC3339)),
				Tag: "test",
			})
			if err != nil {
				color.Red.Printf("✗ send to %s failed: %v\n", logger.MaskEmail(to), err)
				return err
			}

			color.Green.Printf("✓ test message sent to %s via %s in %s\n",
				logger.MaskEmail(to), provider.Name(), time.Since(now).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient (defaults to NOTIFICATION_EMAIL)")
	return cmd
}
