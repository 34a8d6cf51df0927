package config

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	ProviderSMTP     = "smtp"
	ProviderGraph    = "graph"
	ProviderPostmark = "postmark"
	ProviderFile     = "file"

	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	AppEnv          string   `env:"APP_ENV" envDefault:"development"`
	Version         string   `env:"APP_VERSION" envDefault:"1.0.0"`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`
	DebugResponses  bool     `env:"DEBUG_RESPONSES" envDefault:"false"`
	AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	TrustedProxies  []string `env:"TRUSTED_PROXIES" envSeparator:","`
	DisplayTimezone string   `env:"DISPLAY_TIMEZONE" envDefault:"Asia/Qatar"`
	MetricsEnabled  bool     `env:"METRICS_ENABLED" envDefault:"true"`

	Email     EmailConfig
	Captcha   CaptchaConfig
	RateLimit RateLimitConfig

	// Redis/Postgres are only dialled when RATE_LIMIT_STORE selects them.
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	DatabaseURL   string `env:"DATABASE_URL"`
}

type EmailConfig struct {
	Provider          string        `env:"EMAIL_PROVIDER" envDefault:"smtp"`
	SenderEmail       string        `env:"SENDER_EMAIL"`
	NotificationEmail string        `env:"NOTIFICATION_EMAIL" envDefault:"info@almeone.com"`
	Timeout           time.Duration `env:"EMAIL_TIMEOUT" envDefault:"30s"`
	BreakerEnabled    bool          `env:"BREAKER_ENABLED" envDefault:"true"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	GraphTenantID         string `env:"GRAPH_TENANT_ID"`
	GraphClientID         string `env:"GRAPH_CLIENT_ID"`
	GraphClientSecret     string `env:"GRAPH_CLIENT_SECRET"`
	GraphTokenURL         string `env:"GRAPH_TOKEN_URL"`
	GraphAPIURL           string `env:"GRAPH_API_URL" envDefault:"https://graph.microsoft.com/v1.0"`
	GraphScope            string `env:"GRAPH_SCOPE" envDefault:"https://graph.microsoft.com/.default"`
	GraphTokenMaxAttempts int    `env:"GRAPH_TOKEN_MAX_ATTEMPTS" envDefault:"3"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`

	DevMailDir string `env:"DEV_MAIL_DIR" envDefault:"tmp/mail"`
}

type CaptchaConfig struct {
	Secret    string `env:"RECAPTCHA_SECRET"`
	VerifyURL string `env:"RECAPTCHA_VERIFY_URL" envDefault:"https://www.google.com/recaptcha/api/siteverify"`
	Strict    bool   `env:"CAPTCHA_STRICT" envDefault:"false"`
}

type RateLimitConfig struct {
	Window        time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	Max           int           `env:"RATE_LIMIT_MAX" envDefault:"5"`
	Store         string        `env:"RATE_LIMIT_STORE" envDefault:"memory"`
	SweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"5m"`
}

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.AllowedOrigins = normalizeList(cfg.AllowedOrigins)
	cfg.TrustedProxies = normalizeList(cfg.TrustedProxies)
	cfg.Email.Provider = strings.ToLower(strings.TrimSpace(cfg.Email.Provider))
	cfg.RateLimit.Store = strings.ToLower(strings.TrimSpace(cfg.RateLimit.Store))
	cfg.Email.GraphAPIURL = strings.TrimRight(cfg.Email.GraphAPIURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if missing := cfg.MissingEmailSettings(); len(missing) > 0 {
		log.Printf("WARNING: email provider %q is missing %s. Submissions will fail until configured.",
			cfg.Email.Provider, strings.Join(missing, ", "))
	}
	if cfg.Captcha.Secret == "" {
		log.Println("WARNING: RECAPTCHA_SECRET not configured. CAPTCHA verification is skipped.")
	}

	return cfg, nil
}

// Validate rejects settings that make the service unable to start.
// Missing provider credentials are not fatal; they surface per request.
func (c *Config) Validate() error {
	var errs []error

	if !lo.Contains([]string{ProviderSMTP, ProviderGraph, ProviderPostmark, ProviderFile}, c.Email.Provider) {
		errs = append(errs, fmt.Errorf("EMAIL_PROVIDER %q is not one of smtp, graph, postmark, file", c.Email.Provider))
	}
	if !lo.Contains([]string{StoreMemory, StoreRedis, StorePostgres}, c.RateLimit.Store) {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_STORE %q is not one of memory, redis, postgres", c.RateLimit.Store))
	}
	if c.RateLimit.Max <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.Email.Timeout <= 0 {
		errs = append(errs, errors.New("EMAIL_TIMEOUT must be positive"))
	}
	if c.RateLimit.Store == StoreRedis && c.RedisURL == "" {
		errs = append(errs, errors.New("RATE_LIMIT_STORE=redis requires REDIS_URL"))
	}
	if c.RateLimit.Store == StorePostgres && c.DatabaseURL == "" {
		errs = append(errs, errors.New("RATE_LIMIT_STORE=postgres requires DATABASE_URL"))
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		errs = append(errs, fmt.Errorf("DISPLAY_TIMEZONE: %w", err))
	}

	return errors.Join(errs...)
}

// MissingEmailSettings names the variables the selected provider still needs.
func (c *Config) MissingEmailSettings() []string {
	required := map[string]string{}
	switch c.Email.Provider {
	case ProviderSMTP:
		required = map[string]string{
			"SMTP_HOST":     c.Email.SMTPHost,
			"SMTP_USERNAME": c.Email.SMTPUsername,
			"SMTP_PASSWORD": c.Email.SMTPPassword,
		}
	case ProviderGraph:
		required = map[string]string{
			"GRAPH_TENANT_ID":     c.Email.GraphTenantID,
			"GRAPH_CLIENT_ID":     c.Email.GraphClientID,
			"GRAPH_CLIENT_SECRET": c.Email.GraphClientSecret,
			"SENDER_EMAIL":        c.Email.SenderEmail,
		}
	case ProviderPostmark:
		required = map[string]string{
			"POSTMARK_SERVER_TOKEN": c.Email.PostmarkServerToken,
			"SENDER_EMAIL":          c.Email.SenderEmail,
		}
	case ProviderFile:
		required = map[string]string{
			"DEV_MAIL_DIR": c.Email.DevMailDir,
		}
	}

	missing := lo.Keys(lo.PickBy(required, func(_ string, v string) bool {
		return strings.TrimSpace(v) == ""
	}))
	slices.Sort(missing)
	return missing
}

// Sender returns the From address. SMTP falls back to the login user.
func (c *Config) Sender() string {
	if c.Email.SenderEmail != "" {
		return c.Email.SenderEmail
	}
	return c.Email.SMTPUsername
}

func (c *Config) GraphTokenURL() string {
	if c.Email.GraphTokenURL != "" {
		return c.Email.GraphTokenURL
	}
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", c.Email.GraphTenantID)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// DebugEnabled reports whether error responses may carry diagnostic fields.
func (c *Config) DebugEnabled() bool {
	return c.DebugResponses && !c.IsProduction()
}

func normalizeList(in []string) []string {
	out := lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.TrimRight(strings.TrimSpace(s), "/")
		return s, s != ""
	})
	return lo.Uniq(out)
}
