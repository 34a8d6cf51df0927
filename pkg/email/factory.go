package email

import (
	"fmt"
	"log/slog"
	"net/http"

	"almeone-contact-api/config"
)

// NewProviderFromConfig builds the provider selected by EMAIL_PROVIDER.
// Missing settings are reported as *NotConfiguredError.
func NewProviderFromConfig(cfg *config.Config, log *slog.Logger) (Provider, error) {
	if missing := cfg.MissingEmailSettings(); len(missing) > 0 {
		return nil, &NotConfiguredError{Provider: cfg.Email.Provider, Missing: missing}
	}

	var (
		provider Provider
		err      error
	)

	switch cfg.Email.Provider {
	case config.ProviderSMTP:
		provider, err = NewSMTPProvider(SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Sender(),
		})

	case config.ProviderGraph:
		httpClient := &http.Client{Timeout: cfg.Email.Timeout}
		tokens := NewTokenProvider(TokenConfig{
			TenantID:     cfg.Email.GraphTenantID,
			ClientID:     cfg.Email.GraphClientID,
			ClientSecret: cfg.Email.GraphClientSecret,
			TokenURL:     cfg.GraphTokenURL(),
			Scope:        cfg.Email.GraphScope,
			MaxAttempts:  cfg.Email.GraphTokenMaxAttempts,
			FetchTimeout: cfg.Email.Timeout,
			HTTPClient:   httpClient,
		}, log)
		provider = NewGraphProvider(GraphConfig{
			APIURL:     cfg.Email.GraphAPIURL,
			Sender:     cfg.Email.SenderEmail,
			HTTPClient: httpClient,
		}, tokens, log)

	case config.ProviderPostmark:
		provider, err = NewPostmarkProvider(PostmarkConfig{
			ServerToken:  cfg.Email.PostmarkServerToken,
			AccountToken: cfg.Email.PostmarkAccountToken,
			Sender:       cfg.Email.SenderEmail,
		})

	case config.ProviderFile:
		provider, err = NewFileProvider(cfg.Email.DevMailDir)

	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Email.BreakerEnabled {
		provider = NewBreakerProvider(provider, DefaultBreakerConfig(), log)
	}
	return provider, nil
}
