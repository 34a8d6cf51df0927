package email_test

import (
	"testing"

	"almeone-contact-api/config"
	"almeone-contact-api/pkg/email"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderFromConfig(t *testing.T) {
	t.Run("Should report missing settings", func(t *testing.T) {
		cfg := &config.Config{Email: config.EmailConfig{Provider: config.ProviderGraph, GraphTenantID: "tenant"}}

		_, err := email.NewProviderFromConfig(cfg, nil)

		var nc *email.NotConfiguredError
		require.ErrorAs(t, err, &nc)
		assert.Equal(t, []string{"GRAPH_CLIENT_ID", "GRAPH_CLIENT_SECRET", "SENDER_EMAIL"}, nc.Missing)
		assert.ErrorIs(t, err, email.ErrProviderNotConfigured)
	})

	t.Run("Should build each provider", func(t *testing.T) {
		cases := map[string]config.EmailConfig{
			config.ProviderSMTP: {Provider: config.ProviderSMTP, SMTPHost: "smtp.example.com", SMTPPort: "587", SMTPUsername: "u@almeone.com", SMTPPassword: "p"},
			config.ProviderGraph: {
				Provider: config.ProviderGraph, GraphTenantID: "t", GraphClientID: "c", GraphClientSecret: "s",
				SenderEmail: "noreply@almeone.com", GraphTokenMaxAttempts: 3,
			},
			config.ProviderPostmark: {Provider: config.ProviderPostmark, PostmarkServerToken: "tok", SenderEmail: "noreply@almeone.com"},
			config.ProviderFile:     {Provider: config.ProviderFile, DevMailDir: t.TempDir()},
		}
		for name, ec := range cases {
			p, err := email.NewProviderFromConfig(&config.Config{Email: ec}, nil)
			require.NoError(t, err, name)
			assert.Equal(t, name, p.Name())
		}
	})

	t.Run("Should wrap with a circuit breaker when enabled", func(t *testing.T) {
		cfg := &config.Config{Email: config.EmailConfig{Provider: config.ProviderFile, DevMailDir: t.TempDir(), BreakerEnabled: true}}

		p, err := email.NewProviderFromConfig(cfg, nil)
		require.NoError(t, err)

		_, ok := p.(*email.BreakerProvider)
		assert.True(t, ok)
	})
}
