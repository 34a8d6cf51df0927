package config_test

import (
	"testing"
	"time"

	"almeone-contact-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should apply defaults", func(t *testing.T) {
		t.Setenv("EMAIL_PROVIDER", "smtp")
		t.Setenv("RATE_LIMIT_STORE", "memory")

		cfg, err := config.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, 5, cfg.RateLimit.Max)
		assert.Equal(t, 30*time.Second, cfg.Email.Timeout)
		assert.Equal(t, "https://graph.microsoft.com/v1.0", cfg.Email.GraphAPIURL)
		assert.Equal(t, "Asia/Qatar", cfg.DisplayTimezone)
	})

	t.Run("Should split and normalize allowed origins", func(t *testing.T) {
		t.Setenv("ALLOWED_ORIGINS", " https://almeone.com/ ,https://www.almeone.com,,https://almeone.com")

		cfg, err := config.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"https://almeone.com", "https://www.almeone.com"}, cfg.AllowedOrigins)
	})

	t.Run("Should reject unknown provider", func(t *testing.T) {
		t.Setenv("EMAIL_PROVIDER", "carrier-pigeon")

		_, err := config.LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EMAIL_PROVIDER")
	})

	t.Run("Should require redis url for redis store", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_STORE", "redis")
		t.Setenv("REDIS_URL", "")

		_, err := config.LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REDIS_URL")
	})

	t.Run("Should parse durations", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_WINDOW", "2m")
		t.Setenv("EMAIL_TIMEOUT", "5s")

		cfg, err := config.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 2*time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, 5*time.Second, cfg.Email.Timeout)
	})
}

func TestMissingEmailSettings(t *testing.T) {
	t.Run("Should list graph credentials", func(t *testing.T) {
		cfg := &config.Config{Email: config.EmailConfig{Provider: config.ProviderGraph, GraphClientID: "abc"}}
		assert.Equal(t, []string{"GRAPH_CLIENT_SECRET", "GRAPH_TENANT_ID", "SENDER_EMAIL"}, cfg.MissingEmailSettings())
	})

	t.Run("Should be empty when smtp is complete", func(t *testing.T) {
		cfg := &config.Config{Email: config.EmailConfig{
			Provider:     config.ProviderSMTP,
			SMTPHost:     "smtp.example.com",
			SMTPUsername: "user",
			SMTPPassword: "pass",
		}}
		assert.Empty(t, cfg.MissingEmailSettings())
	})

	t.Run("Should derive graph token url from tenant", func(t *testing.T) {
		cfg := &config.Config{Email: config.EmailConfig{GraphTenantID: "tenant-1"}}
		assert.Equal(t, "https://login.microsoftonline.com/tenant-1/oauth2/v2.0/token", cfg.GraphTokenURL())
	})
}

func TestDebugEnabled(t *testing.T) {
	assert.True(t, (&config.Config{DebugResponses: true, AppEnv: "development"}).DebugEnabled())
	assert.False(t, (&config.Config{DebugResponses: true, AppEnv: "production"}).DebugEnabled())
	assert.False(t, (&config.Config{DebugResponses: false, AppEnv: "development"}).DebugEnabled())
}
