// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "consnap", cfg.Logger.ServiceName)

	// MFA is a human step, so the default browser is headed.
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)

	assert.Equal(t, 5*time.Minute, cfg.Console.AuthTimeout)
	assert.Equal(t, 2*time.Second, cfg.Console.AuthPollInterval)
	assert.Equal(t, 15*time.Second, cfg.Console.ElementTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Console.PollInterval)

	assert.Equal(t, "~/consnap-evidence", cfg.Capture.OutputDir)
	assert.Equal(t, 20, cfg.Capture.MaxPages)
	assert.True(t, cfg.Capture.FullPage)

	assert.Equal(t, 2, cfg.Retry.AttemptsPerTier)
	assert.Equal(t, 1.5, cfg.Retry.TimeoutStretch)
	assert.Equal(t, 4*time.Minute, cfg.Retry.TotalBudget)

	assert.True(t, cfg.Inventory.Enabled)
	assert.Empty(t, cfg.Database.URL)

	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("should apply overrides from viper", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("console.auth_timeout", "90s")
		v.Set("capture.max_pages", 3)
		v.Set("logger.level", "debug")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Console.AuthTimeout)
		assert.Equal(t, 3, cfg.Capture.MaxPages)
		assert.Equal(t, "debug", cfg.Logger.Level)
	})

	t.Run("should pick up credentials from the environment", func(t *testing.T) {
		t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
		t.Setenv("CONSNAP_DATABASE_URL", "postgres://localhost/evidence")

		v := viper.New()
		SetDefaults(v)
		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "AKIAEXAMPLE", cfg.Inventory.AccessKeyID)
		assert.Equal(t, "secret", cfg.Inventory.SecretAccessKey)
		assert.Equal(t, "postgres://localhost/evidence", cfg.Database.URL)
	})

	t.Run("should reject invalid configuration", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("retry.timeout_stretch", 0.5)

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout_stretch")
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config { return NewDefaultConfig() }

	cases := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"zero auth timeout", func(c *Config) { c.Console.AuthTimeout = 0 }, "auth_timeout"},
		{"zero poll interval", func(c *Config) { c.Console.PollInterval = 0 }, "poll_interval"},
		{"element timeout below poll interval", func(c *Config) { c.Console.ElementTimeout = time.Millisecond }, "element_timeout"},
		{"zero attempts", func(c *Config) { c.Retry.AttemptsPerTier = 0 }, "attempts_per_tier"},
		{"shrinking stretch", func(c *Config) { c.Retry.TimeoutStretch = 0.9 }, "timeout_stretch"},
		{"zero budget", func(c *Config) { c.Retry.TotalBudget = 0 }, "total_budget"},
		{"zero max pages", func(c *Config) { c.Capture.MaxPages = 0 }, "max_pages"},
		{"empty output dir", func(c *Config) { c.Capture.OutputDir = "" }, "output_dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.substr)
		})
	}
}

func TestResolveOutputDir(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Capture.OutputDir = "/var/evidence"
	dir, err := cfg.ResolveOutputDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/evidence", dir)

	cfg.Capture.OutputDir = "~/evidence"
	dir, err = cfg.ResolveOutputDir()
	require.NoError(t, err)
	assert.NotContains(t, dir, "~")
}
