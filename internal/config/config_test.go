// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "inkclip", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 90*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 3*time.Second, cfg.Network.PostLoadWait)
	assert.Equal(t, "https://medium.com", cfg.Medium.BaseURL)
	assert.Equal(t, "~/.inkclip/medium_cookies.json", cfg.Session.File)
	assert.False(t, cfg.Debug.Enabled)
	assert.Equal(t, 1, cfg.Scrape.Concurrency)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, cfg.Validate(), "a default config should be valid")

	t.Run("missing base url", func(t *testing.T) {
		bad := *cfg
		bad.Medium.BaseURL = ""
		err := bad.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "medium.base_url")
	})

	t.Run("missing session file", func(t *testing.T) {
		bad := *cfg
		bad.Session.File = ""
		err := bad.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "session.file")
	})

	t.Run("non-positive navigation timeout", func(t *testing.T) {
		bad := *cfg
		bad.Network.NavigationTimeout = 0
		err := bad.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "network.navigation_timeout")
	})

	t.Run("non-positive concurrency", func(t *testing.T) {
		bad := *cfg
		bad.Scrape.Concurrency = 0
		err := bad.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "scrape.concurrency")
	})

	t.Run("negative rate limit", func(t *testing.T) {
		bad := *cfg
		bad.Network.RateLimit = -1
		err := bad.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "network.rate_limit")
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	yaml := []byte(`
logger:
  level: debug
  format: json
browser:
  headless: false
network:
  navigation_timeout: 45s
  post_load_wait: 500ms
medium:
  base_url: https://medium.com
session:
  file: /tmp/cookies.json
`)

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(yaml)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Network.PostLoadWait)
	assert.Equal(t, "/tmp/cookies.json", cfg.Session.File)
	// Untouched keys keep their defaults.
	assert.Equal(t, "https://medium.com", cfg.Medium.BaseURL)
	assert.Equal(t, 1, cfg.Scrape.Concurrency)
}

func TestNewConfigFromViperCredentialsFromEnv(t *testing.T) {
	t.Setenv("INKCLIP_MEDIUM_EMAIL", "reader@example.com")
	t.Setenv("INKCLIP_MEDIUM_PASSWORD", "hunter2")

	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "reader@example.com", cfg.Medium.Email)
	assert.Equal(t, "hunter2", cfg.Medium.Password)
}

func TestNewConfigFromViperRejectsInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("scrape.concurrency", 0)

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
