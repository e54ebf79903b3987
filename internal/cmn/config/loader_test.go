package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()

	cfg, err := config.Load(config.WithAppHomeDir(home))
	require.NoError(t, err)

	assert.False(t, cfg.Core.Debug)
	assert.Equal(t, "text", cfg.Core.LogFormat)
	assert.Equal(t, time.Local, cfg.Core.Location)
	assert.Equal(t, "jq", cfg.Script.DefaultLang)
	assert.Equal(t, "25", cfg.SMTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, "watcher", cfg.Slack.Username)
	assert.Equal(t, filepath.Join(home, "watches"), cfg.Paths.WatchesDir)
	assert.Equal(t, filepath.Join(home, "data"), cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(home, "data", "store.db"), cfg.Store.DSN)
	assert.Empty(t, cfg.Paths.ConfigFileUsed)
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_ConfigFile(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, `
debug: true
log_format: json
tz: UTC
paths:
  watches_dir: /etc/watches
script:
  default_lang: painless
smtp:
  host: mail.local
  port: "2525"
  username: bot
  password: secret
webhook:
  timeout: 1m
slack:
  webhook_url: https://hooks.slack.test/T/B/X
  channel: "#alerts"
store:
  dsn: ":memory:"
`)

	cfg, err := config.Load(config.WithAppHomeDir(home))
	require.NoError(t, err)

	assert.True(t, cfg.Core.Debug)
	assert.Equal(t, "json", cfg.Core.LogFormat)
	assert.Equal(t, time.UTC, cfg.Core.Location)
	assert.Equal(t, "/etc/watches", cfg.Paths.WatchesDir)
	assert.Equal(t, "painless", cfg.Script.DefaultLang)
	assert.Equal(t, config.SMTP{Host: "mail.local", Port: "2525", Username: "bot", Password: "secret"}, cfg.SMTP)
	assert.Equal(t, time.Minute, cfg.Webhook.Timeout)
	assert.Equal(t, config.Slack{WebhookURL: "https://hooks.slack.test/T/B/X", Channel: "#alerts", Username: "watcher"}, cfg.Slack)
	assert.Equal(t, ":memory:", cfg.Store.DSN)
	assert.Equal(t, filepath.Join(home, "config.yaml"), cfg.Paths.ConfigFileUsed)
}

func TestLoad_Environment(t *testing.T) {
	home := t.TempDir()
	path := writeConfig(t, t.TempDir(), "smtp:\n  host: from-file\n")
	t.Setenv("WATCHER_SMTP_HOST", "from-env")
	t.Setenv("WATCHER_LOG_FORMAT", "json")
	t.Setenv("WATCHER_WEBHOOK_TIMEOUT", "5s")
	t.Setenv("WATCHER_STORE_DSN", "/tmp/watcher.db")

	cfg, err := config.Load(config.WithAppHomeDir(home), config.WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.SMTP.Host)
	assert.Equal(t, "json", cfg.Core.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, "/tmp/watcher.db", cfg.Store.DSN)
	assert.Equal(t, path, cfg.Paths.ConfigFileUsed)
}

func TestLoad_HomeFromEnvironment(t *testing.T) {
	home := t.TempDir()
	t.Setenv("WATCHER_HOME", home)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "watches"), cfg.Paths.WatchesDir)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("MissingExplicitFile", func(t *testing.T) {
		_, err := config.Load(config.WithAppHomeDir(t.TempDir()), config.WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config")
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		home := t.TempDir()
		writeConfig(t, home, "debug: [")
		_, err := config.Load(config.WithAppHomeDir(home))
		require.Error(t, err)
	})

	t.Run("InvalidTimezone", func(t *testing.T) {
		home := t.TempDir()
		writeConfig(t, home, "tz: Mars/Olympus\n")
		_, err := config.Load(config.WithAppHomeDir(home))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load timezone")
	})

	t.Run("InvalidLogFormat", func(t *testing.T) {
		home := t.TempDir()
		writeConfig(t, home, "log_format: xml\n")
		_, err := config.Load(config.WithAppHomeDir(home))
		require.ErrorIs(t, err, config.ErrInvalidLogFormat)
	})

	t.Run("InvalidDurationWarns", func(t *testing.T) {
		home := t.TempDir()
		writeConfig(t, home, "webhook:\n  timeout: soon\n")
		cfg, err := config.Load(config.WithAppHomeDir(home))
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), cfg.Webhook.Timeout)
		assert.Equal(t, []string{"Invalid webhook.timeout value: soon"}, cfg.Warnings)
	})
}
