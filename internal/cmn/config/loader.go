package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dagucloud/watcher/internal/cmn/duration"
	"github.com/spf13/viper"
)

// ConfigLoader reads and merges configuration from the config file, the
// environment and the defaults.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	appHomeDir string
	warnings   []string
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile sets the configuration file path.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// WithAppHomeDir keeps every file under dir instead of the XDG directories.
func WithAppHomeDir(dir string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.appHomeDir = dir
	}
}

// NewConfigLoader creates a ConfigLoader with the given viper instance and options.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

// Load reads the configuration and returns a validated Config.
func (l *ConfigLoader) Load() (*Config, error) {
	paths := l.resolvePaths()

	l.configureViper(paths.ConfigDir)
	l.bindEnvironmentVariables()
	l.setViperDefaultValues(paths)

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var def Definition
	if err := l.v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def, paths)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}
	if used := l.v.ConfigFileUsed(); used != "" {
		if abs, err := filepath.Abs(used); err == nil {
			used = abs
		}
		cfg.Paths.ConfigFileUsed = used
	}
	cfg.Warnings = l.warnings

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) buildConfig(def Definition, paths Paths) (*Config, error) {
	cfg := &Config{
		Core: Core{
			Debug:     def.Debug,
			LogFormat: def.LogFormat,
			TZ:        def.TZ,
		},
		Paths: paths,
	}
	if err := setTimezone(&cfg.Core); err != nil {
		return nil, err
	}

	if def.Paths != nil {
		setIfNotEmpty(&cfg.Paths.WatchesDir, def.Paths.WatchesDir)
		setIfNotEmpty(&cfg.Paths.DataDir, def.Paths.DataDir)
	}
	if def.Script != nil {
		cfg.Script.DefaultLang = def.Script.DefaultLang
	}
	if def.SMTP != nil {
		cfg.SMTP = SMTP{
			Host:     def.SMTP.Host,
			Port:     def.SMTP.Port,
			Username: def.SMTP.Username,
			Password: def.SMTP.Password,
		}
	}
	if def.Webhook != nil {
		cfg.Webhook.Timeout = l.parseDuration("webhook.timeout", def.Webhook.Timeout)
	}
	if def.Slack != nil {
		cfg.Slack = Slack{
			WebhookURL: def.Slack.WebhookURL,
			Channel:    def.Slack.Channel,
			Username:   def.Slack.Username,
		}
	}
	if def.Store != nil {
		cfg.Store.DSN = def.Store.DSN
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = filepath.Join(cfg.Paths.DataDir, "store.db")
	}
	return cfg, nil
}

// parseDuration parses a duration string, returning zero and adding a warning if invalid.
func (l *ConfigLoader) parseDuration(fieldName, value string) time.Duration {
	if value == "" {
		return 0
	}
	d, err := duration.Parse(value)
	if err != nil {
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid %s value: %s", fieldName, value))
		return 0
	}
	return d
}

// resolvePaths picks the directories: the app home override, then
// $WATCHER_HOME, then the XDG config and data homes.
func (l *ConfigLoader) resolvePaths() Paths {
	home := l.appHomeDir
	if home == "" {
		home = os.Getenv(strings.ToUpper(AppSlug) + "_HOME")
	}
	if home != "" {
		if abs, err := filepath.Abs(home); err == nil {
			home = abs
		}
		return Paths{
			ConfigDir:  home,
			WatchesDir: filepath.Join(home, "watches"),
			DataDir:    filepath.Join(home, "data"),
		}
	}
	configDir := filepath.Join(xdg.ConfigHome, AppSlug)
	return Paths{
		ConfigDir:  configDir,
		WatchesDir: filepath.Join(configDir, "watches"),
		DataDir:    filepath.Join(xdg.DataHome, AppSlug),
	}
}

func (l *ConfigLoader) setViperDefaultValues(paths Paths) {
	l.v.SetDefault("debug", false)
	l.v.SetDefault("log_format", "text")
	l.v.SetDefault("paths.watches_dir", paths.WatchesDir)
	l.v.SetDefault("paths.data_dir", paths.DataDir)
	l.v.SetDefault("script.default_lang", "jq")
	l.v.SetDefault("smtp.port", "25")
	l.v.SetDefault("webhook.timeout", "30s")
	l.v.SetDefault("slack.username", AppSlug)
}

// envBinding maps a configuration key to its environment variable, without
// the application prefix.
type envBinding struct {
	key string
	env string
}

var envBindings = []envBinding{
	{key: "debug", env: "DEBUG"},
	{key: "log_format", env: "LOG_FORMAT"},
	{key: "tz", env: "TZ"},
	{key: "paths.watches_dir", env: "WATCHES_DIR"},
	{key: "paths.data_dir", env: "DATA_DIR"},
	{key: "script.default_lang", env: "SCRIPT_LANG"},
	{key: "smtp.host", env: "SMTP_HOST"},
	{key: "smtp.port", env: "SMTP_PORT"},
	{key: "smtp.username", env: "SMTP_USERNAME"},
	{key: "smtp.password", env: "SMTP_PASSWORD"},
	{key: "webhook.timeout", env: "WEBHOOK_TIMEOUT"},
	{key: "slack.webhook_url", env: "SLACK_WEBHOOK_URL"},
	{key: "slack.channel", env: "SLACK_CHANNEL"},
	{key: "slack.username", env: "SLACK_USERNAME"},
	{key: "store.dsn", env: "STORE_DSN"},
}

func (l *ConfigLoader) bindEnvironmentVariables() {
	prefix := strings.ToUpper(AppSlug) + "_"
	for _, b := range envBindings {
		_ = l.v.BindEnv(b.key, prefix+b.env)
	}
}

func (l *ConfigLoader) configureViper(configDir string) {
	if l.configFile == "" {
		l.v.AddConfigPath(configDir)
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(l.configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(strings.ToUpper(AppSlug))
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}

// setTimezone resolves cfg.TZ into cfg.Location, defaulting to the local zone.
func setTimezone(cfg *Core) error {
	if cfg.TZ == "" {
		cfg.Location = time.Local
		return nil
	}
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}
	cfg.Location = loc
	return nil
}

func setIfNotEmpty(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// Load is a shortcut for loading the configuration with a fresh viper instance.
func Load(options ...ConfigLoaderOption) (*Config, error) {
	return NewConfigLoader(viper.New(), options...).Load()
}
