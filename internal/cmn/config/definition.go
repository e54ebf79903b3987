package config

// Definition holds the configuration as read from the config file and the
// environment. Each field maps to a configuration key.
type Definition struct {
	// Debug enables debug logging with source locations.
	Debug bool `mapstructure:"debug"`

	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"log_format"`

	// TZ is the timezone schedules are displayed in, for example "Europe/Berlin".
	TZ string `mapstructure:"tz"`

	Paths   *PathsDef   `mapstructure:"paths"`
	Script  *ScriptDef  `mapstructure:"script"`
	SMTP    *SMTPDef    `mapstructure:"smtp"`
	Webhook *WebhookDef `mapstructure:"webhook"`
	Slack   *SlackDef   `mapstructure:"slack"`
	Store   *StoreDef   `mapstructure:"store"`
}

// PathsDef holds the directories used by the CLI.
type PathsDef struct {
	WatchesDir string `mapstructure:"watches_dir"`
	DataDir    string `mapstructure:"data_dir"`
}

// ScriptDef configures script evaluation.
type ScriptDef struct {
	// DefaultLang is the language of scripts that name none.
	DefaultLang string `mapstructure:"default_lang"`
}

// SMTPDef is the account used by email actions.
type SMTPDef struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// WebhookDef configures the webhook transport.
type WebhookDef struct {
	// Timeout applies to calls that declare no timeout, for example "30s".
	Timeout string `mapstructure:"timeout"`
}

// SlackDef is the account used by slack actions.
type SlackDef struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
}

// StoreDef configures the document store.
type StoreDef struct {
	// DSN is the SQLite database path or URI.
	DSN string `mapstructure:"dsn"`
}
