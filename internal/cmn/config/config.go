package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Config holds the overall configuration for the application.
type Config struct {
	Core     Core
	Paths    Paths
	Script   Script
	SMTP     SMTP
	Webhook  Webhook
	Slack    Slack
	Store    Store
	Warnings []string
}

// Core holds the logging and time settings.
type Core struct {
	Debug     bool
	LogFormat string
	TZ        string
	Location  *time.Location
}

// Paths holds the directories and files in use.
type Paths struct {
	ConfigDir      string
	WatchesDir     string
	DataDir        string
	ConfigFileUsed string
}

// Script configures script evaluation.
type Script struct {
	DefaultLang string
}

// SMTP is the email account.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Webhook configures the webhook transport.
type Webhook struct {
	Timeout time.Duration
}

// Slack is the Slack account.
type Slack struct {
	WebhookURL string
	Channel    string
	Username   string
}

// Store configures the document store.
type Store struct {
	DSN string
}

var (
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrScriptLangEmpty  = errors.New("default script language must not be empty")
	ErrInvalidTimeout   = errors.New("webhook timeout must not be negative")
	ErrInvalidSMTPPort  = errors.New("invalid SMTP port")
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"text", "json"}, c.Core.LogFormat) {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Core.LogFormat)
	}
	if c.Script.DefaultLang == "" {
		return ErrScriptLangEmpty
	}
	if c.Webhook.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.SMTP.Port != "" {
		port, err := strconv.Atoi(c.SMTP.Port)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("%w: %q", ErrInvalidSMTPPort, c.SMTP.Port)
		}
	}
	return nil
}
