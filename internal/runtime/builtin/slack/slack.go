// Package slack posts slack actions through an incoming webhook.
package slack

import (
	"context"
	"errors"
	"fmt"

	"github.com/dagucloud/watcher/internal/cmn/logger"
	"github.com/dagucloud/watcher/internal/cmn/logger/tag"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/slack-go/slack"
)

// ErrWebhookURLRequired is returned when no account is configured.
var ErrWebhookURLRequired = errors.New("slack webhook url is not configured")

var _ core.SlackSender = (*Sender)(nil)

// Config is the Slack account used by slack actions.
type Config struct {
	WebhookURL string
	// Channel receives messages that name no recipient.
	Channel string
	// Username is used when a message names no sender.
	Username string
}

// Sender posts messages to one incoming webhook.
type Sender struct {
	cfg Config
}

// New returns a sender for the given account.
func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send posts the message once per recipient channel or user.
func (s *Sender) Send(ctx context.Context, msg core.SlackMessage) error {
	if s.cfg.WebhookURL == "" {
		return ErrWebhookURLRequired
	}
	username := msg.From
	if username == "" {
		username = s.cfg.Username
	}
	targets := msg.To
	if len(targets) == 0 {
		targets = []string{s.cfg.Channel}
	}
	for _, to := range targets {
		logger.Debug(ctx, "Posting slack message", tag.String("channel", to))
		err := slack.PostWebhookContext(ctx, s.cfg.WebhookURL, &slack.WebhookMessage{
			Channel:  to,
			Username: username,
			Text:     msg.Text,
		})
		if err != nil {
			return fmt.Errorf("failed to post slack message to %q: %w", to, err)
		}
	}
	return nil
}
