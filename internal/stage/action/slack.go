package action

import (
	"context"
	"fmt"

	"github.com/dagucloud/watcher/internal/cmn/tmpl"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
)

var _ core.Action = (*Slack)(nil)

// Slack posts a templated message.
type Slack struct {
	To   []string
	From string
	Text string

	sender core.SlackSender
}

type slackConfig struct {
	Message struct {
		To   []string `mapstructure:"to"`
		From string   `mapstructure:"from"`
		Text string   `mapstructure:"text"`
	} `mapstructure:"message"`
}

func parseSlack(cfg map[string]any, sender core.SlackSender) (core.Action, error) {
	var c slackConfig
	if err := document.DecodeStruct(cfg, &c); err != nil {
		return nil, err
	}
	if c.Message.Text == "" {
		return nil, core.NewStageValidationError("action.slack", "message.text", nil, fmt.Errorf("text is required"))
	}
	s := &Slack{To: c.Message.To, From: c.Message.From, Text: c.Message.Text, sender: sender}
	for _, text := range append([]string{s.From, s.Text}, s.To...) {
		if err := tmpl.Validate(text); err != nil {
			return nil, core.NewStageValidationError("action.slack", "message", text, err)
		}
	}
	return s, nil
}

func (*Slack) Type() string { return TypeSlack }

func (s *Slack) Spec() any {
	msg := document.Object()
	if len(s.To) > 0 {
		msg = append(msg, document.KV("to", anyList(s.To)))
	}
	if s.From != "" {
		msg = append(msg, document.KV("from", s.From))
	}
	msg = append(msg, document.KV("text", s.Text))
	return document.Object(document.KV("message", msg))
}

func (s *Slack) Execute(ctx context.Context, _ string, ec *core.ExecContext, payload core.Payload) (map[string]any, error) {
	if s.sender == nil {
		return nil, fmt.Errorf("slack action: no slack sender configured")
	}
	data := ec.ModelFor(payload)
	text, err := tmpl.Render(s.Text, data)
	if err != nil {
		return nil, fmt.Errorf("slack action: text: %w", err)
	}
	from, err := tmpl.Render(s.From, data)
	if err != nil {
		return nil, fmt.Errorf("slack action: from: %w", err)
	}
	to, err := renderList(s.To, data)
	if err != nil {
		return nil, fmt.Errorf("slack action: to: %w", err)
	}
	msg := core.SlackMessage{To: to, From: from, Text: text}
	if err := s.sender.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("slack action: %w", err)
	}
	return map[string]any{"slack": map[string]any{"to": anyList(to), "text": text}}, nil
}
