package action

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dagucloud/watcher/internal/cmn/tmpl"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/goccy/go-yaml"
)

var _ core.Action = (*Email)(nil)

// Formats of attached payload data.
const (
	AttachJSON = "json"
	AttachYAML = "yaml"
)

// Email sends a templated email. Every address, the subject and the body are
// templates.
type Email struct {
	From    string
	To      []string
	CC      []string
	BCC     []string
	ReplyTo []string
	Subject string
	Body    string
	// AttachData is the format the payload is attached in; empty attaches nothing.
	AttachData string

	sender core.EmailSender
}

type emailConfig struct {
	From       string   `mapstructure:"from"`
	To         []string `mapstructure:"to"`
	CC         []string `mapstructure:"cc"`
	BCC        []string `mapstructure:"bcc"`
	ReplyTo    []string `mapstructure:"reply_to"`
	Subject    string   `mapstructure:"subject"`
	Body       string   `mapstructure:"body"`
	AttachData any      `mapstructure:"attach_data"`
}

func parseEmail(cfg map[string]any, sender core.EmailSender) (core.Action, error) {
	var c emailConfig
	if err := document.DecodeStruct(cfg, &c); err != nil {
		return nil, err
	}
	if len(c.To) == 0 {
		return nil, core.NewStageValidationError("action.email", "to", nil, fmt.Errorf("at least one recipient is required"))
	}
	e := &Email{
		From:    c.From,
		To:      c.To,
		CC:      c.CC,
		BCC:     c.BCC,
		ReplyTo: c.ReplyTo,
		Subject: c.Subject,
		Body:    c.Body,
		sender:  sender,
	}
	switch v := c.AttachData.(type) {
	case bool:
		if v {
			e.AttachData = AttachJSON
		}
	case map[string]any:
		e.AttachData = AttachJSON
		if format, ok := v["format"].(string); ok {
			e.AttachData = format
		}
	}
	for _, text := range e.templates() {
		if err := tmpl.Validate(text); err != nil {
			return nil, core.NewStageValidationError("action.email", "template", text, err)
		}
	}
	return e, nil
}

func (e *Email) templates() []string {
	out := []string{e.From, e.Subject, e.Body}
	for _, list := range [][]string{e.To, e.CC, e.BCC, e.ReplyTo} {
		out = append(out, list...)
	}
	return out
}

func (*Email) Type() string { return TypeEmail }

func (e *Email) Spec() any {
	out := document.Object()
	if e.From != "" {
		out = append(out, document.KV("from", e.From))
	}
	out = append(out, document.KV("to", anyList(e.To)))
	if len(e.CC) > 0 {
		out = append(out, document.KV("cc", anyList(e.CC)))
	}
	if len(e.BCC) > 0 {
		out = append(out, document.KV("bcc", anyList(e.BCC)))
	}
	if len(e.ReplyTo) > 0 {
		out = append(out, document.KV("reply_to", anyList(e.ReplyTo)))
	}
	if e.Subject != "" {
		out = append(out, document.KV("subject", e.Subject))
	}
	if e.Body != "" {
		out = append(out, document.KV("body", e.Body))
	}
	if e.AttachData != "" {
		out = append(out, document.KV("attach_data", document.Object(document.KV("format", e.AttachData))))
	}
	return out
}

func (e *Email) Execute(ctx context.Context, _ string, ec *core.ExecContext, payload core.Payload) (map[string]any, error) {
	if e.sender == nil {
		return nil, fmt.Errorf("email action: no email sender configured")
	}
	data := ec.ModelFor(payload)
	var err error
	msg := core.EmailMessage{}
	if msg.From, err = tmpl.Render(e.From, data); err != nil {
		return nil, fmt.Errorf("email action: from: %w", err)
	}
	if msg.Subject, err = tmpl.Render(e.Subject, data); err != nil {
		return nil, fmt.Errorf("email action: subject: %w", err)
	}
	if msg.Body, err = tmpl.Render(e.Body, data); err != nil {
		return nil, fmt.Errorf("email action: body: %w", err)
	}
	for _, target := range []struct {
		name string
		in   []string
		out  *[]string
	}{
		{"to", e.To, &msg.To},
		{"cc", e.CC, &msg.CC},
		{"bcc", e.BCC, &msg.BCC},
		{"reply_to", e.ReplyTo, &msg.ReplyTo},
	} {
		if *target.out, err = renderList(target.in, data); err != nil {
			return nil, fmt.Errorf("email action: %s: %w", target.name, err)
		}
	}
	if e.AttachData != "" {
		attachment, err := attachData(e.AttachData, payload)
		if err != nil {
			return nil, fmt.Errorf("email action: %w", err)
		}
		msg.Attachments = append(msg.Attachments, attachment)
	}

	if err := e.sender.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("email action: %w", err)
	}
	return map[string]any{"email": map[string]any{
		"from":    msg.From,
		"to":      anyList(msg.To),
		"subject": msg.Subject,
		"body":    msg.Body,
	}}, nil
}

func renderList(in []string, data map[string]any) ([]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		r, err := tmpl.Render(s, data)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func attachData(format string, payload core.Payload) (core.Attachment, error) {
	plain := map[string]any(payload)
	if plain == nil {
		plain = map[string]any{}
	}
	switch format {
	case AttachYAML:
		data, err := yaml.Marshal(document.Ordered(plain))
		if err != nil {
			return core.Attachment{}, err
		}
		return core.Attachment{Name: "data.yml", ContentType: "application/yaml", Data: data}, nil
	default:
		data, err := json.MarshalIndent(plain, "", "  ")
		if err != nil {
			return core.Attachment{}, err
		}
		return core.Attachment{Name: "data.json", ContentType: "application/json", Data: data}, nil
	}
}
