package action

import (
	"context"
	"fmt"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/stage/internal/httpreq"
)

var _ core.Action = (*Webhook)(nil)

// Webhook calls an HTTP endpoint. Responses with a status of 400 or above
// fail the action.
type Webhook struct {
	Request httpreq.Request

	client core.HTTPClient
}

func parseWebhook(cfg map[string]any, client core.HTTPClient) (core.Action, error) {
	req, err := httpreq.Parse("action.webhook", cfg)
	if err != nil {
		return nil, err
	}
	return &Webhook{Request: req, client: client}, nil
}

func (*Webhook) Type() string { return TypeWebhook }

func (w *Webhook) Spec() any { return w.Request.Spec() }

func (w *Webhook) Execute(ctx context.Context, _ string, ec *core.ExecContext, payload core.Payload) (map[string]any, error) {
	if w.client == nil {
		return nil, fmt.Errorf("webhook action: no http client configured")
	}
	req, err := w.Request.Render(ec.ModelFor(payload))
	if err != nil {
		return nil, fmt.Errorf("webhook action: %w", err)
	}
	detail := map[string]any{"request": map[string]any{
		"method": req.Method,
		"url":    req.URL,
		"body":   req.Body,
	}}
	resp, err := w.client.Do(ctx, req)
	if err != nil {
		return detail, fmt.Errorf("webhook action: %w", err)
	}
	detail["response"] = map[string]any{"status": resp.Status, "body": resp.Body}
	if resp.Status >= 400 {
		return detail, fmt.Errorf("webhook action: received status code [%d]", resp.Status)
	}
	return detail, nil
}
