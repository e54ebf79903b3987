package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Payload is the data flowing through a watch execution.
type Payload map[string]any

// Stage is the part every input, condition, transform and action shares.
type Stage interface {
	// Type returns the type tag the stage is registered under.
	Type() string
	// Spec returns the document body stored under the type tag.
	Spec() any
}

// Input loads the initial payload of an execution.
type Input interface {
	Stage
	Execute(ctx context.Context, ec *ExecContext) (Payload, error)
}

// Condition decides whether the actions of a watch run.
type Condition interface {
	Stage
	Execute(ctx context.Context, ec *ExecContext) (ConditionResult, error)
}

// Transform reshapes a payload.
type Transform interface {
	Stage
	Execute(ctx context.Context, ec *ExecContext, payload Payload) (Payload, error)
}

// Action performs the side effect of a watch.
type Action interface {
	Stage
	Execute(ctx context.Context, actionID string, ec *ExecContext, payload Payload) (map[string]any, error)
}

// ConditionResult is the outcome of a condition evaluation.
type ConditionResult struct {
	Type   string
	Met    bool
	Detail map[string]any
}

// ExecContext is the read-only view of one execution handed to stages.
type ExecContext struct {
	WatchID       string
	ExecutionID   string
	ExecutionTime time.Time
	TriggeredTime time.Time
	ScheduledTime time.Time
	Metadata      map[string]any
	Payload       Payload
	Vars          map[string]any
}

// NewExecContext starts a context for an execution of w triggered at now.
func NewExecContext(w *Watch, now time.Time) *ExecContext {
	return &ExecContext{
		WatchID:       w.ID,
		ExecutionID:   w.ID + "_" + uuid.NewString(),
		ExecutionTime: now,
		TriggeredTime: now,
		ScheduledTime: now,
		Metadata:      w.Metadata,
		Payload:       Payload{},
		Vars:          map[string]any{},
	}
}

// WithPayload returns a copy of the context carrying payload.
func (c *ExecContext) WithPayload(payload Payload) *ExecContext {
	cp := *c
	cp.Payload = payload
	return &cp
}

// Model returns the variables available to scripts, templates and paths,
// rooted at "ctx".
func (c *ExecContext) Model() map[string]any {
	return c.ModelFor(c.Payload)
}

// ModelFor is like Model but exposes payload under ctx.payload.
func (c *ExecContext) ModelFor(payload Payload) map[string]any {
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	vars := c.Vars
	if vars == nil {
		vars = map[string]any{}
	}
	if payload == nil {
		payload = Payload{}
	}
	return map[string]any{"ctx": map[string]any{
		"watch_id":       c.WatchID,
		"id":             c.ExecutionID,
		"execution_time": c.ExecutionTime.UTC().Format(time.RFC3339Nano),
		"trigger": map[string]any{
			"triggered_time": c.TriggeredTime.UTC().Format(time.RFC3339Nano),
			"scheduled_time": c.ScheduledTime.UTC().Format(time.RFC3339Nano),
		},
		"metadata": metadata,
		"payload":  map[string]any(payload),
		"vars":     vars,
	}}
}
