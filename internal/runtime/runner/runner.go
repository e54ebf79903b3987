// Package runner executes one cycle of a watch outside of any scheduler.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/logger"
	"github.com/dagucloud/watcher/internal/cmn/logger/tag"
	"github.com/dagucloud/watcher/internal/core"
)

// State summarizes how an execution ended.
type State int

const (
	// Executed means the condition was met and at least one action ran.
	Executed State = iota
	// ExecutionNotNeeded means the condition was not met.
	ExecutionNotNeeded
	// Throttled means every action was throttled.
	Throttled
	// Acknowledged means every action was acknowledged.
	Acknowledged
	// Failed means the input, the condition or the transform failed.
	Failed
)

func (s State) String() string {
	switch s {
	case Executed:
		return "executed"
	case ExecutionNotNeeded:
		return "execution_not_needed"
	case Throttled:
		return "throttled"
	case Acknowledged:
		return "acknowledged"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record describes one execution of a watch.
type Record struct {
	WatchID       string
	ExecutionID   string
	ExecutionTime time.Time
	State         State
	// Input is the payload produced by the input.
	Input core.Payload
	// Condition is nil when the input failed.
	Condition *core.ConditionResult
	// Payload is the payload handed to the actions.
	Payload core.Payload
	Actions []core.ActionResult
	// Error is set when State is Failed.
	Error string
}

// ErrNoClock is returned when Run is called without a clock.
var ErrNoClock = errors.New("a clock is required to run a watch")

// Option configures an execution.
type Option func(*options)

type options struct {
	timeout       time.Duration
	scheduledTime time.Time
	vars          map[string]any
}

// WithTimeout bounds the whole execution.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithScheduledTime sets the fire time the execution stands for.
func WithScheduledTime(t time.Time) Option {
	return func(o *options) { o.scheduledTime = t }
}

// WithVars exposes vars to stages under ctx.vars.
func WithVars(vars map[string]any) Option {
	return func(o *options) { o.vars = vars }
}

// Run executes w once at clock.Now(). It returns the execution record and the
// new status of the watch; w itself is left untouched. The error is non-nil
// when the execution failed before the actions ran; the record is nil only
// when no clock is given.
func Run(ctx context.Context, w *core.Watch, clock core.Clock, opts ...Option) (*Record, core.WatchStatus, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if clock == nil {
		return nil, w.Status, ErrNoClock
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	now := clock.Now().UTC()
	ec := core.NewExecContext(w, now)
	if !o.scheduledTime.IsZero() {
		ec.ScheduledTime = o.scheduledTime.UTC()
	}
	if o.vars != nil {
		ec.Vars = o.vars
	}

	ctx = logger.WithValues(ctx, tag.Watch(w.ID), tag.ExecutionID(ec.ExecutionID))
	record := &Record{WatchID: w.ID, ExecutionID: ec.ExecutionID, ExecutionTime: now}
	status := w.Status

	fail := func(stage string, err error) (*Record, core.WatchStatus, error) {
		err = fmt.Errorf("%s failed: %w", stage, err)
		record.State = Failed
		record.Error = err.Error()
		logger.Error(ctx, "Watch execution failed", tag.Error(err))
		return record, status, err
	}

	payload, err := w.Input.Execute(ctx, ec)
	if err != nil {
		return fail("input", err)
	}
	if payload == nil {
		payload = core.Payload{}
	}
	record.Input = payload
	ec = ec.WithPayload(payload)

	cond, err := w.Condition.Execute(ctx, ec)
	if err != nil {
		return fail("condition", err)
	}
	record.Condition = &cond
	status = status.OnCheck(cond.Met, now)
	logger.Debug(ctx, "Checked watch condition", tag.Type(cond.Type), tag.Met(cond.Met))

	if !cond.Met {
		record.State = ExecutionNotNeeded
		record.Payload = payload
		return record, status, nil
	}

	if w.Transform != nil {
		if payload, err = w.Transform.Execute(ctx, ec, payload); err != nil {
			return fail("transform", err)
		}
		ec = ec.WithPayload(payload)
	}
	record.Payload = payload

	for _, a := range w.Actions {
		result := a.Execute(ctx, ec, status.Action(a.ID), w.ThrottlePeriod, now)
		status = status.WithAction(a.ID, status.Action(a.ID).Update(now, result))
		record.Actions = append(record.Actions, result)
		logger.Info(ctx, "Action finished",
			tag.Action(a.ID),
			tag.Type(result.Type),
			tag.Outcome(result.Outcome.String()),
			tag.Reason(result.Reason),
		)
	}
	record.State = summarize(record.Actions)
	return record, status, nil
}

func summarize(results []core.ActionResult) State {
	if len(results) == 0 {
		return Executed
	}
	throttled, acked := 0, 0
	for _, r := range results {
		switch r.Outcome {
		case core.Throttled:
			throttled++
		case core.Acknowledged:
			acked++
		}
	}
	switch {
	case acked == len(results):
		return Acknowledged
	case throttled+acked == len(results):
		return Throttled
	default:
		return Executed
	}
}
