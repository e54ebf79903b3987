package core

import (
	"context"
	"time"
)

// Trigger decides when a watch executes.
type Trigger interface {
	// Type returns the trigger kind, such as "schedule".
	Type() string
	// Spec returns the document body stored under the trigger kind.
	Spec() any
	// Next returns the first fire time strictly after the given time.
	Next(after time.Time) time.Time
}

// Watch is a scheduled rule: gather data, check a condition, reshape the data
// and run actions.
type Watch struct {
	ID        string
	Trigger   Trigger
	Input     Input
	Condition Condition
	// Transform is nil when the watch has none.
	Transform Transform
	// ThrottlePeriod is the default period of actions; zero disables it.
	ThrottlePeriod time.Duration
	Actions        []*ActionWrapper
	Metadata       map[string]any
	Status         WatchStatus
	Version        int64
}

// Action returns the action wrapper with the given id.
func (w *Watch) Action(id string) (*ActionWrapper, bool) {
	for _, a := range w.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// ActionIDs returns the ids of the actions in order.
func (w *Watch) ActionIDs() []string {
	ids := make([]string, len(w.Actions))
	for i, a := range w.Actions {
		ids[i] = a.ID
	}
	return ids
}

// ActionWrapper binds an action to its id, throttler and optional own
// condition and transform.
type ActionWrapper struct {
	ID        string
	Throttler Throttler
	// Condition is nil when the action has none.
	Condition Condition
	// Transform is nil when the action has none.
	Transform Transform
	Action    Action
}

// Execute runs the action unless it is throttled or acknowledged or its own
// condition is not met. ec.Payload is the payload of the watch.
func (a *ActionWrapper) Execute(ctx context.Context, ec *ExecContext, status ActionStatus, watchPeriod time.Duration, now time.Time) ActionResult {
	result := ActionResult{ID: a.ID, Type: a.Action.Type()}

	decision := a.Throttler.Decide(a.ID, status, watchPeriod, now)
	if decision.Throttle {
		result.Outcome = Throttled
		if decision.Acked {
			result.Outcome = Acknowledged
		}
		result.Reason = decision.Reason
		return result
	}

	if a.Condition != nil {
		cond, err := a.Condition.Execute(ctx, ec)
		if err != nil {
			result.Outcome = Failure
			result.Reason = "condition failed: " + err.Error()
			return result
		}
		result.Condition = &cond
		if !cond.Met {
			result.Outcome = ConditionFailed
			result.Reason = "condition not met"
			return result
		}
	}

	payload := ec.Payload
	if a.Transform != nil {
		var err error
		if payload, err = a.Transform.Execute(ctx, ec, payload); err != nil {
			result.Outcome = Failure
			result.Reason = "transform failed: " + err.Error()
			return result
		}
	}
	result.Payload = payload

	detail, err := a.Action.Execute(ctx, a.ID, ec, payload)
	result.Detail = detail
	if err != nil {
		result.Outcome = Failure
		result.Reason = err.Error()
		return result
	}
	result.Outcome = Success
	return result
}
