package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/duration"
	"github.com/dagucloud/watcher/internal/core/document"
)

// Throttler suppresses an action that ran successfully too recently or that is
// acknowledged. A zero Period defers to the period of the watch.
type Throttler struct {
	Period time.Duration
}

// ThrottleDecision is the verdict of a Throttler.
type ThrottleDecision struct {
	Throttle bool
	// Acked is set when the action is suppressed because it is acknowledged.
	Acked  bool
	Reason string
}

// EffectivePeriod resolves the period in force: the action's own period, else
// the watch period, else zero for no throttling.
func (t Throttler) EffectivePeriod(watchPeriod time.Duration) time.Duration {
	if t.Period > 0 {
		return t.Period
	}
	if watchPeriod > 0 {
		return watchPeriod
	}
	return 0
}

// Decide tells whether the action must be suppressed at now.
func (t Throttler) Decide(actionID string, status ActionStatus, watchPeriod time.Duration, now time.Time) ThrottleDecision {
	if status.Ack.State == Acked {
		return ThrottleDecision{
			Throttle: true,
			Acked:    true,
			Reason:   fmt.Sprintf("action [%s] was acked at [%s]", actionID, formatTime(status.Ack.Timestamp)),
		}
	}
	period := t.EffectivePeriod(watchPeriod)
	if period <= 0 || status.LastSuccessfulExecution == nil {
		return ThrottleDecision{}
	}
	last := status.LastSuccessfulExecution.Timestamp
	if now.Sub(last) < period {
		return ThrottleDecision{
			Throttle: true,
			Reason: fmt.Sprintf("throttling interval is set to [%s] but time elapsed since last execution is [%s]",
				period, now.Sub(last)),
		}
	}
	return ThrottleDecision{}
}

// ParseThrottlePeriod reads a throttle period from a duration string or an
// integer. Integers count seconds, or milliseconds when field ends in
// "_in_millis". The period must be positive.
func ParseThrottlePeriod(field string, v any) (time.Duration, error) {
	var d time.Duration
	switch val := document.Plain(v).(type) {
	case string:
		parsed, err := duration.Parse(val)
		if err != nil {
			return 0, NewStageValidationError("throttle", field, val, err)
		}
		d = parsed
	case int:
		unit := time.Second
		if strings.HasSuffix(field, "_in_millis") {
			unit = time.Millisecond
		}
		d = time.Duration(val) * unit
	default:
		return 0, NewStageValidationError("throttle", field, v, ErrInvalidThrottlePeriod)
	}
	if d <= 0 {
		return 0, NewStageValidationError("throttle", field, v, ErrInvalidThrottlePeriod)
	}
	return d, nil
}
