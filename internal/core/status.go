package core

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/goccy/go-yaml"
)

// AckState is the acknowledgement phase of an action.
type AckState int

const (
	// AwaitsSuccessfulExecution means the action has not run successfully since
	// its last reset and cannot be acknowledged yet.
	AwaitsSuccessfulExecution AckState = iota
	// Ackable means the action ran successfully and may be acknowledged.
	Ackable
	// Acked means the action is acknowledged and suppressed until reset.
	Acked
)

// String returns the canonical token used in status documents.
func (s AckState) String() string {
	switch s {
	case AwaitsSuccessfulExecution:
		return "awaits_successful_execution"
	case Ackable:
		return "ackable"
	case Acked:
		return "acked"
	default:
		return "unknown"
	}
}

// ParseAckState reads a canonical ack state token.
func ParseAckState(s string) (AckState, error) {
	switch s {
	case "awaits_successful_execution":
		return AwaitsSuccessfulExecution, nil
	case "ackable":
		return Ackable, nil
	case "acked":
		return Acked, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAckState, s)
	}
}

// Outcome is the result kind of one action in one execution.
type Outcome int

const (
	Success Outcome = iota
	Failure
	Throttled
	Acknowledged
	ConditionFailed
)

// String returns the canonical lowercase token of the outcome.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Throttled:
		return "throttled"
	case Acknowledged:
		return "acknowledged"
	case ConditionFailed:
		return "condition_failed"
	default:
		return "unknown"
	}
}

// ActionResult is what running an action wrapper produced.
type ActionResult struct {
	ID        string
	Type      string
	Outcome   Outcome
	Reason    string
	Condition *ConditionResult
	Payload   Payload
	Detail    map[string]any
}

// AckStatus is the acknowledgement state of an action and when it was entered.
type AckStatus struct {
	State     AckState
	Timestamp time.Time
}

// Execution records one attempt of an action.
type Execution struct {
	Timestamp  time.Time
	Successful bool
	Reason     string
}

// Throttle records one suppressed attempt of an action.
type Throttle struct {
	Timestamp time.Time
	Reason    string
}

// ActionStatus is the execution state of one action. Values are immutable;
// every mutator returns an updated copy.
type ActionStatus struct {
	Ack                     AckStatus
	LastExecution           *Execution
	LastSuccessfulExecution *Execution
	LastThrottle            *Throttle
}

// NewActionStatus returns the initial status of an action created at now.
func NewActionStatus(now time.Time) ActionStatus {
	return ActionStatus{Ack: AckStatus{State: AwaitsSuccessfulExecution, Timestamp: now.UTC()}}
}

// Update records the result of an execution at timestamp.
func (s ActionStatus) Update(timestamp time.Time, result ActionResult) ActionStatus {
	timestamp = timestamp.UTC()
	switch result.Outcome {
	case Success:
		exec := &Execution{Timestamp: timestamp, Successful: true}
		s.LastExecution = exec
		s.LastSuccessfulExecution = &Execution{Timestamp: timestamp, Successful: true}
		if s.Ack.State == AwaitsSuccessfulExecution {
			s.Ack = AckStatus{State: Ackable, Timestamp: timestamp}
		}
	case Failure:
		s.LastExecution = &Execution{Timestamp: timestamp, Successful: false, Reason: result.Reason}
	case Throttled, Acknowledged:
		s.LastThrottle = &Throttle{Timestamp: timestamp, Reason: result.Reason}
	case ConditionFailed:
	}
	return s
}

// OnAck acknowledges an ackable action. It reports whether the state changed.
func (s ActionStatus) OnAck(timestamp time.Time) (ActionStatus, bool) {
	if s.Ack.State != Ackable {
		return s, false
	}
	s.Ack = AckStatus{State: Acked, Timestamp: timestamp.UTC()}
	return s, true
}

// ResetAck moves the action back to awaiting a successful execution. It
// reports whether the state changed.
func (s ActionStatus) ResetAck(timestamp time.Time) (ActionStatus, bool) {
	if s.Ack.State == AwaitsSuccessfulExecution {
		return s, false
	}
	s.Ack = AckStatus{State: AwaitsSuccessfulExecution, Timestamp: timestamp.UTC()}
	return s, true
}

// WatchState tells whether a watch is active and since when.
type WatchState struct {
	Active    bool
	Timestamp time.Time
}

// WatchStatus is the execution state of a watch. Values are immutable; every
// mutator returns an updated copy that shares no map with the receiver.
type WatchStatus struct {
	State            WatchState
	LastChecked      time.Time
	LastMetCondition time.Time
	Actions          map[string]ActionStatus
}

// NewWatchStatus synthesizes the status of an active watch created at now with
// one fresh entry per action id.
func NewWatchStatus(now time.Time, actionIDs ...string) WatchStatus {
	now = now.UTC()
	actions := make(map[string]ActionStatus, len(actionIDs))
	for _, id := range actionIDs {
		actions[id] = NewActionStatus(now)
	}
	return WatchStatus{
		State:   WatchState{Active: true, Timestamp: now},
		Actions: actions,
	}
}

func (s WatchStatus) clone() WatchStatus {
	s.Actions = maps.Clone(s.Actions)
	if s.Actions == nil {
		s.Actions = map[string]ActionStatus{}
	}
	return s
}

// Action returns the status of an action, or a fresh one stamped at the watch
// state time when the action has none yet.
func (s WatchStatus) Action(id string) ActionStatus {
	if st, ok := s.Actions[id]; ok {
		return st
	}
	return NewActionStatus(s.State.Timestamp)
}

// WithAction replaces the status of one action.
func (s WatchStatus) WithAction(id string, status ActionStatus) WatchStatus {
	s = s.clone()
	s.Actions[id] = status
	return s
}

// SetActive changes the active flag. The state timestamp only moves when the
// flag changes.
func (s WatchStatus) SetActive(active bool, timestamp time.Time) WatchStatus {
	s = s.clone()
	if s.State.Active != active {
		s.State = WatchState{Active: active, Timestamp: timestamp.UTC()}
	}
	return s
}

// OnCheck records a condition evaluation. When the condition is not met every
// acknowledged action is reset.
func (s WatchStatus) OnCheck(met bool, timestamp time.Time) WatchStatus {
	s = s.clone()
	timestamp = timestamp.UTC()
	s.LastChecked = timestamp
	if met {
		s.LastMetCondition = timestamp
		return s
	}
	for id, st := range s.Actions {
		s.Actions[id], _ = st.ResetAck(timestamp)
	}
	return s
}

// OnAck acknowledges the given actions, or all of them when none are named.
// It reports whether any action changed.
func (s WatchStatus) OnAck(timestamp time.Time, actionIDs ...string) (WatchStatus, bool) {
	s = s.clone()
	changed := false
	for id, st := range s.Actions {
		if len(actionIDs) > 0 && !slices.Contains(actionIDs, id) {
			continue
		}
		var ok bool
		s.Actions[id], ok = st.OnAck(timestamp)
		changed = changed || ok
	}
	return s, changed
}

// Spec renders the status document.
func (s WatchStatus) Spec() yaml.MapSlice {
	out := document.Object(
		document.KV("state", document.Object(
			document.KV("active", s.State.Active),
			document.KV("timestamp", formatTime(s.State.Timestamp)),
		)),
	)
	if !s.LastChecked.IsZero() {
		out = append(out, document.KV("last_checked", formatTime(s.LastChecked)))
	}
	if !s.LastMetCondition.IsZero() {
		out = append(out, document.KV("last_met_condition", formatTime(s.LastMetCondition)))
	}
	actions := document.Object()
	for _, id := range sortedIDs(s.Actions) {
		actions = append(actions, document.KV(id, s.Actions[id].Spec()))
	}
	return append(out, document.KV("actions", actions))
}

// Spec renders the action status document.
func (s ActionStatus) Spec() yaml.MapSlice {
	out := document.Object(
		document.KV("ack", document.Object(
			document.KV("timestamp", formatTime(s.Ack.Timestamp)),
			document.KV("state", s.Ack.State.String()),
		)),
	)
	if s.LastExecution != nil {
		out = append(out, document.KV("last_execution", s.LastExecution.spec()))
	}
	if s.LastSuccessfulExecution != nil {
		out = append(out, document.KV("last_successful_execution", s.LastSuccessfulExecution.spec()))
	}
	if s.LastThrottle != nil {
		out = append(out, document.KV("last_throttle", document.Object(
			document.KV("timestamp", formatTime(s.LastThrottle.Timestamp)),
			document.KV("reason", s.LastThrottle.Reason),
		)))
	}
	return out
}

func (e *Execution) spec() yaml.MapSlice {
	out := document.Object(
		document.KV("timestamp", formatTime(e.Timestamp)),
		document.KV("successful", e.Successful),
	)
	if e.Reason != "" {
		out = append(out, document.KV("reason", e.Reason))
	}
	return out
}

// ParseWatchStatus reads a status document.
func ParseWatchStatus(v any) (WatchStatus, error) {
	obj, err := statusObject("status", v)
	if err != nil {
		return WatchStatus{}, err
	}
	if err := onlyKeys("status", obj, "state", "last_checked", "last_met_condition", "actions"); err != nil {
		return WatchStatus{}, err
	}

	var status WatchStatus
	state, err := statusObject("status.state", obj["state"])
	if err != nil {
		return WatchStatus{}, err
	}
	if err := onlyKeys("status.state", state, "active", "timestamp"); err != nil {
		return WatchStatus{}, err
	}
	status.State.Active = true
	if active, ok := state["active"]; ok {
		b, ok := active.(bool)
		if !ok {
			return WatchStatus{}, NewStageValidationError("status", "state.active", active, fmt.Errorf("must be a boolean"))
		}
		status.State.Active = b
	}
	if status.State.Timestamp, err = parseTime("status.state.timestamp", state["timestamp"]); err != nil {
		return WatchStatus{}, err
	}
	if status.LastChecked, err = parseTime("status.last_checked", obj["last_checked"]); err != nil {
		return WatchStatus{}, err
	}
	if status.LastMetCondition, err = parseTime("status.last_met_condition", obj["last_met_condition"]); err != nil {
		return WatchStatus{}, err
	}

	actions, err := statusObject("status.actions", obj["actions"])
	if err != nil {
		return WatchStatus{}, err
	}
	status.Actions = make(map[string]ActionStatus, len(actions))
	for id, raw := range actions {
		st, err := parseActionStatus("status.actions."+id, raw)
		if err != nil {
			return WatchStatus{}, err
		}
		status.Actions[id] = st
	}
	return status, nil
}

func parseActionStatus(field string, v any) (ActionStatus, error) {
	obj, err := statusObject(field, v)
	if err != nil {
		return ActionStatus{}, err
	}
	if err := onlyKeys(field, obj, "ack", "last_execution", "last_successful_execution", "last_throttle"); err != nil {
		return ActionStatus{}, err
	}

	var status ActionStatus
	ack, err := statusObject(field+".ack", obj["ack"])
	if err != nil {
		return ActionStatus{}, err
	}
	if err := onlyKeys(field+".ack", ack, "state", "timestamp"); err != nil {
		return ActionStatus{}, err
	}
	stateStr, _ := ack["state"].(string)
	if status.Ack.State, err = ParseAckState(stateStr); err != nil {
		return ActionStatus{}, NewStageValidationError("status", field+".ack.state", ack["state"], err)
	}
	if status.Ack.Timestamp, err = parseTime(field+".ack.timestamp", ack["timestamp"]); err != nil {
		return ActionStatus{}, err
	}

	if raw, ok := obj["last_execution"]; ok {
		if status.LastExecution, err = parseExecution(field+".last_execution", raw); err != nil {
			return ActionStatus{}, err
		}
	}
	if raw, ok := obj["last_successful_execution"]; ok {
		if status.LastSuccessfulExecution, err = parseExecution(field+".last_successful_execution", raw); err != nil {
			return ActionStatus{}, err
		}
	}
	if raw, ok := obj["last_throttle"]; ok {
		throttle, err := statusObject(field+".last_throttle", raw)
		if err != nil {
			return ActionStatus{}, err
		}
		if err := onlyKeys(field+".last_throttle", throttle, "timestamp", "reason"); err != nil {
			return ActionStatus{}, err
		}
		ts, err := parseTime(field+".last_throttle.timestamp", throttle["timestamp"])
		if err != nil {
			return ActionStatus{}, err
		}
		reason, _ := throttle["reason"].(string)
		status.LastThrottle = &Throttle{Timestamp: ts, Reason: reason}
	}
	return status, nil
}

func parseExecution(field string, v any) (*Execution, error) {
	obj, err := statusObject(field, v)
	if err != nil {
		return nil, err
	}
	if err := onlyKeys(field, obj, "timestamp", "successful", "reason"); err != nil {
		return nil, err
	}
	ts, err := parseTime(field+".timestamp", obj["timestamp"])
	if err != nil {
		return nil, err
	}
	successful, _ := obj["successful"].(bool)
	reason, _ := obj["reason"].(string)
	return &Execution{Timestamp: ts, Successful: successful, Reason: reason}, nil
}

func statusObject(field string, v any) (map[string]any, error) {
	obj, err := document.PlainObject(v)
	if err != nil {
		return nil, NewStageValidationError("status", field, nil, ErrStatusMustBeObject)
	}
	return obj, nil
}

func onlyKeys(field string, obj map[string]any, allowed ...string) error {
	for key := range obj {
		if !slices.Contains(allowed, key) {
			return NewStageValidationError("status", field, key, ErrUnexpectedField)
		}
	}
	return nil
}

func parseTime(field string, v any) (time.Time, error) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			return time.Time{}, NewStageValidationError("status", field, val, ErrInvalidTimestamp)
		}
		return t.UTC(), nil
	case time.Time:
		return val.UTC(), nil
	default:
		return time.Time{}, NewStageValidationError("status", field, v, ErrInvalidTimestamp)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func sortedIDs(m map[string]ActionStatus) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
