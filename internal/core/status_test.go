package core

import (
	"testing"
	"time"

	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestAckStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    AckState
		expected string
	}{
		{AwaitsSuccessfulExecution, "awaits_successful_execution"},
		{Ackable, "ackable"},
		{Acked, "acked"},
		{AckState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.state.String())
			if tt.expected == "unknown" {
				return
			}
			parsed, err := ParseAckState(tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.state, parsed)
		})
	}

	_, err := ParseAckState("snoozed")
	assert.ErrorIs(t, err, ErrInvalidAckState)
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "failure", Failure.String())
	assert.Equal(t, "throttled", Throttled.String())
	assert.Equal(t, "acknowledged", Acknowledged.String())
	assert.Equal(t, "condition_failed", ConditionFailed.String())
}

func TestActionStatusUpdate(t *testing.T) {
	t.Parallel()

	t.Run("SuccessMakesAckable", func(t *testing.T) {
		t.Parallel()
		status := NewActionStatus(t0).Update(t0.Add(time.Minute), ActionResult{Outcome: Success})
		require.NotNil(t, status.LastSuccessfulExecution)
		assert.Equal(t, t0.Add(time.Minute), status.LastSuccessfulExecution.Timestamp)
		assert.True(t, status.LastExecution.Successful)
		assert.Equal(t, AckStatus{State: Ackable, Timestamp: t0.Add(time.Minute)}, status.Ack)
	})

	t.Run("FailureKeepsLastSuccessful", func(t *testing.T) {
		t.Parallel()
		status := NewActionStatus(t0).
			Update(t0.Add(time.Minute), ActionResult{Outcome: Success}).
			Update(t0.Add(2*time.Minute), ActionResult{Outcome: Failure, Reason: "connection refused"})
		assert.Equal(t, &Execution{Timestamp: t0.Add(2 * time.Minute), Reason: "connection refused"}, status.LastExecution)
		assert.Equal(t, t0.Add(time.Minute), status.LastSuccessfulExecution.Timestamp)
	})

	t.Run("ThrottledRecordsThrottle", func(t *testing.T) {
		t.Parallel()
		before := NewActionStatus(t0)
		status := before.Update(t0.Add(time.Minute), ActionResult{Outcome: Throttled, Reason: "too soon"})
		assert.Equal(t, &Throttle{Timestamp: t0.Add(time.Minute), Reason: "too soon"}, status.LastThrottle)
		assert.Nil(t, status.LastSuccessfulExecution)
		assert.Nil(t, before.LastThrottle)
	})

	t.Run("ConditionFailedLeavesStatus", func(t *testing.T) {
		t.Parallel()
		before := NewActionStatus(t0)
		assert.Equal(t, before, before.Update(t0.Add(time.Minute), ActionResult{Outcome: ConditionFailed}))
	})
}

func TestActionStatusAck(t *testing.T) {
	t.Parallel()

	status := NewActionStatus(t0)
	_, changed := status.OnAck(t0)
	assert.False(t, changed, "awaiting actions cannot be acked")

	status = status.Update(t0.Add(time.Minute), ActionResult{Outcome: Success})
	acked, changed := status.OnAck(t0.Add(2 * time.Minute))
	require.True(t, changed)
	assert.Equal(t, AckStatus{State: Acked, Timestamp: t0.Add(2 * time.Minute)}, acked.Ack)
	assert.Equal(t, Ackable, status.Ack.State, "receiver is not modified")

	reset, changed := acked.ResetAck(t0.Add(3 * time.Minute))
	require.True(t, changed)
	assert.Equal(t, AwaitsSuccessfulExecution, reset.Ack.State)

	_, changed = reset.ResetAck(t0.Add(4 * time.Minute))
	assert.False(t, changed)
}

func TestWatchStatusOnCheck(t *testing.T) {
	t.Parallel()

	status := NewWatchStatus(t0, "email", "log")
	email := status.Action("email").Update(t0.Add(time.Minute), ActionResult{Outcome: Success})
	email, _ = email.OnAck(t0.Add(time.Minute))
	status = status.WithAction("email", email)

	met := status.OnCheck(true, t0.Add(2*time.Minute))
	assert.Equal(t, t0.Add(2*time.Minute), met.LastChecked)
	assert.Equal(t, t0.Add(2*time.Minute), met.LastMetCondition)
	assert.Equal(t, Acked, met.Actions["email"].Ack.State)

	notMet := met.OnCheck(false, t0.Add(3*time.Minute))
	assert.Equal(t, t0.Add(3*time.Minute), notMet.LastChecked)
	assert.Equal(t, t0.Add(2*time.Minute), notMet.LastMetCondition)
	assert.Equal(t, AwaitsSuccessfulExecution, notMet.Actions["email"].Ack.State)
	assert.Equal(t, Acked, met.Actions["email"].Ack.State, "receiver map is not shared")
}

func TestWatchStatusOnAck(t *testing.T) {
	t.Parallel()

	status := NewWatchStatus(t0, "a", "b")
	for _, id := range []string{"a", "b"} {
		status = status.WithAction(id, status.Action(id).Update(t0, ActionResult{Outcome: Success}))
	}

	onlyA, changed := status.OnAck(t0.Add(time.Minute), "a")
	require.True(t, changed)
	assert.Equal(t, Acked, onlyA.Actions["a"].Ack.State)
	assert.Equal(t, Ackable, onlyA.Actions["b"].Ack.State)

	all, changed := onlyA.OnAck(t0.Add(time.Minute))
	require.True(t, changed)
	assert.Equal(t, Acked, all.Actions["b"].Ack.State)

	_, changed = all.OnAck(t0.Add(time.Minute))
	assert.False(t, changed)
}

func TestWatchStatusSetActive(t *testing.T) {
	t.Parallel()

	status := NewWatchStatus(t0)
	same := status.SetActive(true, t0.Add(time.Hour))
	assert.Equal(t, t0, same.State.Timestamp)

	inactive := status.SetActive(false, t0.Add(time.Hour))
	assert.Equal(t, WatchState{Active: false, Timestamp: t0.Add(time.Hour)}, inactive.State)
}

func TestWatchStatusDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	status := NewWatchStatus(t0, "email", "hook")
	status = status.OnCheck(true, t0.Add(time.Second))
	status = status.WithAction("email", status.Action("email").
		Update(t0.Add(time.Second), ActionResult{Outcome: Success}).
		Update(t0.Add(2*time.Second), ActionResult{Outcome: Throttled, Reason: "throttled"}))
	status = status.WithAction("hook", status.Action("hook").
		Update(t0.Add(time.Second+500*time.Millisecond), ActionResult{Outcome: Failure, Reason: "boom"}))

	data, err := document.Encode(status.Spec(), document.FormatJSON)
	require.NoError(t, err)
	v, err := document.Decode(data)
	require.NoError(t, err)

	parsed, err := ParseWatchStatus(v)
	require.NoError(t, err)
	assert.Equal(t, status, parsed)
}

func TestParseWatchStatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{name: "NotObject", doc: `[1, 2]`, wantErr: ErrStatusMustBeObject},
		{name: "BadTimestamp", doc: `{state: {active: true, timestamp: yesterday}}`, wantErr: ErrInvalidTimestamp},
		{name: "BadAckState", doc: `{actions: {a: {ack: {state: snoozed, timestamp: "2024-01-01T00:00:00Z"}}}}`, wantErr: ErrInvalidAckState},
		{name: "UnexpectedKey", doc: `{state: {active: true}, color: blue}`, wantErr: ErrUnexpectedField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := document.Decode([]byte(tt.doc))
			require.NoError(t, err)
			_, err = ParseWatchStatus(v)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
