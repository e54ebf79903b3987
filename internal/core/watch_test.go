package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/coretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newExecContext() *core.ExecContext {
	w := &core.Watch{ID: "my-watch", Metadata: map[string]any{"owner": "ops"}}
	ec := core.NewExecContext(w, t0)
	return ec.WithPayload(core.Payload{"count": 3})
}

func TestActionWrapperExecute(t *testing.T) {
	t.Parallel()

	succeeded := core.NewActionStatus(t0).Update(t0, core.ActionResult{Outcome: core.Success})
	acked, _ := succeeded.OnAck(t0)

	tests := []struct {
		name    string
		wrapper func(action *coretest.Action) *core.ActionWrapper
		status  core.ActionStatus
		now     time.Time
		want    core.Outcome
		ran     bool
	}{
		{
			name: "Success",
			wrapper: func(a *coretest.Action) *core.ActionWrapper {
				return &core.ActionWrapper{ID: "a", Action: a}
			},
			status: core.NewActionStatus(t0),
			now:    t0,
			want:   core.Success,
			ran:    true,
		},
		{
			name: "Throttled",
			wrapper: func(a *coretest.Action) *core.ActionWrapper {
				return &core.ActionWrapper{ID: "a", Action: a, Throttler: core.Throttler{Period: 10 * time.Second}}
			},
			status: succeeded,
			now:    t0.Add(5 * time.Second),
			want:   core.Throttled,
		},
		{
			name: "Acknowledged",
			wrapper: func(a *coretest.Action) *core.ActionWrapper {
				return &core.ActionWrapper{ID: "a", Action: a}
			},
			status: acked,
			now:    t0.Add(time.Hour),
			want:   core.Acknowledged,
		},
		{
			name: "ConditionNotMet",
			wrapper: func(a *coretest.Action) *core.ActionWrapper {
				return &core.ActionWrapper{ID: "a", Action: a, Condition: &coretest.Condition{Met: false}}
			},
			status: core.NewActionStatus(t0),
			now:    t0,
			want:   core.ConditionFailed,
		},
		{
			name: "ConditionError",
			wrapper: func(a *coretest.Action) *core.ActionWrapper {
				return &core.ActionWrapper{ID: "a", Action: a, Condition: &coretest.Condition{Err: errors.New("bad script")}}
			},
			status: core.NewActionStatus(t0),
			now:    t0,
			want:   core.Failure,
		},
		{
			name: "TransformError",
			wrapper: func(a *coretest.Action) *core.ActionWrapper {
				return &core.ActionWrapper{ID: "a", Action: a, Transform: &coretest.Transform{Err: errors.New("bad transform")}}
			},
			status: core.NewActionStatus(t0),
			now:    t0,
			want:   core.Failure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			action := &coretest.Action{}
			result := tt.wrapper(action).Execute(context.Background(), newExecContext(), tt.status, 0, tt.now)
			assert.Equal(t, tt.want, result.Outcome)
			assert.Equal(t, "a", result.ID)
			if tt.ran {
				assert.Len(t, action.Payloads(), 1)
			} else {
				assert.Empty(t, action.Payloads())
				assert.NotEmpty(t, result.Reason)
			}
		})
	}
}

func TestActionWrapperTransformFeedsAction(t *testing.T) {
	t.Parallel()

	action := &coretest.Action{}
	wrapper := &core.ActionWrapper{
		ID:        "a",
		Action:    action,
		Condition: &coretest.Condition{Met: true},
		Transform: &coretest.Transform{Set: core.Payload{"extra": true}},
	}
	ec := newExecContext()

	result := wrapper.Execute(context.Background(), ec, core.NewActionStatus(t0), 0, t0)
	require.Equal(t, core.Success, result.Outcome)
	require.NotNil(t, result.Condition)
	assert.True(t, result.Condition.Met)
	assert.Equal(t, []core.Payload{{"count": 3, "extra": true}}, action.Payloads())
	assert.Equal(t, core.Payload{"count": 3}, ec.Payload, "watch payload is left alone")
}

func TestActionWrapperFailureRecordsReason(t *testing.T) {
	t.Parallel()

	wrapper := &core.ActionWrapper{ID: "a", Action: &coretest.Action{Err: errors.New("smtp down")}}
	result := wrapper.Execute(context.Background(), newExecContext(), core.NewActionStatus(t0), 0, t0)
	require.Equal(t, core.Failure, result.Outcome)

	status := core.NewActionStatus(t0).Update(t0, result)
	require.NotNil(t, status.LastExecution)
	assert.False(t, status.LastExecution.Successful)
	assert.Equal(t, "smtp down", status.LastExecution.Reason)
	assert.Nil(t, status.LastSuccessfulExecution)
}

func TestExecContextModel(t *testing.T) {
	t.Parallel()

	model := newExecContext().Model()
	ctx, ok := model["ctx"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "my-watch", ctx["watch_id"])
	assert.Equal(t, map[string]any{"count": 3}, ctx["payload"])
	assert.Equal(t, map[string]any{"owner": "ops"}, ctx["metadata"])
	assert.Equal(t, "2024-03-01T10:00:00Z", ctx["execution_time"])
	assert.Contains(t, ctx["id"], "my-watch_")
}

func TestWatchAction(t *testing.T) {
	t.Parallel()

	w := &core.Watch{Actions: []*core.ActionWrapper{{ID: "first"}, {ID: "second"}}}
	a, ok := w.Action("second")
	require.True(t, ok)
	assert.Equal(t, "second", a.ID)

	_, ok = w.Action("third")
	assert.False(t, ok)
	assert.Equal(t, []string{"first", "second"}, w.ActionIDs())
}
