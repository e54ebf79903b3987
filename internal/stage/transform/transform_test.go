package transform_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/coretest"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage"
	"github.com/dagucloud/watcher/internal/stage/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadOf(model map[string]any) map[string]any {
	return model["ctx"].(map[string]any)["payload"].(map[string]any)
}

var scripts = coretest.Scripts{
	"double": func(model map[string]any, _ map[string]any) (any, error) {
		return map[string]any{"total": payloadOf(model)["total"].(int) * 2}, nil
	},
	"count": func(model map[string]any, _ map[string]any) (any, error) {
		return len(payloadOf(model)), nil
	},
	"fail": func(map[string]any, map[string]any) (any, error) { return nil, errors.New("boom") },
}

func newRegistry() (*transform.Registry, *coretest.Store) {
	store := coretest.NewStore()
	return transform.NewRegistry(store, scripts, "jq"), store
}

func parse(t *testing.T, r *transform.Registry, src string) core.Transform {
	t.Helper()
	v, err := document.Decode([]byte(src))
	require.NoError(t, err)
	tr, err := r.Parse(v)
	require.NoError(t, err)
	return tr
}

func execContext() *core.ExecContext {
	return core.NewExecContext(&core.Watch{ID: "w1"}, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestRegistryTypes(t *testing.T) {
	t.Parallel()

	r, _ := newRegistry()
	assert.Equal(t, "transform", r.Name())
	assert.Equal(t, []string{"chain", "script", "search"}, r.Types())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	r, _ := newRegistry()
	tests := []struct {
		name string
		src  string
	}{
		{name: "ChainNotArray", src: "chain: {script: x}"},
		{name: "ChainUnknownElement", src: "chain: [{script: x}, {reshape: {}}]"},
		{name: "ChainElementTwoKeys", src: "chain: [{script: x, search: {}}]"},
		{name: "SearchWithoutRequest", src: "search: {timeout: 5s}"},
		{name: "ScriptBadField", src: "script: {source: x, file: y}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := document.Decode([]byte(tt.src))
			require.NoError(t, err)
			_, err = r.Parse(v)
			assert.Error(t, err)
		})
	}
}

func TestChainUnknownElementType(t *testing.T) {
	t.Parallel()

	r, _ := newRegistry()
	v, err := document.Decode([]byte("chain: [{reshape: {}}]"))
	require.NoError(t, err)
	_, err = r.Parse(v)
	var ue *core.UnknownStageTypeError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "transform", ue.Registry)
	assert.Equal(t, "reshape", ue.Type)
}

func TestSpecRoundTrip(t *testing.T) {
	t.Parallel()

	r, _ := newRegistry()
	tests := []struct {
		name string
		src  string
	}{
		{name: "Script", src: "script: double"},
		{name: "Search", src: "search: {request: {indices: [logs], body: {query: {script: {script: x}}}}, timeout: 1m}"},
		{name: "Chain", src: "chain: [{script: double}, {search: {request: {indices: [a]}}}, {chain: [{script: count}]}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			first := parse(t, r, tt.src)
			data, err := document.Encode(stage.Spec(first), document.FormatYAML)
			require.NoError(t, err)
			assert.Equal(t, first, parse(t, r, string(data)), string(data))
		})
	}
}

func TestScriptExecute(t *testing.T) {
	t.Parallel()

	r, _ := newRegistry()

	out, err := parse(t, r, "script: double").Execute(context.Background(), execContext(), core.Payload{"total": 3})
	require.NoError(t, err)
	assert.Equal(t, core.Payload{"total": 6}, out)

	out, err = parse(t, r, "script: count").Execute(context.Background(), execContext(), core.Payload{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, core.Payload{"_value": 2}, out)

	_, err = parse(t, r, "script: fail").Execute(context.Background(), execContext(), core.Payload{})
	assert.Error(t, err)
}

func TestSearchExecuteUsesIncomingPayload(t *testing.T) {
	t.Parallel()

	r, store := newRegistry()
	tr := parse(t, r, "search: {request: {indices: [logs], body: {query: {term: {host: '{{ctx.payload.host}}'}}}}}")

	out, err := tr.Execute(context.Background(), execContext(), core.Payload{"host": "db-1"})
	require.NoError(t, err)
	assert.Equal(t, core.Payload{"hits": map[string]any{"total": 0, "hits": []any{}}}, out)

	requests := store.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, map[string]any{"query": map[string]any{"term": map[string]any{"host": "db-1"}}}, requests[0].Body)
}

func TestChainExecute(t *testing.T) {
	t.Parallel()

	r, _ := newRegistry()
	tr := parse(t, r, "chain: [{script: double}, {script: double}, {script: count}]")

	out, err := tr.Execute(context.Background(), execContext(), core.Payload{"total": 2})
	require.NoError(t, err)
	assert.Equal(t, core.Payload{"_value": 1}, out)

	_, err = parse(t, r, "chain: [{script: double}, {script: fail}]").
		Execute(context.Background(), execContext(), core.Payload{"total": 2})
	assert.ErrorContains(t, err, "chain[1] script")
}
