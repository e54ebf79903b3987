package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger(WithQuiet(), WithWriter(&buf), WithFormat("json"))
	log.With("watch", "disk").Info("executed", "outcome", "success")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "executed", line["msg"])
	assert.Equal(t, "disk", line["watch"])
	assert.Equal(t, "success", line["outcome"])
	assert.NotContains(t, line, "source")
}

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger(WithQuiet(), WithWriter(&buf), WithFormat("text"))
	log.Debug("hidden")
	log.Warn("shown", "n", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown n=1")

	buf.Reset()
	debug := NewLogger(WithQuiet(), WithWriter(&buf), WithDebug())
	debug.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "logger_test.go")
}

func TestContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewLogger(WithQuiet(), WithWriter(&buf)))
	ctx = WithValues(ctx, "action", "email")
	Error(ctx, "failed")

	out := buf.String()
	assert.True(t, strings.Contains(out, "action=email"), out)
	assert.Contains(t, out, "msg=failed")

	assert.NotNil(t, FromContext(context.Background()))
}
