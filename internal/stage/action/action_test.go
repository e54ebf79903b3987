package action_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/logger"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/coretest"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage"
	"github.com/dagucloud/watcher/internal/stage/action"
	"github.com/dagucloud/watcher/internal/stage/condition"
	"github.com/dagucloud/watcher/internal/stage/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	registry *action.Registry
	store    *coretest.Store
	email    *coretest.EmailSender
	http     *coretest.HTTPClient
	slack    *coretest.SlackSender
}

func newFixture() *fixture {
	f := &fixture{
		store: coretest.NewStore(),
		email: &coretest.EmailSender{},
		http:  &coretest.HTTPClient{Response: core.HTTPResponse{Status: 200, Body: "ok"}},
		slack: &coretest.SlackSender{},
	}
	scripts := coretest.Scripts{}
	f.registry = action.NewRegistry(
		action.Deps{Store: f.store, Email: f.email, HTTP: f.http, Slack: f.slack},
		condition.NewRegistry(scripts, "jq"),
		transform.NewRegistry(f.store, scripts, "jq"),
	)
	return f
}

func decode(t *testing.T, src string) any {
	t.Helper()
	v, err := document.Decode([]byte(src))
	require.NoError(t, err)
	return v
}

func (f *fixture) parse(t *testing.T, src string) core.Action {
	t.Helper()
	a, err := f.registry.Parse(decode(t, src))
	require.NoError(t, err)
	return a
}

func execContext() *core.ExecContext {
	w := &core.Watch{ID: "disk", Metadata: map[string]any{"team": "ops"}}
	return core.NewExecContext(w, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestRegistryTypes(t *testing.T) {
	t.Parallel()

	r := newFixture().registry
	assert.Equal(t, "action", r.Name())
	assert.Equal(t, []string{"email", "index", "logging", "slack", "webhook"}, r.Types())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{name: "EmailWithoutTo", src: "email: {subject: hi}"},
		{name: "EmailBadAttachFormat", src: "email: {to: a@b.c, attach_data: {format: xml}}"},
		{name: "EmailBadTemplate", src: "email: {to: a@b.c, subject: '{{ .ctx'}"},
		{name: "EmailUnknownField", src: "email: {to: a@b.c, priority: high}"},
		{name: "IndexBadTimeout", src: "index: {index: a, timeout: soon}"},
		{name: "WebhookNoHost", src: "webhook: {method: POST}"},
		{name: "WebhookBadMethod", src: "webhook: {host: a, method: FETCH}"},
		{name: "WebhookBadPort", src: "webhook: {host: a, port: 70000}"},
		{name: "WebhookHeaderNotString", src: "webhook: {host: a, headers: {X-Count: 1}}"},
		{name: "SlackWithoutText", src: "slack: {message: {to: '#ops'}}"},
		{name: "LoggingBadLevel", src: "logging: {text: hi, level: trace}"},
		{name: "LoggingWithoutText", src: "logging: {level: info}"},
		{name: "NotObject", src: "email: yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := newFixture().registry.Parse(decode(t, tt.src))
			assert.Error(t, err)
		})
	}
}

func TestSpecRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{name: "Email", src: "email: {to: 'a@b.c,d@e.f', cc: x@y.z, subject: 'Disk {{ .ctx.watch_id }}', attach_data: true}"},
		{name: "Index", src: "index: {index: alerts, execution_time_field: '@timestamp', timeout: 10s}"},
		{name: "Webhook", src: "webhook: {scheme: https, host: hooks.local, port: 8443, method: post, path: /notify, body: '{{ json .ctx.payload }}'}"},
		{name: "WebhookURL", src: "webhook: {url: 'http://hooks.local/x', connection_timeout: 2s}"},
		{name: "Slack", src: "slack: {message: {to: '#ops', text: 'disk at {{ .ctx.payload.used }}'}}"},
		{name: "Logging", src: "logging: {text: 'fired', category: disk}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture()
			first := f.parse(t, tt.src)
			data, err := document.Encode(stage.Spec(first), document.FormatJSON)
			require.NoError(t, err)
			assert.Equal(t, first, f.parse(t, string(data)), string(data))
		})
	}
}

func TestParseWrapper(t *testing.T) {
	t.Parallel()

	f := newFixture()
	w, err := f.registry.ParseWrapper("notify", decode(t, `
throttle_period: 5m
condition: {compare: {ctx.payload.used: {gt: 90}}}
transform: {chain: []}
logging: {text: hi}
`))
	require.NoError(t, err)
	assert.Equal(t, "notify", w.ID)
	assert.Equal(t, 5*time.Minute, w.Throttler.Period)
	assert.Equal(t, "compare", w.Condition.Type())
	assert.Equal(t, "chain", w.Transform.Type())
	assert.Equal(t, "logging", w.Action.Type())

	w, err = f.registry.ParseWrapper("notify", decode(t, "{throttle_period_in_millis: 1500, logging: {text: hi}}"))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, w.Throttler.Period)
	assert.Nil(t, w.Condition)
	assert.Nil(t, w.Transform)
}

func TestParseWrapperErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
		src  string
		is   error
	}{
		{name: "EmptyID", id: "", src: "logging: {text: hi}", is: core.ErrActionIDRequired},
		{name: "NotObject", id: "a", src: "[logging]", is: core.ErrActionMustBeObject},
		{name: "NoType", id: "a", src: "throttle_period: 5m", is: core.ErrActionTypeRequired},
		{name: "TwoTypes", id: "a", src: "{logging: {text: hi}, email: {to: a@b.c}}", is: core.ErrActionTypeRequired},
		{name: "NegativePeriod", id: "a", src: "{throttle_period_in_millis: -1, logging: {text: hi}}", is: core.ErrInvalidThrottlePeriod},
		{name: "BothPeriods", id: "a", src: "{throttle_period: 1s, throttle_period_in_millis: 1000, logging: {text: hi}}"},
		{name: "BadCondition", id: "a", src: "{condition: {maybe: {}}, logging: {text: hi}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := newFixture().registry.ParseWrapper(tt.id, decode(t, tt.src))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestParseWrapperUnknownType(t *testing.T) {
	t.Parallel()

	_, err := newFixture().registry.ParseWrapper("a", decode(t, "pagerduty: {}"))
	var ue *core.UnknownStageTypeError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "action", ue.Registry)
	assert.Equal(t, "pagerduty", ue.Type)
}

func TestWrapperSpecRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture()
	first, err := f.registry.ParseWrapper("notify", decode(t, `
throttle_period_in_millis: 60000
condition: {never: {}}
email: {to: [ops@example.com]}
`))
	require.NoError(t, err)

	data, err := document.Encode(action.WrapperSpec(first), document.FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "throttle_period: 1m")

	second, err := f.registry.ParseWrapper("notify", decode(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEmailExecute(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a := f.parse(t, `
email:
  from: watcher@example.com
  to: ['{{ .ctx.metadata.team }}@example.com']
  subject: 'Watch {{ .ctx.watch_id }}'
  body: 'used={{ .ctx.payload.used }}'
  attach_data: {format: yaml}
`)
	detail, err := a.Execute(context.Background(), "notify", execContext(), core.Payload{"used": 93})
	require.NoError(t, err)

	sent := f.email.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ops@example.com"}, sent[0].To)
	assert.Equal(t, "Watch disk", sent[0].Subject)
	assert.Equal(t, "used=93", sent[0].Body)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "data.yml", sent[0].Attachments[0].Name)
	assert.Equal(t, "used: 93\n", string(sent[0].Attachments[0].Data))
	assert.Equal(t, "Watch disk", detail["email"].(map[string]any)["subject"])
}

func TestEmailExecuteSendError(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.email.Err = errors.New("smtp down")
	_, err := f.parse(t, "email: {to: a@b.c}").Execute(context.Background(), "notify", execContext(), core.Payload{})
	assert.ErrorIs(t, err, f.email.Err)
}

func TestIndexExecute(t *testing.T) {
	t.Parallel()

	t.Run("Single", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		a := f.parse(t, "index: {index: alerts, doc_id: fixed, execution_time_field: '@timestamp'}")
		detail, err := a.Execute(context.Background(), "store", execContext(), core.Payload{"used": 93})
		require.NoError(t, err)

		docs := f.store.Documents("alerts")
		require.Len(t, docs, 1)
		assert.Equal(t, "fixed", docs[0].ID)
		assert.Equal(t, map[string]any{"used": 93, "@timestamp": "2026-03-01T12:00:00Z"}, docs[0].Document)
		assert.Equal(t, "fixed", detail["index"].(map[string]any)["response"].(map[string]any)["id"])
	})

	t.Run("Bulk", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		a := f.parse(t, "index: {index: alerts}")
		payload := core.Payload{"_doc": []any{
			map[string]any{"n": 1},
			map[string]any{"n": 2, "_index": "other", "_id": "two"},
		}}
		detail, err := a.Execute(context.Background(), "store", execContext(), payload)
		require.NoError(t, err)

		alerts := f.store.Documents("alerts")
		require.Len(t, alerts, 1)
		assert.NotEmpty(t, alerts[0].ID)
		assert.Equal(t, map[string]any{"n": 1}, alerts[0].Document)

		other := f.store.Documents("other")
		require.Len(t, other, 1)
		assert.Equal(t, "two", other[0].ID)
		assert.Equal(t, map[string]any{"n": 2}, other[0].Document)
		assert.Len(t, detail["index"].(map[string]any)["response"], 2)
	})

	t.Run("NoIndex", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		_, err := f.parse(t, "index: {}").Execute(context.Background(), "store", execContext(), core.Payload{"n": 1})
		assert.Error(t, err)
	})

	t.Run("BulkElementNotObject", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		_, err := f.parse(t, "index: {index: a}").
			Execute(context.Background(), "store", execContext(), core.Payload{"_doc": []any{1}})
		assert.Error(t, err)
	})
}

func TestWebhookExecute(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a := f.parse(t, `
webhook:
  host: hooks.local
  port: 8080
  method: post
  path: '/alert/{{ .ctx.watch_id }}'
  params: {team: '{{ .ctx.metadata.team }}'}
  headers: {Content-Type: application/json}
  body: '{{ json .ctx.payload }}'
  auth: {basic: {username: u, password: p}}
  read_timeout: 3s
`)
	detail, err := a.Execute(context.Background(), "hook", execContext(), core.Payload{"used": 93})
	require.NoError(t, err)
	assert.Equal(t, 200, detail["response"].(map[string]any)["status"])

	reqs := f.http.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "POST", reqs[0].Method)
	assert.Equal(t, "http://hooks.local:8080/alert/disk", reqs[0].URL)
	assert.Equal(t, map[string]string{"team": "ops"}, reqs[0].Params)
	assert.JSONEq(t, `{"used": 93}`, reqs[0].Body)
	assert.Equal(t, &core.BasicAuth{Username: "u", Password: "p"}, reqs[0].Auth)
	assert.Equal(t, 3*time.Second, reqs[0].ReadTimeout)
}

func TestWebhookExecuteErrorStatus(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.http.Response = core.HTTPResponse{Status: 500, Body: "boom"}
	detail, err := f.parse(t, "webhook: {url: 'http://hooks.local'}").
		Execute(context.Background(), "hook", execContext(), core.Payload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, "boom", detail["response"].(map[string]any)["body"])
}

func TestSlackExecute(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a := f.parse(t, "slack: {message: {to: ['#{{ .ctx.metadata.team }}'], from: watcher, text: 'used {{ .ctx.payload.used }}%'}}")
	_, err := a.Execute(context.Background(), "chat", execContext(), core.Payload{"used": 93})
	require.NoError(t, err)
	assert.Equal(t, []core.SlackMessage{{To: []string{"#ops"}, From: "watcher", Text: "used 93%"}}, f.slack.Sent())
}

func TestLoggingExecute(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := logger.WithLogger(context.Background(), logger.NewLogger(logger.WithQuiet(), logger.WithWriter(&buf), logger.WithFormat("json")))

	a := newFixture().parse(t, "logging: {text: 'used {{ .ctx.payload.used }}', level: warn, category: disk}")
	detail, err := a.Execute(ctx, "log", execContext(), core.Payload{"used": 93})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"logging": map[string]any{"logged_text": "used 93"}}, detail)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "used 93", entry["msg"])
	assert.Equal(t, "disk", entry["watch"])
	assert.Equal(t, "log", entry["action"])
	assert.Equal(t, "disk", entry["category"])
}
