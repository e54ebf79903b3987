package webhook_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/runtime/builtin/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		user, pass, _ := r.BasicAuth()
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Query", r.URL.Query().Get("q"))
		w.Header().Set("X-Trace", r.Header.Get("X-Trace"))
		w.Header().Set("X-User", user+":"+pass)
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	tests := []struct {
		name       string
		req        core.HTTPRequest
		wantStatus int
		wantBody   string
		wantHeader map[string]string
	}{
		{
			name:       "Post",
			req:        core.HTTPRequest{Method: "post", URL: server.URL + "/hook", Body: `{"a":1}`},
			wantStatus: http.StatusOK,
			wantBody:   `{"a":1}`,
			wantHeader: map[string]string{"X-Method": "POST"},
		},
		{
			name:       "DefaultMethod",
			req:        core.HTTPRequest{URL: server.URL},
			wantStatus: http.StatusOK,
			wantHeader: map[string]string{"X-Method": "GET"},
		},
		{
			name: "ParamsHeadersAuth",
			req: core.HTTPRequest{
				Method:  "PUT",
				URL:     server.URL,
				Params:  map[string]string{"q": "disk"},
				Headers: map[string]string{"X-Trace": "abc"},
				Auth:    &core.BasicAuth{Username: "u", Password: "p"},
			},
			wantStatus: http.StatusOK,
			wantHeader: map[string]string{"X-Query": "disk", "X-Trace": "abc", "X-User": "u:p", "X-Method": "PUT"},
		},
		{
			name:       "ErrorStatusIsReturned",
			req:        core.HTTPRequest{Method: "POST", URL: server.URL + "/fail", Body: "x"},
			wantStatus: http.StatusBadGateway,
			wantBody:   "x",
		},
		{
			name: "Timeouts",
			req: core.HTTPRequest{
				URL:               server.URL,
				ConnectionTimeout: time.Second,
				ReadTimeout:       time.Second,
			},
			wantStatus: http.StatusOK,
		},
	}

	client := webhook.New(webhook.WithTimeout(5 * time.Second))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rsp, err := client.Do(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rsp.Status)
			assert.Equal(t, tt.wantBody, rsp.Body)
			for k, v := range tt.wantHeader {
				assert.Equal(t, []string{v}, rsp.Headers[k], k)
			}
		})
	}
}

func TestClient_DoReadTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client := webhook.New()
	_, err := client.Do(context.Background(), core.HTTPRequest{URL: server.URL, ReadTimeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook request failed")
}
