// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvindpandey4/loan-insight-assistant/internal/httputil"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	m.Run()
}

func withClaudeServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(handler)
	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() {
		claudeAPIURL = old
		ts.Close()
	})
}

func TestClaudeBackendComplete(t *testing.T) {
	withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, 512, req.MaxTokens)
		assert.Equal(t, "be brief", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		w.Write([]byte(`{"content":[{"type":"text","text":"{\"ok\":"},{"type":"tool_use"},{"type":"text","text":"true}"}]}`))
	})

	c := NewClaudeBackend(types.LLMConfig{APIKey: "sk-test", Model: "claude-test", MaxTokens: 512}, nil)
	got, err := c.Complete(context.Background(), Request{
		System:   "be brief",
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)
}

func TestClaudeBackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: ErrUnavailable},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "bad key", wantErr: ErrUnavailable},
		{name: "overloaded after retries", status: http.StatusServiceUnavailable, wantErr: ErrUnavailable},
		{name: "malformed body", status: http.StatusOK, body: "{", wantErr: ErrOutputInvalid},
		{name: "no text blocks", status: http.StatusOK, body: `{"content":[]}`, wantErr: ErrOutputInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			c := NewClaudeBackend(types.LLMConfig{APIKey: "sk-test", Model: "m", MaxRetries: 1}, nil)
			_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewClaudeBackendWithoutKey(t *testing.T) {
	assert.Nil(t, NewClaudeBackend(types.LLMConfig{Model: "m"}, nil))
}

func TestStub(t *testing.T) {
	s := Fixed("hi")
	got, err := s.Complete(context.Background(), Request{System: "sys"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
	require.Len(t, s.Calls(), 1)
	assert.Equal(t, "sys", s.Calls()[0].System)

	_, err = Unavailable().Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Fixed("hi").Complete(ctx, Request{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDecodeJSON(t *testing.T) {
	type reply struct {
		Intent string `json:"intent"`
	}
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare object", in: `{"intent":"general"}`, want: "general"},
		{name: "code fence", in: "```json\n{\"intent\":\"why_rejected\"}\n```", want: "why_rejected"},
		{name: "surrounding prose", in: "Here you go: {\"intent\":\"risk_analysis\"} hope it helps", want: "risk_analysis"},
		{name: "no object", in: "I cannot help", wantErr: true},
		{name: "broken object", in: `{"intent": }`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r reply
			err := DecodeJSON(tt.in, &r)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutputInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Intent)
		})
	}
}
