// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RetryBaseDelay = 1 * time.Millisecond
	MaxRetryDelay = 10 * time.Millisecond
}

func serve(t *testing.T, handler func(n int32, w http.ResponseWriter)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handler(atomic.AddInt32(&calls, 1), w)
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		handler    func(n int32, w http.ResponseWriter)
		wantStatus int
		wantCalls  int32
	}{
		{
			name:       "immediate success",
			maxRetries: 3,
			handler:    func(_ int32, w http.ResponseWriter) { w.WriteHeader(http.StatusOK) },
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "retries rate limiting then succeeds",
			maxRetries: 3,
			handler: func(n int32, w http.ResponseWriter) {
				if n <= 2 {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				w.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusOK,
			wantCalls:  3,
		},
		{
			name:       "retries unavailable upstream",
			maxRetries: 3,
			handler: func(n int32, w http.ResponseWriter) {
				if n == 1 {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				w.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusOK,
			wantCalls:  2,
		},
		{
			name:       "exhausts retries",
			maxRetries: 3,
			handler:    func(_ int32, w http.ResponseWriter) { w.WriteHeader(http.StatusTooManyRequests) },
			wantStatus: http.StatusTooManyRequests,
			wantCalls:  4,
		},
		{
			name:       "default max retries",
			maxRetries: 0,
			handler:    func(_ int32, w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway) },
			wantStatus: http.StatusBadGateway,
			wantCalls:  3,
		},
		{
			name:       "non-transient error passes through",
			maxRetries: 3,
			handler:    func(_ int32, w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) },
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, calls := serve(t, tt.handler)
			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
		})
	}
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	ts, _ := serve(t, func(_ int32, w http.ResponseWriter) { w.WriteHeader(http.StatusTooManyRequests) })

	oldBase, oldMax := RetryBaseDelay, MaxRetryDelay
	RetryBaseDelay, MaxRetryDelay = 500*time.Millisecond, time.Second
	defer func() { RetryBaseDelay, MaxRetryDelay = oldBase, oldMax }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryDelay(t *testing.T) {
	oldBase, oldMax := RetryBaseDelay, MaxRetryDelay
	RetryBaseDelay, MaxRetryDelay = 100*time.Millisecond, 2*time.Second
	defer func() { RetryBaseDelay, MaxRetryDelay = oldBase, oldMax }()

	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, 100*time.Millisecond, retryDelay(resp, 0))
	assert.Equal(t, 400*time.Millisecond, retryDelay(resp, 2))
	assert.Equal(t, 2*time.Second, retryDelay(resp, 10))

	resp.Header.Set("Retry-After", "1")
	assert.Equal(t, time.Second, retryDelay(resp, 0))
	resp.Header.Set("Retry-After", "60")
	assert.Equal(t, 2*time.Second, retryDelay(resp, 0))
}
