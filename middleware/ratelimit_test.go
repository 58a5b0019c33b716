package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movedesk/chatbot/core/response"
	"github.com/movedesk/chatbot/core/router"
	"github.com/movedesk/chatbot/middleware"
	"github.com/movedesk/chatbot/pkg/ratelimiter"
)

// failingStore simulates an unreachable counter backend.
type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, assert.AnError
}

func (failingStore) Reset(context.Context, string) error { return assert.AnError }

func TestRateLimit(t *testing.T) {
	t.Parallel()

	newLimiter := func(t *testing.T, store ratelimiter.Store, limit int64) *ratelimiter.Limiter {
		t.Helper()
		limiter, err := ratelimiter.New(store, ratelimiter.Config{Limit: limit, Window: time.Minute})
		require.NoError(t, err)
		return limiter
	}

	t.Run("under the limit passes with remaining header", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, ratelimiter.NewMemoryStore(), 5)

		req := httptest.NewRequest(http.MethodPost, "/api/chat/message", nil)
		rec, _, err := exec(t, req, okHandler, middleware.RateLimit[*router.Context](limiter))
		require.NoError(t, err)
		assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("over the limit rejects with retry hint", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, ratelimiter.NewMemoryStore(), 2)
		mw := middleware.RateLimit[*router.Context](limiter)

		var lastErr error
		var lastRec *httptest.ResponseRecorder
		for range 3 {
			req := httptest.NewRequest(http.MethodPost, "/api/chat/message", nil)
			lastRec, _, lastErr = exec(t, req, okHandler, mw)
		}
		require.Error(t, lastErr)

		var httpErr response.HTTPError
		require.ErrorAs(t, lastErr, &httpErr)
		assert.Equal(t, "RATE_LIMITED", httpErr.Code)
		assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)

		assert.Equal(t, "0", lastRec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, lastRec.Header().Get("Retry-After"))
	})

	t.Run("keys are isolated per client", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, ratelimiter.NewMemoryStore(), 1)
		mw := middleware.RateLimit[*router.Context](limiter)

		first := httptest.NewRequest(http.MethodPost, "/api/chat/message", nil)
		first.RemoteAddr = "203.0.113.10:40000"
		_, _, err := exec(t, first, okHandler, mw)
		require.NoError(t, err)

		second := httptest.NewRequest(http.MethodPost, "/api/chat/message", nil)
		second.RemoteAddr = "203.0.113.20:40000"
		_, _, err = exec(t, second, okHandler, mw)
		assert.NoError(t, err, "a different client must get its own window")
	})

	t.Run("store failure fails open", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, failingStore{}, 1)

		req := httptest.NewRequest(http.MethodPost, "/api/chat/message", nil)
		_, _, err := exec(t, req, okHandler, middleware.RateLimit[*router.Context](limiter))
		assert.NoError(t, err, "a broken counter must not reject requests")
	})
}
