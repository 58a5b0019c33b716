package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/router"
	"github.com/movedesk/chatbot/middleware"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("assigns a fresh id", func(t *testing.T) {
		t.Parallel()

		var seen string
		h := func(ctx *router.Context) handler.Response {
			id, ok := middleware.GetRequestID(ctx)
			require.True(t, ok)
			seen = id
			return okHandler(ctx)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
		rec, _, err := exec(t, req, h, middleware.RequestID[*router.Context]())
		require.NoError(t, err)

		_, parseErr := uuid.Parse(seen)
		assert.NoError(t, parseErr)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("ignores incoming header by default", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
		req.Header.Set("X-Request-ID", "spoofed")

		rec, _, err := exec(t, req, okHandler, middleware.RequestID[*router.Context]())
		require.NoError(t, err)
		assert.NotEqual(t, "spoofed", rec.Header().Get("X-Request-ID"))
	})

	t.Run("reuses incoming header when configured", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
		req.Header.Set("X-Request-ID", "upstream-id")

		rec, _, err := exec(t, req, okHandler,
			middleware.RequestIDWithConfig[*router.Context](middleware.RequestIDConfig{UseExisting: true}))
		require.NoError(t, err)
		assert.Equal(t, "upstream-id", rec.Header().Get("X-Request-ID"))
	})
}
