package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movedesk/chatbot/core/fault"
	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/response"
	"github.com/movedesk/chatbot/core/router"
	"github.com/movedesk/chatbot/core/session"
	"github.com/movedesk/chatbot/middleware"
	"github.com/movedesk/chatbot/pkg/breaker"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"http error passthrough", response.ErrRateLimited, "RATE_LIMITED", 429},
		{"open circuit", breaker.ErrOpen, "EXTERNAL_SERVICE_UNAVAILABLE", 503},
		{"session not found", session.ErrNotFound, "NOT_FOUND", 404},
		{"session save failure", errors.Join(session.ErrSaveSession, errors.New("conn reset")), "DATABASE_ERROR", 500},
		{"validation fault", fault.Validation(errors.New("message too long")), "VALIDATION_ERROR", 400},
		{"permission fault", fault.Permission(errors.New("nope")), "PERMISSION_DENIED", 403},
		{"timeout fault", fault.Timeout(context.DeadlineExceeded), "EXTERNAL_SERVICE_TIMEOUT", 502},
		{"connection fault", fault.Connection(errors.New("refused")), "EXTERNAL_SERVICE_CONNECTION_ERROR", 502},
		{"unavailable fault", fault.Unavailable(errors.New("overloaded")), "EXTERNAL_SERVICE_UNAVAILABLE", 503},
		{"unknown error", errors.New("boom"), "INTERNAL_ERROR", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mapped := middleware.MapError(tt.err)
			assert.Equal(t, tt.code, mapped.Code)
			assert.Equal(t, tt.status, mapped.Status)
		})
	}
}

func TestNewErrorHandler(t *testing.T) {
	t.Parallel()

	t.Run("renders envelope with fresh error id", func(t *testing.T) {
		t.Parallel()

		eh := middleware.NewErrorHandler[*router.Context](middleware.ErrorHandlerConfig{})

		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		rec := httptest.NewRecorder()
		ctx := router.NewContext(rec, req)

		eh(ctx, fault.Timeout(errors.New("upstream deadline")))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

		var envelope response.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "EXTERNAL_SERVICE_TIMEOUT", envelope.Code)
		assert.Equal(t, http.StatusText(http.StatusBadGateway), envelope.Error)

		_, err := uuid.Parse(envelope.ErrorID)
		assert.NoError(t, err)
		assert.Empty(t, envelope.Details)
	})

	t.Run("debug mode includes the cause", func(t *testing.T) {
		t.Parallel()

		eh := middleware.NewErrorHandler[*router.Context](middleware.ErrorHandlerConfig{Debug: true})

		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		rec := httptest.NewRecorder()
		eh(router.NewContext(rec, req), errors.New("secret detail"))

		var envelope response.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "secret detail", envelope.Details["cause"])
	})

	t.Run("production redacts the cause", func(t *testing.T) {
		t.Parallel()

		eh := middleware.NewErrorHandler[*router.Context](middleware.ErrorHandlerConfig{})

		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		rec := httptest.NewRecorder()
		eh(router.NewContext(rec, req), errors.New("secret detail"))

		assert.NotContains(t, rec.Body.String(), "secret detail")
	})
}

func TestRecover(t *testing.T) {
	t.Parallel()

	panicking := handler.HandlerFunc[*router.Context](func(_ *router.Context) handler.Response {
		panic("handler exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	_, _, err := exec(t, req, panicking, middleware.Recover[*router.Context]())
	require.Error(t, err)

	mapped := middleware.MapError(err)
	assert.Equal(t, "INTERNAL_ERROR", mapped.Code)
}
