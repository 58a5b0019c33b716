package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/movedesk/chatbot/core/chat"
	"github.com/movedesk/chatbot/core/fault"
	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/core/response"
	"github.com/movedesk/chatbot/core/session"
	"github.com/movedesk/chatbot/pkg/breaker"
	"github.com/movedesk/chatbot/pkg/ratelimiter"
)

// MapError converts any error surfaced during request handling into the
// client-facing HTTPError. Explicit HTTPErrors pass through; dependency
// failures map by their fault classification; everything unclassified is an
// internal error.
func MapError(err error) response.HTTPError {
	var httpErr response.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case errors.Is(err, breaker.ErrOpen):
		return response.ErrExternalServiceUnavailable
	case errors.Is(err, ratelimiter.ErrStoreUnavailable):
		return response.ErrInternal
	case errors.Is(err, session.ErrNotFound), errors.Is(err, chat.ErrConversationNotFound):
		return response.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) || errors.Is(err, session.ErrSaveSession) {
		return response.ErrDatabase
	}

	switch fault.KindOf(err) {
	case fault.KindValidation:
		return response.ErrValidation.WithMessage(err.Error())
	case fault.KindPermission:
		return response.ErrPermissionDenied
	case fault.KindNotFound:
		return response.ErrNotFound
	case fault.KindTimeout:
		return response.ErrExternalServiceTimeout
	case fault.KindConnection:
		return response.ErrExternalServiceConnection
	case fault.KindUnavailable:
		return response.ErrExternalServiceUnavailable
	}
	return response.ErrInternal
}

// ErrorHandlerConfig configures the router error handler.
type ErrorHandlerConfig struct {
	// Logger for server-side error records (default: discard).
	Logger *slog.Logger

	// Debug includes the underlying cause in response details.
	// Never enable in production.
	Debug bool
}

// NewErrorHandler builds the router error handler: it maps the error to the
// envelope of the error taxonomy, assigns a fresh error ID for log
// correlation, and renders JSON.
func NewErrorHandler[C handler.Context](cfg ErrorHandlerConfig) handler.ErrorHandler[C] {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDiscard()
	}

	return func(ctx C, err error) {
		httpErr := MapError(err)
		errorID := uuid.New().String()

		attrs := []any{
			logger.Component("http"),
			slog.String("error_id", errorID),
			slog.String("code", httpErr.Code),
			logger.StatusCode(httpErr.Status),
			logger.Path(ctx.Request().URL.Path),
			logger.Error(err),
		}
		if requestID, ok := GetRequestID(ctx); ok {
			attrs = append(attrs, logger.RequestID(requestID))
		}
		if httpErr.Status >= http.StatusInternalServerError {
			cfg.Logger.ErrorContext(ctx, "request failed", attrs...)
		} else {
			cfg.Logger.WarnContext(ctx, "request rejected", attrs...)
		}

		if cfg.Debug {
			httpErr = httpErr.WithError(err)
		}

		w := ctx.ResponseWriter()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(httpErr.Status)
		_ = json.NewEncoder(w).Encode(httpErr.Envelope(errorID))
	}
}
