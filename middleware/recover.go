package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/core/response"
)

// RecoverConfig configures the panic recovery middleware.
type RecoverConfig struct {
	// Skip defines a function to skip middleware execution for specific requests.
	Skip func(ctx handler.Context) bool

	// Logger records recovered panics with stack traces (default: discard).
	Logger *slog.Logger
}

// Recover converts handler panics into internal error responses instead of
// dropped connections.
func Recover[C handler.Context]() handler.Middleware[C] {
	return RecoverWithConfig[C](RecoverConfig{})
}

// RecoverWithConfig creates a panic recovery middleware with custom
// configuration.
func RecoverWithConfig[C handler.Context](cfg RecoverConfig) handler.Middleware[C] {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDiscard()
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) (resp handler.Response) {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			defer func() {
				if rec := recover(); rec != nil {
					attrs := []any{
						logger.Component("http"),
						logger.Path(ctx.Request().URL.Path),
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
					}
					if requestID, ok := GetRequestID(ctx); ok {
						attrs = append(attrs, logger.RequestID(requestID))
					}
					cfg.Logger.ErrorContext(ctx, "panic recovered", attrs...)

					resp = response.Error(fmt.Errorf("panic: %v", rec))
				}
			}()

			return next(ctx)
		}
	}
}
