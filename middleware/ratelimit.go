package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/core/response"
	"github.com/movedesk/chatbot/pkg/ratelimiter"
)

// RateLimitConfig configures the request rate limiting middleware.
type RateLimitConfig struct {
	// Skip defines a function to skip middleware execution for specific requests.
	Skip func(ctx handler.Context) bool

	// Limiter counts requests per key. Required.
	Limiter *ratelimiter.Limiter

	// KeyFunc derives the counting key (default: client IP).
	KeyFunc func(ctx handler.Context) string

	// Logger records limiter store failures (default: discard).
	// Store failures fail open: a broken counter must not take the API down.
	Logger *slog.Logger
}

// RateLimit creates a per-client request rate limiting middleware.
func RateLimit[C handler.Context](limiter *ratelimiter.Limiter) handler.Middleware[C] {
	return RateLimitWithConfig[C](RateLimitConfig{Limiter: limiter})
}

// RateLimitWithConfig creates a rate limiting middleware with custom
// configuration. Responses carry X-RateLimit-Remaining and, when limited,
// Retry-After.
func RateLimitWithConfig[C handler.Context](cfg RateLimitConfig) handler.Middleware[C] {
	if cfg.Limiter == nil {
		panic("ratelimit middleware: limiter is required")
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(ctx handler.Context) string { return GetClientIP(ctx) }
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDiscard()
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			result, err := cfg.Limiter.Allow(ctx, cfg.KeyFunc(ctx))
			if err != nil {
				cfg.Logger.ErrorContext(ctx, "rate limiter unavailable, failing open",
					logger.Component("http"),
					logger.Error(err))
				return next(ctx)
			}

			if result.Exceeded() {
				retryAfter := strconv.Itoa(int(result.RetryAfter().Seconds()) + 1)
				return func(w http.ResponseWriter, r *http.Request) error {
					w.Header().Set("Retry-After", retryAfter)
					w.Header().Set("X-RateLimit-Remaining", "0")
					return response.Error(response.ErrRateLimited)(w, r)
				}
			}

			remaining := strconv.FormatInt(result.Remaining(), 10)
			resp := next(ctx)
			return func(w http.ResponseWriter, r *http.Request) error {
				w.Header().Set("X-RateLimit-Remaining", remaining)
				return resp(w, r)
			}
		}
	}
}
