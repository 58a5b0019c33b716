package middleware

import (
	"fmt"
	"io"

	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/response"
)

// DefaultBodyLimit caps request bodies at 10MB.
const DefaultBodyLimit int64 = 10 << 20

// BodyLimitConfig configures the request body limit middleware.
type BodyLimitConfig struct {
	// Skip defines a function to skip middleware execution for specific requests.
	Skip func(ctx handler.Context) bool

	// MaxSize is the maximum allowed body size in bytes (default: 10MB).
	MaxSize int64
}

// BodyLimit rejects oversized request bodies before they reach handlers.
// Declared sizes are rejected from the Content-Length header; chunked
// bodies are cut off during reading.
func BodyLimit[C handler.Context]() handler.Middleware[C] {
	return BodyLimitWithConfig[C](BodyLimitConfig{})
}

// BodyLimitWithSize creates a body limit middleware with a specific limit.
func BodyLimitWithSize[C handler.Context](maxSize int64) handler.Middleware[C] {
	return BodyLimitWithConfig[C](BodyLimitConfig{MaxSize: maxSize})
}

// BodyLimitWithConfig creates a body limit middleware with custom
// configuration.
func BodyLimitWithConfig[C handler.Context](cfg BodyLimitConfig) handler.Middleware[C] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultBodyLimit
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			req := ctx.Request()
			if req.ContentLength > cfg.MaxSize {
				return response.Error(response.ErrRequestTooLarge.WithDetails(map[string]any{
					"size":  req.ContentLength,
					"limit": cfg.MaxSize,
				}))
			}

			if req.Body != nil {
				req.Body = &limitedReader{reader: req.Body, limit: cfg.MaxSize}
			}
			return next(ctx)
		}
	}
}

// limitedReader enforces the limit for bodies without a declared length.
type limitedReader struct {
	reader io.ReadCloser
	limit  int64
	read   int64
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.read >= lr.limit {
		return 0, fmt.Errorf("%w: body exceeds %d bytes", response.ErrRequestTooLarge, lr.limit)
	}
	if remaining := lr.limit - lr.read; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := lr.reader.Read(p)
	lr.read += int64(n)
	return n, err
}

func (lr *limitedReader) Close() error {
	return lr.reader.Close()
}
