package middleware

import (
	"mime"
	"net/http"

	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/response"
)

// ContentTypeConfig configures the content type gate.
type ContentTypeConfig struct {
	// Skip defines a function to skip middleware execution for specific requests.
	Skip func(ctx handler.Context) bool

	// Allowed lists acceptable media types (default: application/json).
	Allowed []string

	// Methods lists the methods the gate applies to (default: write methods).
	Methods []string
}

// RequireJSON rejects write requests whose body is not declared as JSON.
// Requests without a body pass through.
func RequireJSON[C handler.Context]() handler.Middleware[C] {
	return ContentTypeWithConfig[C](ContentTypeConfig{})
}

// ContentTypeWithConfig creates a content type gate with custom
// configuration.
func ContentTypeWithConfig[C handler.Context](cfg ContentTypeConfig) handler.Middleware[C] {
	if len(cfg.Allowed) == 0 {
		cfg.Allowed = []string{"application/json"}
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []string{http.MethodPost, http.MethodPut, http.MethodPatch}
	}

	methods := make(map[string]struct{}, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods[m] = struct{}{}
	}
	allowed := make(map[string]struct{}, len(cfg.Allowed))
	for _, ct := range cfg.Allowed {
		allowed[ct] = struct{}{}
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			req := ctx.Request()
			if _, gated := methods[req.Method]; !gated {
				return next(ctx)
			}
			if req.ContentLength == 0 && req.Body == nil {
				return next(ctx)
			}

			mediaType, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
			if err != nil {
				return response.Error(response.ErrInvalidContentType)
			}
			if _, ok := allowed[mediaType]; !ok {
				return response.Error(response.ErrInvalidContentType.WithDetails(map[string]any{
					"content_type": mediaType,
				}))
			}
			return next(ctx)
		}
	}
}
