package middleware

import (
	"net/http"

	"github.com/movedesk/chatbot/core/handler"
)

// SecurityHeadersConfig configures the baseline security headers.
type SecurityHeadersConfig struct {
	// Skip defines a function to skip middleware execution for specific requests.
	Skip func(ctx handler.Context) bool

	// ContentSecurityPolicy overrides the default restrictive policy.
	ContentSecurityPolicy string

	// FrameAncestors lists origins allowed to embed the widget iframe.
	// Empty denies all embedding.
	FrameAncestors []string
}

// SecurityHeaders sets the standard browser hardening headers on every
// response.
func SecurityHeaders[C handler.Context]() handler.Middleware[C] {
	return SecurityHeadersWithConfig[C](SecurityHeadersConfig{})
}

// SecurityHeadersWithConfig creates a security headers middleware with
// custom configuration.
func SecurityHeadersWithConfig[C handler.Context](cfg SecurityHeadersConfig) handler.Middleware[C] {
	csp := cfg.ContentSecurityPolicy
	if csp == "" {
		csp = "default-src 'self'; frame-ancestors 'none'"
		if len(cfg.FrameAncestors) > 0 {
			ancestors := ""
			for _, a := range cfg.FrameAncestors {
				ancestors += " " + a
			}
			csp = "default-src 'self'; frame-ancestors" + ancestors
		}
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			resp := next(ctx)
			return func(w http.ResponseWriter, r *http.Request) error {
				h := w.Header()
				h.Set("X-Content-Type-Options", "nosniff")
				if len(cfg.FrameAncestors) == 0 {
					h.Set("X-Frame-Options", "DENY")
				}
				h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
				h.Set("Content-Security-Policy", csp)
				return resp(w, r)
			}
		}
	}
}
