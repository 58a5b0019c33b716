package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/movedesk/chatbot/core/handler"
)

// CORSConfig configures cross-origin access for the embedded chat widget.
type CORSConfig struct {
	// Skip defines a function to skip middleware execution for specific requests.
	Skip func(ctx handler.Context) bool

	// AllowedOrigins lists origins permitted to call the API. "*" allows
	// any origin (default).
	AllowedOrigins []string

	// AllowedMethods (default: GET, POST, PUT, PATCH, DELETE, OPTIONS).
	AllowedMethods []string

	// AllowedHeaders (default: Content-Type, X-Session-Key, X-Request-ID).
	AllowedHeaders []string

	// ExposeHeaders are response headers readable by widget scripts
	// (default: the session, request, timing, and degradation headers).
	ExposeHeaders []string

	// MaxAge caches preflight results in seconds (default: 600).
	MaxAge int
}

// CORS creates a CORS middleware with defaults suitable for the widget.
func CORS[C handler.Context]() handler.Middleware[C] {
	return CORSWithConfig[C](CORSConfig{})
}

// CORSWithConfig creates a CORS middleware with custom configuration.
// Preflight requests are answered without reaching handlers.
func CORSWithConfig[C handler.Context](cfg CORSConfig) handler.Middleware[C] {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Content-Type", "X-Session-Key", "X-Request-ID"}
	}
	if len(cfg.ExposeHeaders) == 0 {
		cfg.ExposeHeaders = []string{
			"X-Session-ID", "X-Request-ID", "X-Processing-Time", "X-Degradation-Mode",
		}
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 600
	}

	allowAny := len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*"
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	originAllowed := func(origin string) bool {
		if allowAny {
			return true
		}
		for _, allowed := range cfg.AllowedOrigins {
			if strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return false
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			req := ctx.Request()
			origin := req.Header.Get("Origin")
			if origin == "" || !originAllowed(origin) {
				return next(ctx)
			}

			allowOrigin := origin
			if allowAny {
				allowOrigin = "*"
			}

			if req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != "" {
				return func(w http.ResponseWriter, r *http.Request) error {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", allowOrigin)
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", headers)
					h.Set("Access-Control-Max-Age", maxAge)
					if !allowAny {
						h.Add("Vary", "Origin")
					}
					w.WriteHeader(http.StatusNoContent)
					return nil
				}
			}

			resp := next(ctx)
			return func(w http.ResponseWriter, r *http.Request) error {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowOrigin)
				h.Set("Access-Control-Expose-Headers", expose)
				if !allowAny {
					h.Add("Vary", "Origin")
				}
				return resp(w, r)
			}
		}
	}
}
