package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/core/response"
	"github.com/movedesk/chatbot/core/security"
	"github.com/movedesk/chatbot/core/session"
)

type sessionContextKey struct{}

// VisitTracker deduplicates anonymous page visits. The Redis-backed
// implementation lives in storage/redis.
type VisitTracker interface {
	Track(ctx context.Context, ip, userAgent, path string) (bool, error)
}

// SessionConfig configures the session resolution middleware.
type SessionConfig struct {
	// Skip defines a function to skip middleware execution for specific requests.
	Skip func(ctx handler.Context) bool

	// Manager owns session lifecycle. Required.
	Manager *session.Manager

	// Validator runs the per-request security checks on resumed sessions.
	// Optional; nil disables validation.
	Validator *security.Validator

	// Tracker records anonymous page views. Optional.
	Tracker VisitTracker

	// UserResolver returns the authenticated user for the request,
	// uuid.Nil for anonymous visitors. Optional.
	UserResolver func(ctx handler.Context) uuid.UUID

	// Logger records non-fatal bookkeeping failures (default: discard).
	Logger *slog.Logger

	// CookieName is the session key cookie (default: session_key).
	CookieName string

	// HeaderName is the session key request header, preferred over the
	// cookie so the embedded widget can run without cookie access
	// (default: X-Session-Key).
	HeaderName string

	// IDHeaderName is the response header exposing the session ID
	// (default: X-Session-ID).
	IDHeaderName string

	// ChatPathPrefix marks requests counted as chat interactions
	// (default: /api/chat).
	ChatPathPrefix string
}

// Session resolves or creates the request's session with default
// configuration.
func Session[C handler.Context](manager *session.Manager) handler.Middleware[C] {
	return SessionWithConfig[C](SessionConfig{Manager: manager})
}

// SessionWithConfig resolves the session presented by the request, runs the
// security checks, records activity, and annotates the response. A security
// violation ends the session and rejects the request.
func SessionWithConfig[C handler.Context](cfg SessionConfig) handler.Middleware[C] {
	if cfg.Manager == nil {
		panic("session middleware: manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDiscard()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "session_key"
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Session-Key"
	}
	if cfg.IDHeaderName == "" {
		cfg.IDHeaderName = "X-Session-ID"
	}
	if cfg.ChatPathPrefix == "" {
		cfg.ChatPathPrefix = "/api/chat"
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			req := ctx.Request()
			ip := GetClientIP(ctx)
			ua := req.UserAgent()
			fp, _ := GetFingerprint(ctx)

			var userID uuid.UUID
			if cfg.UserResolver != nil {
				userID = cfg.UserResolver(ctx)
			}

			sess, created, err := cfg.Manager.ResolveOrCreate(ctx, sessionKey(req, cfg), session.NewParams{
				UserID:      userID,
				IP:          ip,
				UserAgent:   ua,
				Fingerprint: fp,
			})
			if err != nil {
				return response.Error(err)
			}

			if !created && cfg.Validator != nil {
				if verr := cfg.Validator.Validate(ctx, &sess, security.ClientInfo{IP: ip, UserAgent: ua}); verr != nil {
					if endErr := cfg.Manager.End(ctx, &sess, session.EndReasonSecurity); endErr != nil {
						cfg.Logger.ErrorContext(ctx, "failed to end violating session",
							logger.Component("session"),
							logger.SessionID(sess.ID.String()),
							logger.Error(endErr))
					}
					return response.Error(response.ErrSecurityViolation.WithError(verr))
				}
			}

			chatRequest := strings.HasPrefix(req.URL.Path, cfg.ChatPathPrefix)
			if err := cfg.Manager.RecordActivity(ctx, &sess, chatRequest); err != nil {
				// Activity bookkeeping must not fail the request.
				cfg.Logger.WarnContext(ctx, "failed to record session activity",
					logger.Component("session"),
					logger.SessionID(sess.ID.String()),
					logger.Error(err))
			}

			if cfg.Tracker != nil && !sess.IsAuthenticated() && req.Method == http.MethodGet {
				if _, err := cfg.Tracker.Track(ctx, ip, ua, req.URL.Path); err != nil {
					cfg.Logger.WarnContext(ctx, "failed to track anonymous visit",
						logger.Component("session"),
						logger.Error(err))
				}
			}

			ctx.SetValue(sessionContextKey{}, &sess)

			resp := next(ctx)
			return func(w http.ResponseWriter, r *http.Request) error {
				w.Header().Set(cfg.IDHeaderName, sess.ID.String())
				if created {
					http.SetCookie(w, &http.Cookie{
						Name:     cfg.CookieName,
						Value:    sess.Key,
						Path:     "/",
						HttpOnly: true,
						SameSite: http.SameSiteLaxMode,
					})
				}
				return resp(w, r)
			}
		}
	}
}

// sessionKey extracts the client's session key, header first so the widget
// can run where cookies are blocked.
func sessionKey(req *http.Request, cfg SessionConfig) string {
	if key := req.Header.Get(cfg.HeaderName); key != "" {
		return key
	}
	if cookie, err := req.Cookie(cfg.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// GetSession retrieves the session resolved by Session.
func GetSession(ctx handler.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess, ok
}
