// Package security validates that requests presenting a session key still
// look like the client the session was created for.
//
// The checks are deliberately asymmetric: a changed User-Agent ends the
// session (browsers do not change identity mid-session, hijacked keys do),
// while a changed IP is only logged, because mobile carriers and VPNs
// rotate addresses constantly. A request-rate anomaly check flags clients
// hammering the API far beyond interactive use.
package security

import (
	"context"
	"errors"
	"log/slog"

	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/core/session"
	"github.com/movedesk/chatbot/pkg/ratelimiter"
)

var (
	// ErrUserAgentMismatch is returned when the request's User-Agent does
	// not match the one the session was created with.
	ErrUserAgentMismatch = errors.New("security: user agent mismatch")

	// ErrRateAnomaly is returned when a client exceeds the anomaly
	// threshold within the detection window.
	ErrRateAnomaly = errors.New("security: request rate anomaly")
)

// ClientInfo carries the request attributes checked against the session.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Validator runs the per-request session consistency checks.
type Validator struct {
	limiter *ratelimiter.Limiter
	log     *slog.Logger
}

// NewValidator creates a validator. limiter drives the rate anomaly check
// and may be nil to disable it.
func NewValidator(limiter *ratelimiter.Limiter, log *slog.Logger) *Validator {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Validator{limiter: limiter, log: log}
}

// Validate checks the request against the session it presents.
// A User-Agent mismatch or rate anomaly returns an error and the caller is
// expected to end the session. IP drift is logged and allowed. A failing
// rate limiter store fails open: anomaly detection is protection, not a
// dependency the chat flow should die on.
func (v *Validator) Validate(ctx context.Context, sess *session.Session, client ClientInfo) error {
	if sess.UserAgent != "" && client.UserAgent != sess.UserAgent {
		v.log.WarnContext(ctx, "session user agent mismatch",
			logger.Component("security"),
			logger.SessionID(sess.ID.String()),
			logger.UserAgent(client.UserAgent))
		return ErrUserAgentMismatch
	}

	if sess.IP != "" && client.IP != sess.IP {
		v.log.WarnContext(ctx, "session ip drift",
			logger.Component("security"),
			logger.SessionID(sess.ID.String()),
			logger.ClientIP(client.IP),
			slog.String("session_ip", sess.IP))
	}

	if v.limiter != nil {
		result, err := v.limiter.Allow(ctx, anomalyKey(sess, client))
		if err != nil {
			v.log.ErrorContext(ctx, "rate anomaly check unavailable",
				logger.Component("security"),
				logger.Error(err))
			return nil
		}
		if result.Exceeded() {
			v.log.WarnContext(ctx, "request rate anomaly detected",
				logger.Component("security"),
				logger.SessionID(sess.ID.String()),
				logger.ClientIP(client.IP),
				slog.Int64("count", result.Count))
			return ErrRateAnomaly
		}
	}

	return nil
}

// anomalyKey scopes the rate window to the client address and identity so
// one busy NAT does not flag every user behind it.
func anomalyKey(sess *session.Session, client ClientInfo) string {
	if sess.IsAuthenticated() {
		return client.IP + ":" + sess.UserID.String()
	}
	return client.IP + ":" + sess.ID.String()
}
