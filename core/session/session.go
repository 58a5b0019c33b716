package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/movedesk/chatbot/pkg/useragent"
)

// EndReason records why a session stopped being active.
type EndReason string

const (
	EndReasonLogout   EndReason = "logout"
	EndReasonExpired  EndReason = "expired"
	EndReasonEvicted  EndReason = "evicted"
	EndReasonSecurity EndReason = "security"
)

// Session tracks one browser's continuous interaction with the chatbot.
type Session struct {
	// ID is the stable unique identifier, never reused.
	ID uuid.UUID

	// Key is the opaque client-facing session key (32 bytes base64url).
	Key string

	// UserID identifies the authenticated user, uuid.Nil for anonymous visitors.
	UserID uuid.UUID

	// Client attributes captured at creation and validated on every request.
	IP          string
	UserAgent   string
	DeviceType  useragent.DeviceType
	Fingerprint string

	// Activity counters.
	PageViews        int
	ChatInteractions int

	StartedAt    time.Time
	LastActivity time.Time

	// End state. EndedAt is zero while the session is active.
	EndedAt   time.Time
	EndReason EndReason

	// isModified tracks whether the session needs saving.
	isModified bool
}

// NewParams carries the client attributes for a new session.
type NewParams struct {
	UserID      uuid.UUID
	IP          string
	UserAgent   string
	Fingerprint string
}

// New creates an active session with a generated key and ID.
// The device type is derived from the User-Agent; unparseable agents get
// DeviceTypeUnknown rather than failing session creation.
func New(params NewParams) (Session, error) {
	if params.IP == "" {
		return Session{}, ErrMissingIP
	}

	key, err := generateKey()
	if err != nil {
		return Session{}, errors.Join(ErrKeyGeneration, err)
	}

	ua, _ := useragent.Parse(params.UserAgent)

	now := time.Now()
	return Session{
		ID:           uuid.New(),
		Key:          key,
		UserID:       params.UserID,
		IP:           params.IP,
		UserAgent:    params.UserAgent,
		DeviceType:   ua.DeviceType(),
		Fingerprint:  params.Fingerprint,
		StartedAt:    now,
		LastActivity: now,
		isModified:   true,
	}, nil
}

// RecordActivity bumps the page view counter and, for chat endpoints, the
// chat interaction counter. The last-activity timestamp only moves when the
// touch interval has elapsed, throttling store writes under rapid polling.
func (s *Session) RecordActivity(chat bool, touchInterval time.Duration) {
	s.PageViews++
	if chat {
		s.ChatInteractions++
	}
	if time.Since(s.LastActivity) >= touchInterval {
		s.LastActivity = time.Now()
	}
	s.isModified = true
}

// End marks the session as ended with the given reason.
// Ending an already-ended session is a no-op so repeated logout requests
// and concurrent sweeps stay idempotent.
func (s *Session) End(reason EndReason) {
	if s.IsEnded() {
		return
	}
	s.EndedAt = time.Now()
	s.EndReason = reason
	s.isModified = true
}

// Authenticate binds an anonymous session to a user. Sessions already
// bound to a user keep their identity.
func (s *Session) Authenticate(userID uuid.UUID) {
	if s.UserID != uuid.Nil || userID == uuid.Nil {
		return
	}
	s.UserID = userID
	s.isModified = true
}

// IsEnded reports whether the session has been ended.
func (s Session) IsEnded() bool { return !s.EndedAt.IsZero() }

// IsAuthenticated reports whether the session belongs to a known user.
func (s Session) IsAuthenticated() bool { return s.UserID != uuid.Nil }

// IsIdle reports whether the session has seen no activity within ttl.
func (s Session) IsIdle(ttl time.Duration) bool {
	return time.Since(s.LastActivity) >= ttl
}

// Duration returns how long the session has been (or was) active.
func (s Session) Duration() time.Duration {
	end := s.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt)
}

// IsModified reports whether the session has unsaved changes.
func (s Session) IsModified() bool { return s.isModified }

// MarkSaved clears the modified flag. Stores call it after a successful write.
func (s *Session) MarkSaved() { s.isModified = false }

// generateKey creates a cryptographically secure random session key using
// 32 bytes encoded as base64 URL-safe without padding.
func generateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
