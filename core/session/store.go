package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the persistence interface for sessions.
// Implementations must handle concurrent access safely and return
// ErrNotFound for missing sessions.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	GetByKey(ctx context.Context, key string) (*Session, error)

	// ActiveByUser returns the user's active sessions ordered by
	// last activity, oldest first, so callers can evict from the front.
	ActiveByUser(ctx context.Context, userID uuid.UUID) ([]*Session, error)

	Save(ctx context.Context, s *Session) error

	// EndIdle ends up to limit active sessions whose last activity is
	// before cutoff, recording the given reason. Returns the number ended;
	// callers repeat until a pass ends fewer than limit.
	EndIdle(ctx context.Context, cutoff time.Time, reason EndReason, limit int) (int64, error)

	// EndStartedBefore ends up to limit active sessions started before
	// cutoff, enforcing the absolute lifetime cap. Returns the number ended.
	EndStartedBefore(ctx context.Context, cutoff time.Time, reason EndReason, limit int) (int64, error)

	// DeleteEndedBefore removes up to limit ended sessions older than
	// cutoff. Keeps the table bounded; analytics read ended sessions
	// before this.
	DeleteEndedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
