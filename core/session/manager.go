package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/movedesk/chatbot/core/logger"
)

// Manager owns session lifecycle transitions. All mutations flow through it
// so the touch throttle, the concurrency cap, and end-reason bookkeeping
// stay in one place.
type Manager struct {
	store Store
	cfg   *Config
	log   *slog.Logger
}

// NewManager creates a session manager around the given store.
func NewManager(store Store, log *slog.Logger, opts ...Option) *Manager {
	if store == nil {
		panic("session: store is required")
	}
	if log == nil {
		log = logger.NewDiscard()
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Manager{store: store, cfg: cfg, log: log}
}

// TTL returns the configured idle timeout.
func (m *Manager) TTL() time.Duration { return m.cfg.TTL }

// ResolveOrCreate returns the active session for (user, key), or creates a
// new one when the key is empty, unknown, ended, idle past the TTL, over
// the absolute lifetime, or bound to a different user. An idle session
// found this way is ended with EndReasonExpired before the replacement is
// created; an anonymous session resumed by an authenticated visitor adopts
// the user. The returned bool reports whether a new session was created.
// Store failures are logged and swallowed: session bookkeeping never
// aborts the primary request, so the session returned after a failed save
// may be unpersisted.
func (m *Manager) ResolveOrCreate(ctx context.Context, key string, params NewParams) (Session, bool, error) {
	if key != "" {
		existing, err := m.store.GetByKey(ctx, key)
		switch {
		case err == nil:
			if resumed, ok := m.resume(ctx, existing, params); ok {
				return resumed, false, nil
			}
		case errors.Is(err, ErrNotFound):
			// Stale client key, fall through to creation.
		default:
			m.log.ErrorContext(ctx, "session lookup failed, starting fresh",
				logger.Component("session"),
				logger.Error(err))
		}
	}

	return m.create(ctx, params)
}

// resume hands back the existing session when this client may still use it.
// ok=false means a replacement must be created.
func (m *Manager) resume(ctx context.Context, existing *Session, params NewParams) (Session, bool) {
	alive := !existing.IsEnded() &&
		!existing.IsIdle(m.cfg.TTL) &&
		existing.Duration() < m.cfg.AbsoluteTTL

	// A key minted for one user never resumes under another. The session
	// is left alone; its owner may still be using it.
	if alive && existing.IsAuthenticated() && existing.UserID != params.UserID {
		return Session{}, false
	}

	if alive {
		if !existing.IsAuthenticated() && params.UserID != uuid.Nil {
			existing.Authenticate(params.UserID)
			if err := m.store.Save(ctx, existing); err != nil {
				m.logSaveFailure(ctx, existing.ID, err)
			} else {
				m.log.InfoContext(ctx, "session authenticated",
					logger.Component("session"),
					logger.SessionID(existing.ID.String()),
					logger.UserID(params.UserID.String()))
			}
		}
		return *existing, true
	}

	if !existing.IsEnded() {
		existing.End(EndReasonExpired)
		if err := m.store.Save(ctx, existing); err != nil {
			m.logSaveFailure(ctx, existing.ID, err)
		} else {
			m.log.InfoContext(ctx, "session expired",
				logger.Component("session"),
				logger.SessionID(existing.ID.String()))
		}
	}
	return Session{}, false
}

func (m *Manager) create(ctx context.Context, params NewParams) (Session, bool, error) {
	if params.UserID != uuid.Nil {
		if err := m.enforceLimit(ctx, params.UserID); err != nil {
			// Eviction bookkeeping must not block the new session.
			m.log.ErrorContext(ctx, "failed to enforce concurrent session limit",
				logger.Component("session"),
				logger.UserID(params.UserID.String()),
				logger.Error(err))
		}
	}

	sess, err := New(params)
	if err != nil {
		return Session{}, false, err
	}
	if err := m.store.Save(ctx, &sess); err != nil {
		// Fail open with the unpersisted session; a later write may land
		// once the store recovers.
		m.logSaveFailure(ctx, sess.ID, err)
		return sess, true, nil
	}

	m.log.InfoContext(ctx, "session created",
		logger.Component("session"),
		logger.SessionID(sess.ID.String()),
		logger.UserID(userIDAttr(sess.UserID)),
		slog.String("device_type", string(sess.DeviceType)))

	return sess, true, nil
}

func (m *Manager) logSaveFailure(ctx context.Context, id uuid.UUID, err error) {
	m.log.ErrorContext(ctx, "failed to save session",
		logger.Component("session"),
		logger.SessionID(id.String()),
		logger.Error(err))
}

// RecordActivity bumps the session counters and persists the session.
// chat marks the request as a chat interaction rather than a page view only.
func (m *Manager) RecordActivity(ctx context.Context, sess *Session, chat bool) error {
	if sess.IsEnded() {
		return ErrEnded
	}
	sess.RecordActivity(chat, m.cfg.TouchInterval)
	if err := m.store.Save(ctx, sess); err != nil {
		return errors.Join(ErrSaveSession, err)
	}
	return nil
}

// End ends the session with the given reason and persists it.
// Ending an already-ended session succeeds without a store write.
func (m *Manager) End(ctx context.Context, sess *Session, reason EndReason) error {
	if sess.IsEnded() {
		return nil
	}
	sess.End(reason)
	if err := m.store.Save(ctx, sess); err != nil {
		return errors.Join(ErrSaveSession, err)
	}

	m.log.InfoContext(ctx, "session ended",
		logger.Component("session"),
		logger.SessionID(sess.ID.String()),
		slog.String("reason", string(reason)),
		logger.Duration(sess.Duration()))
	return nil
}

// EndByKey ends the session identified by the client key.
// Unknown keys succeed silently so logout stays idempotent.
func (m *Manager) EndByKey(ctx context.Context, key string, reason EndReason) error {
	sess, err := m.store.GetByKey(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.End(ctx, sess, reason)
}

// enforceLimit evicts the user's oldest active sessions until a new one
// fits under the cap. Eviction order is last activity, oldest first.
func (m *Manager) enforceLimit(ctx context.Context, userID uuid.UUID) error {
	active, err := m.store.ActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(active) < m.cfg.MaxConcurrent {
		return nil
	}

	excess := len(active) - m.cfg.MaxConcurrent + 1
	for _, victim := range active[:excess] {
		if err := m.End(ctx, victim, EndReasonEvicted); err != nil {
			return err
		}
		m.log.WarnContext(ctx, "concurrent session limit reached, oldest session evicted",
			logger.Component("session"),
			logger.UserID(userID.String()),
			logger.SessionID(victim.ID.String()))
	}
	return nil
}

// SweepExpired ends idle and over-age sessions and prunes old ended ones.
// Intended to be called periodically by the cleanup scheduler. Each store
// statement is bounded by the sweep batch size and repeated until the
// backlog is drained. Returns the number of sessions ended by this pass.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	idleCutoff := time.Now().Add(-m.cfg.TTL)
	ended, err := m.sweepBatches(ctx, func(limit int) (int64, error) {
		return m.store.EndIdle(ctx, idleCutoff, EndReasonExpired, limit)
	})
	if err != nil {
		return ended, err
	}

	ageCutoff := time.Now().Add(-m.cfg.AbsoluteTTL)
	aged, err := m.sweepBatches(ctx, func(limit int) (int64, error) {
		return m.store.EndStartedBefore(ctx, ageCutoff, EndReasonExpired, limit)
	})
	ended += aged
	if err != nil {
		return ended, err
	}

	retainCutoff := time.Now().Add(-m.cfg.RetainEnded)
	deleted, err := m.sweepBatches(ctx, func(limit int) (int64, error) {
		return m.store.DeleteEndedBefore(ctx, retainCutoff, limit)
	})
	if err != nil {
		return ended, err
	}

	if ended > 0 || deleted > 0 {
		m.log.InfoContext(ctx, "session sweep completed",
			logger.Component("session"),
			slog.Int64("ended", ended),
			slog.Int64("deleted", deleted))
	}
	return ended, nil
}

// sweepBatches repeats op until one pass touches fewer rows than the batch
// bound, accumulating the total.
func (m *Manager) sweepBatches(ctx context.Context, op func(limit int) (int64, error)) (int64, error) {
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := op(m.cfg.SweepBatch)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(m.cfg.SweepBatch) {
			return total, nil
		}
	}
}

// Summary aggregates a user's active session activity.
type Summary struct {
	ActiveSessions   int
	PageViews        int
	ChatInteractions int
}

// Summarize totals the user's active sessions and their activity counters.
func (m *Manager) Summarize(ctx context.Context, userID uuid.UUID) (Summary, error) {
	active, err := m.store.ActiveByUser(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{ActiveSessions: len(active)}
	for _, sess := range active {
		summary.PageViews += sess.PageViews
		summary.ChatInteractions += sess.ChatInteractions
	}
	return summary, nil
}

func userIDAttr(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
