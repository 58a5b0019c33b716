package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movedesk/chatbot/core/session"
	"github.com/movedesk/chatbot/pkg/useragent"
)

// SessionStore persists sessions in the sessions table.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	if pool == nil {
		panic("postgres: pool is required")
	}
	return &SessionStore{pool: pool}
}

const sessionColumns = `id, session_key, user_id, ip_address, user_agent, device_type,
	fingerprint, page_views, chat_interactions, started_at, last_activity, ended_at, end_reason`

func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (s *SessionStore) GetByKey(ctx context.Context, key string) (*session.Session, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_key = $1`, key)
	return scanSession(row)
}

func (s *SessionStore) ActiveByUser(ctx context.Context, userID uuid.UUID) ([]*session.Session, error) {
	rows, err := db(ctx, s.pool).Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND ended_at IS NULL
		 ORDER BY last_activity ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	userID := uuid.NullUUID{UUID: sess.UserID, Valid: sess.UserID != uuid.Nil}
	var endedAt *time.Time
	var endReason *string
	if sess.IsEnded() {
		endedAt = &sess.EndedAt
		reason := string(sess.EndReason)
		endReason = &reason
	}

	_, err := db(ctx, s.pool).Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			page_views = EXCLUDED.page_views,
			chat_interactions = EXCLUDED.chat_interactions,
			last_activity = EXCLUDED.last_activity,
			ended_at = EXCLUDED.ended_at,
			end_reason = EXCLUDED.end_reason`,
		sess.ID, sess.Key, userID, sess.IP, sess.UserAgent, string(sess.DeviceType),
		sess.Fingerprint, sess.PageViews, sess.ChatInteractions,
		sess.StartedAt, sess.LastActivity, endedAt, endReason)
	if err != nil {
		return errors.Join(session.ErrSaveSession, err)
	}
	sess.MarkSaved()
	return nil
}

// Sweep statements are bounded by the caller's limit via id subselects so
// each pass holds row locks briefly; the manager repeats passes until the
// backlog is drained.

func (s *SessionStore) EndIdle(ctx context.Context, cutoff time.Time, reason session.EndReason, limit int) (int64, error) {
	tag, err := db(ctx, s.pool).Exec(ctx, `
		UPDATE sessions SET ended_at = now(), end_reason = $2
		WHERE id IN (
			SELECT id FROM sessions
			WHERE ended_at IS NULL AND last_activity < $1
			LIMIT $3
		)`,
		cutoff, string(reason), limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *SessionStore) EndStartedBefore(ctx context.Context, cutoff time.Time, reason session.EndReason, limit int) (int64, error) {
	tag, err := db(ctx, s.pool).Exec(ctx, `
		UPDATE sessions SET ended_at = now(), end_reason = $2
		WHERE id IN (
			SELECT id FROM sessions
			WHERE ended_at IS NULL AND started_at < $1
			LIMIT $3
		)`,
		cutoff, string(reason), limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *SessionStore) DeleteEndedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := db(ctx, s.pool).Exec(ctx, `
		DELETE FROM sessions
		WHERE id IN (
			SELECT id FROM sessions
			WHERE ended_at IS NOT NULL AND ended_at < $1
			LIMIT $2
		)`,
		cutoff, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var (
		sess       session.Session
		userID     uuid.NullUUID
		deviceType string
		endedAt    *time.Time
		endReason  *string
	)
	err := row.Scan(&sess.ID, &sess.Key, &userID, &sess.IP, &sess.UserAgent,
		&deviceType, &sess.Fingerprint, &sess.PageViews, &sess.ChatInteractions,
		&sess.StartedAt, &sess.LastActivity, &endedAt, &endReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	if userID.Valid {
		sess.UserID = userID.UUID
	}
	sess.DeviceType = useragent.DeviceType(deviceType)
	if endedAt != nil {
		sess.EndedAt = *endedAt
	}
	if endReason != nil {
		sess.EndReason = session.EndReason(*endReason)
	}
	return &sess, nil
}
