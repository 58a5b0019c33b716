package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movedesk/chatbot/core/chat"
)

// ConversationStore persists conversations and messages.
type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	if pool == nil {
		panic("postgres: pool is required")
	}
	return &ConversationStore{pool: pool}
}

const conversationColumns = `id, session_id, user_id, title, status, current_flow,
	message_count, user_message_count, bot_message_count,
	created_at, updated_at, last_activity, completed_at`

func (s *ConversationStore) GetConversation(ctx context.Context, id uuid.UUID) (*chat.Conversation, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

func (s *ConversationStore) ActiveBySession(ctx context.Context, sessionID uuid.UUID) (*chat.Conversation, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE session_id = $1 AND status = 'active'
		 ORDER BY created_at DESC LIMIT 1`, sessionID)
	return scanConversation(row)
}

func (s *ConversationStore) SaveConversation(ctx context.Context, c *chat.Conversation) error {
	userID := uuid.NullUUID{UUID: c.UserID, Valid: c.UserID != uuid.Nil}
	var completedAt *time.Time
	if !c.CompletedAt.IsZero() {
		completedAt = &c.CompletedAt
	}

	_, err := db(ctx, s.pool).Exec(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			current_flow = EXCLUDED.current_flow,
			message_count = EXCLUDED.message_count,
			user_message_count = EXCLUDED.user_message_count,
			bot_message_count = EXCLUDED.bot_message_count,
			updated_at = EXCLUDED.updated_at,
			last_activity = EXCLUDED.last_activity,
			completed_at = EXCLUDED.completed_at`,
		c.ID, c.SessionID, userID, c.Title, string(c.Status), c.CurrentFlow,
		c.MessageCount, c.UserMessageCount, c.BotMessageCount,
		c.CreatedAt, c.UpdatedAt, c.LastActivity, completedAt)
	return err
}

// AppendMessage inserts the message and bumps the conversation counters in
// one transaction. The in-memory conversation is updated to match only
// after the commit succeeds.
func (s *ConversationStore) AppendMessage(ctx context.Context, c *chat.Conversation, m *chat.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, model,
			prompt_tokens, response_tokens, processing_time_ms, flow_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.ConversationID, string(m.Role), m.Content, m.Model,
		m.PromptTokens, m.ResponseTokens, m.ProcessingTime.Milliseconds(),
		m.FlowName, m.CreatedAt)
	if err != nil {
		return err
	}

	userDelta, botDelta := 0, 0
	switch m.Role {
	case chat.RoleUser:
		userDelta = 1
	case chat.RoleBot:
		botDelta = 1
	}
	_, err = tx.Exec(ctx, `
		UPDATE conversations SET
			message_count = message_count + 1,
			user_message_count = user_message_count + $2,
			bot_message_count = bot_message_count + $3,
			current_flow = $4,
			last_activity = $5,
			updated_at = $5
		WHERE id = $1`,
		c.ID, userDelta, botDelta, c.CurrentFlow, m.CreatedAt)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	c.MessageCount++
	c.UserMessageCount += userDelta
	c.BotMessageCount += botDelta
	c.LastActivity = m.CreatedAt
	c.UpdatedAt = m.CreatedAt
	return nil
}

func (s *ConversationStore) RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]chat.Message, error) {
	rows, err := db(ctx, s.pool).Query(ctx, `
		SELECT id, conversation_id, role, content, model,
			prompt_tokens, response_tokens, processing_time_ms, flow_name, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT NULLIF($2, 0)
		) recent
		ORDER BY created_at ASC`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var (
			m      chat.Message
			role   string
			procMs int64
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.Model,
			&m.PromptTokens, &m.ResponseTokens, &procMs, &m.FlowName, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = chat.Role(role)
		m.ProcessingTime = time.Duration(procMs) * time.Millisecond
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *ConversationStore) ArchiveInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db(ctx, s.pool).Exec(ctx, `
		UPDATE conversations SET status = 'archived', updated_at = now()
		WHERE status = 'active' AND last_activity < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *ConversationStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db(ctx, s.pool).Exec(ctx, `
		DELETE FROM conversations
		WHERE status IN ('completed', 'archived') AND last_activity < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *ConversationStore) SaveAIResponse(ctx context.Context, r *chat.AIResponse) error {
	_, err := db(ctx, s.pool).Exec(ctx, `
		INSERT INTO ai_responses (id, message_id, model, prompt, response,
			prompt_tokens, completion_tokens, processing_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.MessageID, r.Model, r.Prompt, r.Response,
		r.PromptTokens, r.CompletionTokens, r.ProcessingTime.Milliseconds(),
		r.CreatedAt)
	return err
}

func (s *ConversationStore) DeleteAIResponsesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db(ctx, s.pool).Exec(ctx, `
		DELETE FROM ai_responses WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var (
		c           chat.Conversation
		userID      uuid.NullUUID
		status      string
		completedAt *time.Time
	)
	err := row.Scan(&c.ID, &c.SessionID, &userID, &c.Title, &status, &c.CurrentFlow,
		&c.MessageCount, &c.UserMessageCount, &c.BotMessageCount,
		&c.CreatedAt, &c.UpdatedAt, &c.LastActivity, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chat.ErrConversationNotFound
		}
		return nil, err
	}
	if userID.Valid {
		c.UserID = userID.UUID
	}
	c.Status = chat.ConversationStatus(status)
	if completedAt != nil {
		c.CompletedAt = *completedAt
	}
	return &c, nil
}
