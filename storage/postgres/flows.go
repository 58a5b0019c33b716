package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movedesk/chatbot/core/chat"
)

// FlowStore persists scripted conversation flows. Trigger lists and steps
// live in JSONB columns so flow edits never need schema changes.
type FlowStore struct {
	pool *pgxpool.Pool
}

func NewFlowStore(pool *pgxpool.Pool) *FlowStore {
	if pool == nil {
		panic("postgres: pool is required")
	}
	return &FlowStore{pool: pool}
}

const flowColumns = `name, description, priority, is_active,
	trigger_intents, trigger_keywords, entry_step, steps, created_at, updated_at`

func (s *FlowStore) ActiveFlows(ctx context.Context) ([]chat.Flow, error) {
	rows, err := db(ctx, s.pool).Query(ctx,
		`SELECT `+flowColumns+` FROM flows WHERE is_active ORDER BY priority DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flows []chat.Flow
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, *f)
	}
	return flows, rows.Err()
}

func (s *FlowStore) GetFlow(ctx context.Context, name string) (*chat.Flow, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+flowColumns+` FROM flows WHERE name = $1`, name)
	return scanFlow(row)
}

func (s *FlowStore) SaveFlow(ctx context.Context, f *chat.Flow) error {
	intents, err := json.Marshal(f.TriggerIntents)
	if err != nil {
		return err
	}
	keywords, err := json.Marshal(f.TriggerKeywords)
	if err != nil {
		return err
	}
	steps, err := json.Marshal(f.Steps)
	if err != nil {
		return err
	}

	_, err = db(ctx, s.pool).Exec(ctx, `
		INSERT INTO flows (`+flowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			priority = EXCLUDED.priority,
			is_active = EXCLUDED.is_active,
			trigger_intents = EXCLUDED.trigger_intents,
			trigger_keywords = EXCLUDED.trigger_keywords,
			entry_step = EXCLUDED.entry_step,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at`,
		f.Name, f.Description, f.Priority, f.Active,
		intents, keywords, f.Entry, steps, f.CreatedAt, f.UpdatedAt)
	return err
}

func scanFlow(row pgx.Row) (*chat.Flow, error) {
	var (
		f        chat.Flow
		intents  []byte
		keywords []byte
		steps    []byte
	)
	err := row.Scan(&f.Name, &f.Description, &f.Priority, &f.Active,
		&intents, &keywords, &f.Entry, &steps, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chat.ErrFlowNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(intents, &f.TriggerIntents); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(keywords, &f.TriggerKeywords); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(steps, &f.Steps); err != nil {
		return nil, err
	}
	return &f, nil
}

// ConfigStore persists the chatbot configuration.
type ConfigStore struct {
	pool *pgxpool.Pool
}

func NewConfigStore(pool *pgxpool.Pool) *ConfigStore {
	if pool == nil {
		panic("postgres: pool is required")
	}
	return &ConfigStore{pool: pool}
}

// ActiveConfig returns the stored active configuration, falling back to
// the built-in default when none exists yet.
func (s *ConfigStore) ActiveConfig(ctx context.Context) (chat.Config, error) {
	var cfg chat.Config
	err := db(ctx, s.pool).QueryRow(ctx, `
		SELECT name, default_model, temperature, max_tokens, context_window,
			max_conversation_length, auto_greet, is_active
		FROM chatbot_configurations
		WHERE is_active
		ORDER BY updated_at DESC LIMIT 1`).
		Scan(&cfg.Name, &cfg.DefaultModel, &cfg.Temperature, &cfg.MaxTokens,
			&cfg.ContextWindow, &cfg.MaxConversationLength, &cfg.AutoGreet, &cfg.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return chat.DefaultConfig(), nil
		}
		return chat.Config{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) SaveConfig(ctx context.Context, cfg chat.Config) error {
	_, err := db(ctx, s.pool).Exec(ctx, `
		INSERT INTO chatbot_configurations (name, default_model, temperature,
			max_tokens, context_window, max_conversation_length, auto_greet,
			is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (name) DO UPDATE SET
			default_model = EXCLUDED.default_model,
			temperature = EXCLUDED.temperature,
			max_tokens = EXCLUDED.max_tokens,
			context_window = EXCLUDED.context_window,
			max_conversation_length = EXCLUDED.max_conversation_length,
			auto_greet = EXCLUDED.auto_greet,
			is_active = EXCLUDED.is_active,
			updated_at = now()`,
		cfg.Name, cfg.DefaultModel, cfg.Temperature, cfg.MaxTokens,
		cfg.ContextWindow, cfg.MaxConversationLength, cfg.AutoGreet, cfg.Active)
	return err
}
