package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConversationStore persists conversations and their messages.
// Implementations must return ErrConversationNotFound for missing rows.
type ConversationStore interface {
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)

	// ActiveBySession returns the session's current active conversation,
	// or ErrConversationNotFound when there is none.
	ActiveBySession(ctx context.Context, sessionID uuid.UUID) (*Conversation, error)

	SaveConversation(ctx context.Context, c *Conversation) error

	// AppendMessage stores the message and updates the parent
	// conversation's counters and last activity atomically.
	AppendMessage(ctx context.Context, c *Conversation, m *Message) error

	// RecentMessages returns up to limit messages of the conversation,
	// newest last, for provider context replay. A limit of 0 returns the
	// whole conversation.
	RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)

	// ArchiveInactive archives active conversations without activity since
	// cutoff. Returns the number archived.
	ArchiveInactive(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteInactiveBefore removes completed and archived conversations,
	// with their messages, whose last activity is before cutoff. Retention
	// boundary for stored transcripts. Returns the number deleted.
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// SaveAIResponse stores the provider call record for a bot message.
	SaveAIResponse(ctx context.Context, r *AIResponse) error

	// DeleteAIResponsesBefore removes provider call records created before
	// cutoff. Retention boundary for stored prompts. Returns the number
	// deleted.
	DeleteAIResponsesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// FlowStore persists scripted conversation flows.
type FlowStore interface {
	ActiveFlows(ctx context.Context) ([]Flow, error)
	GetFlow(ctx context.Context, name string) (*Flow, error)
	SaveFlow(ctx context.Context, f *Flow) error
}

// ConfigStore persists the chatbot configuration.
type ConfigStore interface {
	// ActiveConfig returns the active configuration, or the built-in
	// default when none has been stored.
	ActiveConfig(ctx context.Context) (Config, error)
	SaveConfig(ctx context.Context, cfg Config) error
}
