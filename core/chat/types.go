package chat

import (
	"time"

	"github.com/google/uuid"
)

// ConversationStatus tracks a conversation's lifecycle.
type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusCompleted ConversationStatus = "completed"
	StatusArchived  ConversationStatus = "archived"
)

// Conversation groups the messages exchanged within one session.
type Conversation struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	UserID    uuid.UUID // uuid.Nil for anonymous visitors

	Title  string
	Status ConversationStatus

	// CurrentFlow is the name of the scripted flow the conversation is in,
	// empty when the AI is driving.
	CurrentFlow string

	MessageCount     int
	UserMessageCount int
	BotMessageCount  int

	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastActivity time.Time
	CompletedAt  time.Time
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
	RoleSystem Role = "system"
)

// Message is a single utterance in a conversation. Bot messages carry the
// AI generation metadata used for cost tracking and quality review.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID

	Role    Role
	Content string

	// AI metadata, populated for bot messages produced by the provider.
	Model          string
	PromptTokens   int
	ResponseTokens int
	ProcessingTime time.Duration

	// FlowName is set when the content came from a scripted flow instead
	// of the provider.
	FlowName string

	CreatedAt time.Time
}

// AIResponse records one provider call that produced a bot message. The
// full prompt is kept alongside the response for prompt auditing and token
// accounting; the bot Message carries only the rendered content.
type AIResponse struct {
	ID        uuid.UUID
	MessageID uuid.UUID

	Model    string
	Prompt   string
	Response string

	PromptTokens     int
	CompletionTokens int
	ProcessingTime   time.Duration

	CreatedAt time.Time
}

// FlowStep is one node of a scripted conversation flow.
type FlowStep struct {
	Type    string `json:"type"` // "message" or "question"
	Content string `json:"content"`
	Next    string `json:"next"`
}

// Flow is a scripted conversation path triggered by keywords or intents.
// Higher priority flows win when several match.
type Flow struct {
	Name        string
	Description string
	Priority    int
	Active      bool

	TriggerIntents  []string
	TriggerKeywords []string

	// Steps keyed by step name; Entry names the first step.
	Entry string
	Steps map[string]FlowStep

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Step returns the named step and whether it exists.
func (f Flow) Step(name string) (FlowStep, bool) {
	s, ok := f.Steps[name]
	return s, ok
}

// Config is the active chatbot configuration, stored so operators can tune
// behavior without a deploy.
type Config struct {
	Name string

	// AI generation parameters.
	DefaultModel string
	Temperature  float64
	MaxTokens    int

	// ContextWindow is how many recent messages are replayed to the
	// provider as conversation context.
	ContextWindow int

	// MaxConversationLength caps messages per conversation; beyond it the
	// conversation is completed and a new one starts.
	MaxConversationLength int

	AutoGreet bool
	Active    bool
}

// DefaultConfig mirrors the seeded production configuration.
func DefaultConfig() Config {
	return Config{
		Name:                  "default",
		DefaultModel:          "gpt-4",
		Temperature:           0.7,
		MaxTokens:             1000,
		ContextWindow:         10,
		MaxConversationLength: 50,
		AutoGreet:             true,
		Active:                true,
	}
}

// Reply is the outcome of handling one visitor message.
type Reply struct {
	ConversationID uuid.UUID
	Message        Message

	// Source reports what produced the content: "flow" or "ai".
	Source string
}
