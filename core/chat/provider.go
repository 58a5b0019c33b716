package chat

import "context"

// PromptMessage is one turn of conversation context sent to the provider.
type PromptMessage struct {
	Role    Role
	Content string
}

// CompletionRequest is a single generation request to the AI provider.
type CompletionRequest struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// System is the instruction framing the assistant's persona.
	System string

	// Messages is the conversation context, oldest first, ending with the
	// visitor message to answer.
	Messages []PromptMessage
}

// Completion is the provider's answer with its usage metadata.
type Completion struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Provider generates chat completions. Implementations classify their
// failures with core/fault so the retry policy and error mapping can
// dispatch without knowing the SDK. The OpenAI-backed implementation lives
// in integration/ai/openai.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}
