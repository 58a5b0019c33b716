// Package openai adapts the OpenAI chat completions API to the chat.Provider
// interface, classifying API failures so the retry policy and circuit
// breaker can tell transient trouble from caller mistakes.
package openai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/movedesk/chatbot/core/chat"
	"github.com/movedesk/chatbot/core/fault"
)

var (
	ErrMissingAPIKey = errors.New("openai: missing API key")
	ErrEmptyResponse = errors.New("openai: completion returned no choices")
)

// Config maps provider credentials and timeouts to environment variables.
type Config struct {
	APIKey  string        `env:"OPENAI_API_KEY,required"`
	BaseURL string        `env:"OPENAI_BASE_URL"`
	Timeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"30s"`
}

// Provider implements chat.Provider on the OpenAI chat completions API.
type Provider struct {
	client  openai.Client
	timeout time.Duration
}

// New creates the provider. The timeout bounds each API call independently
// of the caller's context.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client:  openai.NewClient(opts...),
		timeout: cfg.Timeout,
	}, nil
}

// Complete sends the conversation to the chat completions endpoint.
func (p *Provider) Complete(ctx context.Context, req chat.CompletionRequest) (chat.Completion, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case chat.RoleBot:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return chat.Completion{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return chat.Completion{}, fault.Unavailable(ErrEmptyResponse)
	}

	return chat.Completion{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// classify maps SDK and transport failures onto the fault taxonomy.
// Client mistakes are permanent so the retry policy gives up immediately;
// everything else is worth another attempt.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized,
			apiErr.StatusCode == http.StatusForbidden:
			return fault.Permission(err)
		case apiErr.StatusCode == http.StatusNotFound:
			return fault.NotFound(err)
		case apiErr.StatusCode == http.StatusRequestTimeout:
			return fault.Timeout(err)
		case apiErr.StatusCode >= http.StatusInternalServerError,
			apiErr.StatusCode == http.StatusTooManyRequests:
			return fault.Unavailable(err)
		case apiErr.StatusCode >= http.StatusBadRequest:
			return fault.Validation(err)
		}
		return fault.Unavailable(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fault.Timeout(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fault.Timeout(err)
		}
		return fault.Connection(err)
	}
	return fault.Connection(err)
}
