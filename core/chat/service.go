package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/movedesk/chatbot/core/fault"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/pkg/breaker"
	"github.com/movedesk/chatbot/pkg/retry"
)

const (
	// maxMessageLen bounds a single visitor message.
	maxMessageLen = 4000

	systemPrompt = "You are a helpful customer support assistant for Elate Moving, " +
		"a professional moving company. Answer questions about moving services, " +
		"quotes, scheduling, and logistics. Be concise and friendly. If a question " +
		"is outside moving services, politely redirect the visitor."
)

// Service handles visitor messages: scripted flows first, the AI provider
// behind the circuit breaker and retry policy otherwise.
type Service struct {
	conversations ConversationStore
	flows         FlowStore
	configs       ConfigStore
	provider      Provider
	cb            *breaker.CircuitBreaker
	retryCfg      retry.Config
	notifier      *TranscriptNotifier
	log           *slog.Logger
}

// ServiceParams collects the Service dependencies.
type ServiceParams struct {
	Conversations ConversationStore
	Flows         FlowStore
	Configs       ConfigStore
	Provider      Provider

	// Breaker guards the provider. Required so an unhealthy provider
	// cannot stall every request for its full timeout.
	Breaker *breaker.CircuitBreaker

	// Retry configures provider call retries. Zero value uses defaults.
	Retry retry.Config

	// Notifier emails transcripts of completed conversations. Optional;
	// nil disables notifications.
	Notifier *TranscriptNotifier

	Logger *slog.Logger
}

// NewService creates the chat service. Panics on missing dependencies, as
// wiring bugs should fail at startup rather than on the first message.
func NewService(p ServiceParams) *Service {
	if p.Conversations == nil || p.Flows == nil || p.Configs == nil {
		panic("chat: stores are required")
	}
	if p.Provider == nil {
		panic("chat: provider is required")
	}
	if p.Breaker == nil {
		panic("chat: breaker is required")
	}
	if p.Logger == nil {
		p.Logger = logger.NewDiscard()
	}
	return &Service{
		conversations: p.Conversations,
		flows:         p.Flows,
		configs:       p.Configs,
		provider:      p.Provider,
		cb:            p.Breaker,
		retryCfg:      p.Retry,
		notifier:      p.Notifier,
		log:           p.Logger,
	}
}

// Reply handles one visitor message within the given session and returns
// the bot's answer. The visitor message and the reply are both persisted.
func (s *Service) Reply(ctx context.Context, sessionID, userID uuid.UUID, content string) (Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Reply{}, fault.Validation(ErrEmptyMessage)
	}
	if len(content) > maxMessageLen {
		return Reply{}, fault.Validation(ErrMessageTooLong)
	}

	cfg, err := s.configs.ActiveConfig(ctx)
	if err != nil {
		return Reply{}, err
	}

	conv, err := s.resolveConversation(ctx, sessionID, userID, cfg)
	if err != nil {
		return Reply{}, err
	}

	userMsg := &Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Role:           RoleUser,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := s.conversations.AppendMessage(ctx, conv, userMsg); err != nil {
		return Reply{}, err
	}

	botMsg, record, source, err := s.answer(ctx, conv, cfg, content)
	if err != nil {
		return Reply{}, err
	}
	if err := s.conversations.AppendMessage(ctx, conv, botMsg); err != nil {
		return Reply{}, err
	}

	if record != nil {
		// The reply already stands; the audit record is best effort.
		if err := s.conversations.SaveAIResponse(ctx, record); err != nil {
			s.log.ErrorContext(ctx, "failed to save ai response record",
				logger.Component("chat"),
				logger.ConversationID(conv.ID.String()),
				logger.Error(err))
		}
	}

	s.log.InfoContext(ctx, "reply produced",
		logger.Component("chat"),
		logger.ConversationID(conv.ID.String()),
		slog.String("source", source),
		logger.Duration(botMsg.ProcessingTime))

	return Reply{ConversationID: conv.ID, Message: *botMsg, Source: source}, nil
}

// Greeting returns the scripted greeting when auto-greet is enabled,
// or empty when the widget should stay silent until the visitor speaks.
func (s *Service) Greeting(ctx context.Context) (string, error) {
	cfg, err := s.configs.ActiveConfig(ctx)
	if err != nil {
		return "", err
	}
	if !cfg.AutoGreet {
		return "", nil
	}

	flow, err := s.flows.GetFlow(ctx, "greeting")
	if err != nil {
		return "", err
	}
	step, ok := flow.Step(flow.Entry)
	if !ok {
		return "", ErrFlowNotFound
	}
	return step.Content, nil
}

// History returns the session's active conversation and its messages,
// oldest first. A limit of 0 returns the whole conversation. Sessions
// without an active conversation get ErrConversationNotFound.
func (s *Service) History(ctx context.Context, sessionID uuid.UUID, limit int) (*Conversation, []Message, error) {
	conv, err := s.conversations.ActiveBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.conversations.RecentMessages(ctx, conv.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

// CompleteBySession completes the session's active conversation, if any.
// Called when a session ends so stale conversations do not linger active.
func (s *Service) CompleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	conv, err := s.conversations.ActiveBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil
		}
		return err
	}
	s.complete(conv)
	if err := s.conversations.SaveConversation(ctx, conv); err != nil {
		return err
	}
	s.notifyTranscript(ctx, conv)
	return nil
}

// ArchiveInactive archives active conversations idle since cutoff.
// Called by the cleanup scheduler.
func (s *Service) ArchiveInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.conversations.ArchiveInactive(ctx, cutoff)
}

// PruneInactive deletes completed and archived conversations, with their
// messages, idle since cutoff. Provider call records older than the cutoff
// go with them. Retention boundary for stored transcripts and prompts.
func (s *Service) PruneInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	records, err := s.conversations.DeleteAIResponsesBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	convs, err := s.conversations.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		return records, err
	}
	return records + convs, nil
}

// resolveConversation finds the session's active conversation or starts a
// new one. Conversations at the length cap are completed and replaced.
func (s *Service) resolveConversation(ctx context.Context, sessionID, userID uuid.UUID, cfg Config) (*Conversation, error) {
	conv, err := s.conversations.ActiveBySession(ctx, sessionID)
	switch {
	case err == nil:
		if cfg.MaxConversationLength > 0 && conv.MessageCount >= cfg.MaxConversationLength {
			s.complete(conv)
			if err := s.conversations.SaveConversation(ctx, conv); err != nil {
				return nil, err
			}
			s.notifyTranscript(ctx, conv)
			break // fall through to creation
		}
		return conv, nil
	case errors.Is(err, ErrConversationNotFound):
	default:
		return nil, err
	}

	now := time.Now()
	conv = &Conversation{
		ID:           uuid.New(),
		SessionID:    sessionID,
		UserID:       userID,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
	}
	if err := s.conversations.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) complete(conv *Conversation) {
	conv.Status = StatusCompleted
	conv.CompletedAt = time.Now()
	conv.UpdatedAt = conv.CompletedAt
}

// answer produces the bot message: a scripted flow step when one matches,
// the AI provider otherwise. Provider-backed answers also return the call
// record; flow answers return a nil record.
func (s *Service) answer(ctx context.Context, conv *Conversation, cfg Config, content string) (*Message, *AIResponse, string, error) {
	flows, err := s.flows.ActiveFlows(ctx)
	if err != nil {
		return nil, nil, "", err
	}

	if flow := MatchFlow(flows, content); flow != nil {
		step, ok := flow.Step(flow.Entry)
		if !ok {
			return nil, nil, "", ErrFlowNotFound
		}
		conv.CurrentFlow = flow.Name
		return &Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			Role:           RoleBot,
			Content:        step.Content,
			FlowName:       flow.Name,
			CreatedAt:      time.Now(),
		}, nil, "flow", nil
	}

	conv.CurrentFlow = ""
	return s.generate(ctx, conv, cfg, content)
}

// generate calls the provider through the breaker. Retries happen inside
// the breaker so one exhausted operation records one failure, and an open
// circuit rejects instantly without burning retry budget.
func (s *Service) generate(ctx context.Context, conv *Conversation, cfg Config, content string) (*Message, *AIResponse, string, error) {
	history, err := s.conversations.RecentMessages(ctx, conv.ID, cfg.ContextWindow)
	if err != nil {
		return nil, nil, "", err
	}

	req := CompletionRequest{
		Model:       cfg.DefaultModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		System:      systemPrompt,
		Messages:    buildPrompt(history, content),
	}

	started := time.Now()
	var completion Completion
	err = s.cb.Do(ctx, func(ctx context.Context) error {
		var callErr error
		completion, callErr = s.completeWithRetry(ctx, req)
		return callErr
	})
	if err != nil {
		s.log.ErrorContext(ctx, "provider call failed",
			logger.Component("chat"),
			logger.Dependency("ai"),
			logger.ConversationID(conv.ID.String()),
			logger.Error(err))
		return nil, nil, "", err
	}

	elapsed := time.Since(started)
	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Role:           RoleBot,
		Content:        completion.Content,
		Model:          completion.Model,
		PromptTokens:   completion.PromptTokens,
		ResponseTokens: completion.CompletionTokens,
		ProcessingTime: elapsed,
		CreatedAt:      time.Now(),
	}
	record := &AIResponse{
		ID:               uuid.New(),
		MessageID:        msg.ID,
		Model:            completion.Model,
		Prompt:           renderPrompt(req),
		Response:         completion.Content,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		ProcessingTime:   elapsed,
		CreatedAt:        msg.CreatedAt,
	}
	return msg, record, "ai", nil
}

func (s *Service) completeWithRetry(ctx context.Context, req CompletionRequest) (Completion, error) {
	var completion Completion
	cfg := s.retryCfg
	cfg.OnRetry = func(attempt int, err error) {
		s.log.WarnContext(ctx, "provider call retried",
			logger.Component("chat"),
			logger.Dependency("ai"),
			logger.RetryCount(attempt-1),
			logger.Error(err))
	}
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		var callErr error
		completion, callErr = s.provider.Complete(ctx, req)
		return callErr
	})
	return completion, err
}

// renderPrompt flattens the completion request into the audited prompt text,
// one "role: content" line per message with the system prompt first.
func renderPrompt(req CompletionRequest) string {
	var b strings.Builder
	b.WriteString("system: ")
	b.WriteString(req.System)
	for _, m := range req.Messages {
		b.WriteString("\n")
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// buildPrompt replays the stored context and appends the new message.
// The just-persisted copy of the visitor message is dropped from history
// to avoid sending it twice.
func buildPrompt(history []Message, content string) []PromptMessage {
	msgs := make([]PromptMessage, 0, len(history)+1)
	for _, m := range history {
		if m.Role == RoleUser && m.Content == content {
			continue
		}
		msgs = append(msgs, PromptMessage{Role: m.Role, Content: m.Content})
	}
	return append(msgs, PromptMessage{Role: RoleUser, Content: content})
}
