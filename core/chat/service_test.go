package chat_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movedesk/chatbot/core/chat"
	"github.com/movedesk/chatbot/core/fault"
	"github.com/movedesk/chatbot/pkg/breaker"
	"github.com/movedesk/chatbot/pkg/retry"
)

type memConversationStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*chat.Conversation
	messages      map[uuid.UUID][]chat.Message
	aiResponses   []chat.AIResponse
}

func newMemConversationStore() *memConversationStore {
	return &memConversationStore{
		conversations: make(map[uuid.UUID]*chat.Conversation),
		messages:      make(map[uuid.UUID][]chat.Message),
	}
}

func (s *memConversationStore) GetConversation(_ context.Context, id uuid.UUID) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memConversationStore) ActiveBySession(_ context.Context, sessionID uuid.UUID) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []*chat.Conversation
	for _, c := range s.conversations {
		if c.SessionID == sessionID && c.Status == chat.StatusActive {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, chat.ErrConversationNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (s *memConversationStore) SaveConversation(_ context.Context, c *chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.conversations[c.ID] = &cp
	return nil
}

func (s *memConversationStore) AppendMessage(_ context.Context, c *chat.Conversation, m *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[c.ID] = append(s.messages[c.ID], *m)
	c.MessageCount++
	switch m.Role {
	case chat.RoleUser:
		c.UserMessageCount++
	case chat.RoleBot:
		c.BotMessageCount++
	}
	c.LastActivity = m.CreatedAt
	c.UpdatedAt = m.CreatedAt
	cp := *c
	s.conversations[c.ID] = &cp
	return nil
}

func (s *memConversationStore) RecentMessages(_ context.Context, conversationID uuid.UUID, limit int) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *memConversationStore) ArchiveInactive(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.conversations {
		if c.Status == chat.StatusActive && c.LastActivity.Before(cutoff) {
			c.Status = chat.StatusArchived
			n++
		}
	}
	return n, nil
}

func (s *memConversationStore) DeleteInactiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.conversations {
		if c.Status != chat.StatusActive && c.LastActivity.Before(cutoff) {
			delete(s.conversations, id)
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

func (s *memConversationStore) SaveAIResponse(_ context.Context, r *chat.AIResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiResponses = append(s.aiResponses, *r)
	return nil
}

func (s *memConversationStore) DeleteAIResponsesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []chat.AIResponse
	var n int64
	for _, r := range s.aiResponses {
		if r.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.aiResponses = kept
	return n, nil
}

func (s *memConversationStore) savedAIResponses() []chat.AIResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.AIResponse, len(s.aiResponses))
	copy(out, s.aiResponses)
	return out
}

type memFlowStore struct {
	mu    sync.Mutex
	flows map[string]chat.Flow
}

func newMemFlowStore(flows ...chat.Flow) *memFlowStore {
	s := &memFlowStore{flows: make(map[string]chat.Flow)}
	for _, f := range flows {
		s.flows[f.Name] = f
	}
	return s
}

func (s *memFlowStore) ActiveFlows(context.Context) ([]chat.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Flow
	for _, f := range s.flows {
		if f.Active {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *memFlowStore) GetFlow(_ context.Context, name string) (*chat.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[name]
	if !ok {
		return nil, chat.ErrFlowNotFound
	}
	return &f, nil
}

func (s *memFlowStore) SaveFlow(_ context.Context, f *chat.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.Name] = *f
	return nil
}

type memConfigStore struct {
	mu  sync.Mutex
	cfg *chat.Config
}

func (s *memConfigStore) ActiveConfig(context.Context) (chat.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return chat.DefaultConfig(), nil
	}
	return *s.cfg, nil
}

func (s *memConfigStore) SaveConfig(_ context.Context, cfg chat.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = &cfg
	return nil
}

type stubProvider struct {
	mu    sync.Mutex
	calls int
	fn    func(calls int, req chat.CompletionRequest) (chat.Completion, error)
}

func (p *stubProvider) Complete(_ context.Context, req chat.CompletionRequest) (chat.Completion, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	fn := p.fn
	p.mu.Unlock()
	return fn(n, req)
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func echoProvider() *stubProvider {
	return &stubProvider{fn: func(_ int, req chat.CompletionRequest) (chat.Completion, error) {
		last := req.Messages[len(req.Messages)-1]
		return chat.Completion{
			Content:          "echo: " + last.Content,
			Model:            req.Model,
			PromptTokens:     12,
			CompletionTokens: 8,
		}, nil
	}}
}

type serviceFixture struct {
	svc           *chat.Service
	conversations *memConversationStore
	provider      *stubProvider
	cb            *breaker.CircuitBreaker
}

func newServiceFixture(t *testing.T, provider *stubProvider) serviceFixture {
	t.Helper()

	conversations := newMemConversationStore()
	cb := breaker.New(breaker.Config{Name: "ai"})
	svc := chat.NewService(chat.ServiceParams{
		Conversations: conversations,
		Flows:         newMemFlowStore(chat.DefaultFlows()...),
		Configs:       &memConfigStore{},
		Provider:      provider,
		Breaker:       cb,
		Retry:         retry.Config{MaxAttempts: 1},
	})
	return serviceFixture{svc: svc, conversations: conversations, provider: provider, cb: cb}
}

func TestServiceReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("flow keyword answers without the provider", func(t *testing.T) {
		t.Parallel()

		fx := newServiceFixture(t, echoProvider())
		reply, err := fx.svc.Reply(ctx, uuid.New(), uuid.Nil, "hello")
		require.NoError(t, err)

		assert.Equal(t, "flow", reply.Source)
		assert.Equal(t, "greeting", reply.Message.FlowName)
		assert.Contains(t, reply.Message.Content, "Elate Moving")
		assert.Zero(t, fx.provider.callCount())

		conv, err := fx.conversations.GetConversation(ctx, reply.ConversationID)
		require.NoError(t, err)
		assert.Equal(t, "greeting", conv.CurrentFlow)
		assert.Equal(t, 2, conv.MessageCount)
		assert.Equal(t, 1, conv.UserMessageCount)
		assert.Equal(t, 1, conv.BotMessageCount)
	})

	t.Run("unmatched message goes to the provider", func(t *testing.T) {
		t.Parallel()

		fx := newServiceFixture(t, echoProvider())
		reply, err := fx.svc.Reply(ctx, uuid.New(), uuid.Nil, "do you operate on sundays")
		require.NoError(t, err)

		assert.Equal(t, "ai", reply.Source)
		assert.Equal(t, "echo: do you operate on sundays", reply.Message.Content)
		assert.Equal(t, "gpt-4", reply.Message.Model)
		assert.Equal(t, 12, reply.Message.PromptTokens)
		assert.Equal(t, 8, reply.Message.ResponseTokens)
		assert.Equal(t, 1, fx.provider.callCount())
	})

	t.Run("provider reply persists a call record", func(t *testing.T) {
		t.Parallel()

		fx := newServiceFixture(t, echoProvider())
		reply, err := fx.svc.Reply(ctx, uuid.New(), uuid.Nil, "do you operate on sundays")
		require.NoError(t, err)
		require.Equal(t, "ai", reply.Source)

		records := fx.conversations.savedAIResponses()
		require.Len(t, records, 1)
		rec := records[0]
		assert.Equal(t, reply.Message.ID, rec.MessageID)
		assert.Equal(t, "gpt-4", rec.Model)
		assert.Contains(t, rec.Prompt, "user: do you operate on sundays")
		assert.Contains(t, rec.Prompt, "system: ")
		assert.Equal(t, reply.Message.Content, rec.Response)
		assert.Equal(t, 12, rec.PromptTokens)
		assert.Equal(t, 8, rec.CompletionTokens)
		assert.False(t, rec.CreatedAt.IsZero())
	})

	t.Run("flow reply leaves no call record", func(t *testing.T) {
		t.Parallel()

		fx := newServiceFixture(t, echoProvider())
		reply, err := fx.svc.Reply(ctx, uuid.New(), uuid.Nil, "hello")
		require.NoError(t, err)
		require.Equal(t, "flow", reply.Source)

		assert.Empty(t, fx.conversations.savedAIResponses())
	})

	t.Run("empty message is a validation error", func(t *testing.T) {
		t.Parallel()

		fx := newServiceFixture(t, echoProvider())
		_, err := fx.svc.Reply(ctx, uuid.New(), uuid.Nil, "   ")
		require.ErrorIs(t, err, chat.ErrEmptyMessage)
		assert.Equal(t, fault.KindValidation, fault.KindOf(err))
	})

	t.Run("oversized message is a validation error", func(t *testing.T) {
		t.Parallel()

		fx := newServiceFixture(t, echoProvider())
		_, err := fx.svc.Reply(ctx, uuid.New(), uuid.Nil, strings.Repeat("a", 4001))
		require.ErrorIs(t, err, chat.ErrMessageTooLong)
		assert.Equal(t, fault.KindValidation, fault.KindOf(err))
	})

	t.Run("conversation continues within a session", func(t *testing.T) {
		t.Parallel()

		fx := newServiceFixture(t, echoProvider())
		sessionID := uuid.New()

		first, err := fx.svc.Reply(ctx, sessionID, uuid.Nil, "do you ship pianos")
		require.NoError(t, err)
		second, err := fx.svc.Reply(ctx, sessionID, uuid.Nil, "and what about artwork")
		require.NoError(t, err)

		assert.Equal(t, first.ConversationID, second.ConversationID)
	})

	t.Run("conversation at the length cap rolls over", func(t *testing.T) {
		t.Parallel()

		fx := newServiceFixture(t, echoProvider())
		sessionID := uuid.New()

		first, err := fx.svc.Reply(ctx, sessionID, uuid.Nil, "do you ship pianos")
		require.NoError(t, err)

		// Inflate the counter to the cap so the next reply rolls over.
		conv, err := fx.conversations.GetConversation(ctx, first.ConversationID)
		require.NoError(t, err)
		conv.MessageCount = chat.DefaultConfig().MaxConversationLength
		require.NoError(t, fx.conversations.SaveConversation(ctx, conv))

		second, err := fx.svc.Reply(ctx, sessionID, uuid.Nil, "one more question")
		require.NoError(t, err)
		assert.NotEqual(t, first.ConversationID, second.ConversationID)

		old, err := fx.conversations.GetConversation(ctx, first.ConversationID)
		require.NoError(t, err)
		assert.Equal(t, chat.StatusCompleted, old.Status)
	})

	t.Run("provider history replay excludes the new message duplicate", func(t *testing.T) {
		t.Parallel()

		var lastReq chat.CompletionRequest
		provider := &stubProvider{fn: func(_ int, req chat.CompletionRequest) (chat.Completion, error) {
			lastReq = req
			return chat.Completion{Content: "ok", Model: req.Model}, nil
		}}
		fx := newServiceFixture(t, provider)
		sessionID := uuid.New()

		_, err := fx.svc.Reply(ctx, sessionID, uuid.Nil, "first question")
		require.NoError(t, err)
		_, err = fx.svc.Reply(ctx, sessionID, uuid.Nil, "second question")
		require.NoError(t, err)

		var occurrences int
		for _, m := range lastReq.Messages {
			if m.Content == "second question" {
				occurrences++
			}
		}
		assert.Equal(t, 1, occurrences)
		assert.Equal(t, chat.RoleUser, lastReq.Messages[len(lastReq.Messages)-1].Role)
	})
}

func TestServiceReplyCircuitBreaker(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	failing := &stubProvider{fn: func(int, chat.CompletionRequest) (chat.Completion, error) {
		return chat.Completion{}, fault.Timeout(context.DeadlineExceeded)
	}}
	fx := newServiceFixture(t, failing)

	// Failures below the threshold surface the provider error.
	for i := 0; i < 5; i++ {
		_, err := fx.svc.Reply(ctx, uuid.New(), uuid.Nil, "anything unscripted")
		require.Error(t, err)
		require.NotErrorIs(t, err, breaker.ErrOpen)
		assert.Equal(t, fault.KindTimeout, fault.KindOf(err))
	}
	assert.Equal(t, breaker.StateOpen, fx.cb.State())
	callsWhenOpened := fx.provider.callCount()

	// Open circuit rejects without touching the provider.
	_, err := fx.svc.Reply(ctx, uuid.New(), uuid.Nil, "anything unscripted")
	require.ErrorIs(t, err, breaker.ErrOpen)
	assert.Equal(t, callsWhenOpened, fx.provider.callCount())
}

func TestServiceReplyRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flaky := &stubProvider{fn: func(calls int, req chat.CompletionRequest) (chat.Completion, error) {
		if calls < 3 {
			return chat.Completion{}, fault.Connection(assert.AnError)
		}
		return chat.Completion{Content: "finally", Model: req.Model}, nil
	}}

	conversations := newMemConversationStore()
	cb := breaker.New(breaker.Config{Name: "ai"})
	svc := chat.NewService(chat.ServiceParams{
		Conversations: conversations,
		Flows:         newMemFlowStore(chat.DefaultFlows()...),
		Configs:       &memConfigStore{},
		Provider:      flaky,
		Breaker:       cb,
		Retry:         retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, Jitter: 0.01},
	})

	reply, err := svc.Reply(ctx, uuid.New(), uuid.Nil, "anything unscripted")
	require.NoError(t, err)
	assert.Equal(t, "finally", reply.Message.Content)
	assert.Equal(t, 3, flaky.callCount())
	// One retried operation counts as a single breaker outcome.
	assert.Equal(t, breaker.StateClosed, cb.State())
}

func TestServiceGreeting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("auto-greet returns the scripted greeting", func(t *testing.T) {
		t.Parallel()

		fx := newServiceFixture(t, echoProvider())
		greeting, err := fx.svc.Greeting(ctx)
		require.NoError(t, err)
		assert.Contains(t, greeting, "Welcome to Elate Moving")
	})

	t.Run("disabled auto-greet stays silent", func(t *testing.T) {
		t.Parallel()

		configs := &memConfigStore{}
		cfg := chat.DefaultConfig()
		cfg.AutoGreet = false
		require.NoError(t, configs.SaveConfig(ctx, cfg))

		svc := chat.NewService(chat.ServiceParams{
			Conversations: newMemConversationStore(),
			Flows:         newMemFlowStore(chat.DefaultFlows()...),
			Configs:       configs,
			Provider:      echoProvider(),
			Breaker:       breaker.New(breaker.Config{Name: "ai"}),
		})

		greeting, err := svc.Greeting(ctx)
		require.NoError(t, err)
		assert.Empty(t, greeting)
	})
}

func TestServiceCompleteBySession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newServiceFixture(t, echoProvider())
	sessionID := uuid.New()

	reply, err := fx.svc.Reply(ctx, sessionID, uuid.Nil, "do you ship pianos")
	require.NoError(t, err)

	require.NoError(t, fx.svc.CompleteBySession(ctx, sessionID))

	conv, err := fx.conversations.GetConversation(ctx, reply.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, chat.StatusCompleted, conv.Status)

	// No active conversation is not an error.
	assert.NoError(t, fx.svc.CompleteBySession(ctx, uuid.New()))
}

func TestServicePruneInactive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newServiceFixture(t, echoProvider())
	sessionID := uuid.New()

	reply, err := fx.svc.Reply(ctx, sessionID, uuid.Nil, "do you operate on sundays")
	require.NoError(t, err)
	require.NoError(t, fx.svc.CompleteBySession(ctx, sessionID))
	require.Len(t, fx.conversations.savedAIResponses(), 1)

	// A cutoff in the past leaves everything in place.
	pruned, err := fx.svc.PruneInactive(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, pruned)

	pruned, err = fx.svc.PruneInactive(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned, "one conversation and one call record")

	_, err = fx.conversations.GetConversation(ctx, reply.ConversationID)
	assert.ErrorIs(t, err, chat.ErrConversationNotFound)
	assert.Empty(t, fx.conversations.savedAIResponses())
}

func TestSeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flows := newMemFlowStore()

	require.NoError(t, chat.Seed(ctx, flows))
	active, err := flows.ActiveFlows(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 5)

	// Seeding again must not clobber operator edits.
	edited, err := flows.GetFlow(ctx, "greeting")
	require.NoError(t, err)
	edited.Priority = 42
	require.NoError(t, flows.SaveFlow(ctx, edited))

	require.NoError(t, chat.Seed(ctx, flows))
	kept, err := flows.GetFlow(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, 42, kept.Priority)
}
