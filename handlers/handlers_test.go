package handlers_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/movedesk/chatbot/core/chat"
	"github.com/movedesk/chatbot/core/session"
)

// In-memory stores backing the endpoint tests.

type sessStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]session.Session
}

func newSessStore() *sessStore {
	return &sessStore{sessions: make(map[uuid.UUID]session.Session)}
}

func (s *sessStore) GetByID(_ context.Context, id uuid.UUID) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &sess, nil
}

func (s *sessStore) GetByKey(_ context.Context, key string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Key == key {
			out := sess
			return &out, nil
		}
	}
	return nil, session.ErrNotFound
}

func (s *sessStore) ActiveByUser(_ context.Context, userID uuid.UUID) ([]*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*session.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && !sess.IsEnded() {
			copied := sess
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.Before(out[j].LastActivity)
	})
	return out, nil
}

func (s *sessStore) Save(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.MarkSaved()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *sessStore) EndIdle(context.Context, time.Time, session.EndReason, int) (int64, error) {
	return 0, nil
}

func (s *sessStore) EndStartedBefore(context.Context, time.Time, session.EndReason, int) (int64, error) {
	return 0, nil
}

func (s *sessStore) DeleteEndedBefore(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

type convStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*chat.Conversation
	messages      map[uuid.UUID][]chat.Message
}

func newConvStore() *convStore {
	return &convStore{
		conversations: make(map[uuid.UUID]*chat.Conversation),
		messages:      make(map[uuid.UUID][]chat.Message),
	}
}

func (s *convStore) GetConversation(_ context.Context, id uuid.UUID) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *convStore) ActiveBySession(_ context.Context, sessionID uuid.UUID) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.SessionID == sessionID && c.Status == chat.StatusActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, chat.ErrConversationNotFound
}

func (s *convStore) SaveConversation(_ context.Context, c *chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.conversations[c.ID] = &cp
	return nil
}

func (s *convStore) AppendMessage(_ context.Context, c *chat.Conversation, m *chat.Message) error {
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
	cp := *c
	s.conversations[c.ID] = &cp
	return nil
}

func (s *convStore) RecentMessages(_ context.Context, conversationID uuid.UUID, limit int) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]chat.Message(nil), msgs...), nil
}

func (s *convStore) ArchiveInactive(context.Context, time.Time) (int64, error) { return 0, nil }

func (s *convStore) DeleteInactiveBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (s *convStore) SaveAIResponse(context.Context, *chat.AIResponse) error { return nil }

func (s *convStore) DeleteAIResponsesBefore(context.Context, time.Time) (int64, error) { return 0, nil }

type flowStore struct {
	mu    sync.Mutex
	flows map[string]chat.Flow
}

func newFlowStore() *flowStore {
	return &flowStore{flows: make(map[string]chat.Flow)}
}

func (s *flowStore) ActiveFlows(context.Context) ([]chat.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Flow
	for _, f := range s.flows {
		if f.Active {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (s *flowStore) GetFlow(_ context.Context, name string) (*chat.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[name]
	if !ok {
		return nil, chat.ErrFlowNotFound
	}
	return &f, nil
}

func (s *flowStore) SaveFlow(_ context.Context, f *chat.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.Name] = *f
	return nil
}

type cfgStore struct{}

func (cfgStore) ActiveConfig(context.Context) (chat.Config, error) {
	return chat.DefaultConfig(), nil
}

func (cfgStore) SaveConfig(context.Context, chat.Config) error { return nil }

type echoProvider struct{}

func (echoProvider) Complete(_ context.Context, req chat.CompletionRequest) (chat.Completion, error) {
	last := req.Messages[len(req.Messages)-1]
	return chat.Completion{
		Content:      "echo: " + last.Content,
		Model:        req.Model,
		PromptTokens: 10,
	}, nil
}
