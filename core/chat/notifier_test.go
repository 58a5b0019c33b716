package chat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movedesk/chatbot/core/chat"
	"github.com/movedesk/chatbot/core/email"
	"github.com/movedesk/chatbot/core/fault"
	"github.com/movedesk/chatbot/pkg/breaker"
)

type captureSender struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	err  error
}

func (s *captureSender) SendEmail(_ context.Context, params email.SendEmailParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestTranscriptNotifierSend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := &captureSender{}
	notifier := chat.NewTranscriptNotifier(
		sender,
		breaker.New(breaker.Config{Name: "email"}),
		"support@elate-moving.com",
		nil,
	)

	conv := &chat.Conversation{
		ID:               uuid.New(),
		UserMessageCount: 1,
		MessageCount:     2,
		CreatedAt:        time.Now(),
	}
	msgs := []chat.Message{
		{Role: chat.RoleUser, Content: "price for a <big> move?", CreatedAt: time.Now()},
		{Role: chat.RoleBot, Content: "happy to help", CreatedAt: time.Now()},
	}

	require.NoError(t, notifier.Send(ctx, conv, msgs))
	require.Equal(t, 1, sender.count())

	sent := sender.sent[0]
	assert.Equal(t, "support@elate-moving.com", sent.SendTo)
	assert.Equal(t, "chat-transcript", sent.Tag)
	assert.Contains(t, sent.Subject, conv.ID.String())
	assert.Contains(t, sent.BodyHTML, "&lt;big&gt;")
	assert.Contains(t, sent.BodyHTML, "Visitor")
	assert.Contains(t, sent.BodyHTML, "Assistant")
}

func TestTranscriptNotifierSkipsEmptyConversations(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	notifier := chat.NewTranscriptNotifier(
		sender,
		breaker.New(breaker.Config{Name: "email"}),
		"support@elate-moving.com",
		nil,
	)

	conv := &chat.Conversation{ID: uuid.New()}
	require.NoError(t, notifier.Send(context.Background(), conv, nil))
	assert.Zero(t, sender.count())
}

func TestCompleteBySessionDegradesOnNotifierFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := &captureSender{err: fault.Unavailable(assert.AnError)}
	conversations := newMemConversationStore()

	svc := chat.NewService(chat.ServiceParams{
		Conversations: conversations,
		Flows:         newMemFlowStore(chat.DefaultFlows()...),
		Configs:       &memConfigStore{},
		Provider:      echoProvider(),
		Breaker:       breaker.New(breaker.Config{Name: "ai"}),
		Notifier: chat.NewTranscriptNotifier(
			sender,
			breaker.New(breaker.Config{Name: "email"}),
			"support@elate-moving.com",
			nil,
		),
	})

	sessionID := uuid.New()
	reply, err := svc.Reply(ctx, sessionID, uuid.Nil, "do you ship pianos")
	require.NoError(t, err)

	// Broken email delivery must not surface to the caller.
	require.NoError(t, svc.CompleteBySession(ctx, sessionID))

	conv, err := conversations.GetConversation(ctx, reply.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, chat.StatusCompleted, conv.Status)
}
