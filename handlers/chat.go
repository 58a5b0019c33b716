// Package handlers implements the public chat API endpoints. Handlers stay
// thin: binding, sanitizing, and shaping responses; behavior lives in the
// core services.
package handlers

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/movedesk/chatbot/core/binder"
	"github.com/movedesk/chatbot/core/chat"
	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/core/response"
	"github.com/movedesk/chatbot/core/sanitizer"
	"github.com/movedesk/chatbot/middleware"
)

// historyLimitMax caps how many messages one history request may ask for.
const historyLimitMax = 100

// Chat exposes the chat service over HTTP.
type Chat struct {
	svc *chat.Service
	log *slog.Logger
}

// NewChat creates the chat endpoints around the service.
func NewChat(svc *chat.Service, log *slog.Logger) *Chat {
	if svc == nil {
		panic("handlers: chat service is required")
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Chat{svc: svc, log: log}
}

type messageRequest struct {
	Message string `json:"message"`
}

type messagePayload struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type replyResponse struct {
	ConversationID uuid.UUID      `json:"conversation_id"`
	Message        messagePayload `json:"message"`
	Source         string         `json:"source"`
}

// Message handles one visitor message and returns the bot's reply.
func (h *Chat) Message(ctx handler.Context) handler.Response {
	sess, ok := middleware.GetSession(ctx)
	if !ok {
		return response.Error(response.ErrPermissionDenied)
	}

	var req messageRequest
	if err := binder.JSON(ctx.Request(), &req); err != nil {
		return response.Error(response.ErrValidation.WithMessage(err.Error()))
	}

	content := sanitizer.ChatMessage(req.Message)
	reply, err := h.svc.Reply(ctx, sess.ID, sess.UserID, content)
	if err != nil {
		return response.Error(err)
	}

	return response.JSON(replyResponse{
		ConversationID: reply.ConversationID,
		Message:        toMessagePayload(reply.Message),
		Source:         reply.Source,
	})
}

// Greeting returns the scripted greeting, empty when auto-greet is off.
func (h *Chat) Greeting(ctx handler.Context) handler.Response {
	greeting, err := h.svc.Greeting(ctx)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(map[string]string{"greeting": greeting})
}

type historyResponse struct {
	ConversationID uuid.UUID        `json:"conversation_id"`
	Status         string           `json:"status"`
	Messages       []messagePayload `json:"messages"`
}

// History returns the session's active conversation transcript, oldest
// first. Sessions without one get an empty transcript rather than 404: the
// widget polls history before the first message is ever sent.
func (h *Chat) History(ctx handler.Context) handler.Response {
	sess, ok := middleware.GetSession(ctx)
	if !ok {
		return response.Error(response.ErrPermissionDenied)
	}

	limit, err := historyLimit(ctx.Request().URL.Query().Get("limit"))
	if err != nil {
		return response.Error(response.ErrValidation.WithMessage("limit must be a non-negative integer"))
	}

	conv, msgs, err := h.svc.History(ctx, sess.ID, limit)
	if errors.Is(err, chat.ErrConversationNotFound) {
		return response.JSON(historyResponse{Messages: []messagePayload{}})
	}
	if err != nil {
		return response.Error(err)
	}

	payload := historyResponse{
		ConversationID: conv.ID,
		Status:         string(conv.Status),
		Messages:       make([]messagePayload, 0, len(msgs)),
	}
	for _, m := range msgs {
		payload.Messages = append(payload.Messages, toMessagePayload(m))
	}
	return response.JSON(payload)
}

func historyLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, response.ErrValidation
	}
	if limit > historyLimitMax {
		limit = historyLimitMax
	}
	return limit, nil
}

func toMessagePayload(m chat.Message) messagePayload {
	return messagePayload{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
