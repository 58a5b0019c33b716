package handlers

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/movedesk/chatbot/core/chat"
	"github.com/movedesk/chatbot/core/handler"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/core/response"
	"github.com/movedesk/chatbot/core/session"
	"github.com/movedesk/chatbot/middleware"
)

// Session exposes the visitor's own session over HTTP.
type Session struct {
	manager *session.Manager
	chat    *chat.Service
	log     *slog.Logger
}

// NewSession creates the session endpoints. chatSvc may be nil when
// conversation completion on logout is not wanted (tests).
func NewSession(manager *session.Manager, chatSvc *chat.Service, log *slog.Logger) *Session {
	if manager == nil {
		panic("handlers: session manager is required")
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Session{manager: manager, chat: chatSvc, log: log}
}

type sessionResponse struct {
	ID               uuid.UUID `json:"id"`
	DeviceType       string    `json:"device_type"`
	Authenticated    bool      `json:"authenticated"`
	PageViews        int       `json:"page_views"`
	ChatInteractions int       `json:"chat_interactions"`
	StartedAt        time.Time `json:"started_at"`
	LastActivity     time.Time `json:"last_activity"`
}

// Current returns the resolved session's public attributes.
func (h *Session) Current(ctx handler.Context) handler.Response {
	sess, ok := middleware.GetSession(ctx)
	if !ok {
		return response.Error(response.ErrNotFound)
	}
	return response.JSON(sessionResponse{
		ID:               sess.ID,
		DeviceType:       string(sess.DeviceType),
		Authenticated:    sess.IsAuthenticated(),
		PageViews:        sess.PageViews,
		ChatInteractions: sess.ChatInteractions,
		StartedAt:        sess.StartedAt,
		LastActivity:     sess.LastActivity,
	})
}

// End terminates the session (logout). The active conversation is completed
// first so its transcript gets delivered; completion failure is logged, the
// logout itself never fails for it.
func (h *Session) End(ctx handler.Context) handler.Response {
	sess, ok := middleware.GetSession(ctx)
	if !ok {
		return response.NoContent()
	}

	if h.chat != nil {
		if err := h.chat.CompleteBySession(ctx, sess.ID); err != nil {
			h.log.WarnContext(ctx, "failed to complete conversation on logout",
				logger.Component("http"),
				logger.SessionID(sess.ID.String()),
				logger.Error(err))
		}
	}

	if err := h.manager.End(ctx, sess, session.EndReasonLogout); err != nil {
		return response.Error(err)
	}
	return response.NoContent()
}

type summaryResponse struct {
	ActiveSessions   int `json:"active_sessions"`
	PageViews        int `json:"page_views"`
	ChatInteractions int `json:"chat_interactions"`
}

// Summary totals the authenticated user's active session activity.
// Anonymous sessions have nothing to aggregate and get 403.
func (h *Session) Summary(ctx handler.Context) handler.Response {
	sess, ok := middleware.GetSession(ctx)
	if !ok || !sess.IsAuthenticated() {
		return response.Error(response.ErrPermissionDenied)
	}

	summary, err := h.manager.Summarize(ctx, sess.UserID)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(summaryResponse{
		ActiveSessions:   summary.ActiveSessions,
		PageViews:        summary.PageViews,
		ChatInteractions: summary.ChatInteractions,
	})
}
