package chat

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/movedesk/chatbot/core/email"
	"github.com/movedesk/chatbot/core/logger"
	"github.com/movedesk/chatbot/pkg/async"
	"github.com/movedesk/chatbot/pkg/breaker"
)

// transcriptDeliveryTimeout bounds how long a completing request waits for
// the transcript email before leaving it to finish in the background.
const transcriptDeliveryTimeout = 5 * time.Second

// TranscriptNotifier emails completed conversation transcripts to the
// support team. Delivery goes through its own circuit breaker so a broken
// email provider cannot slow down chat handling.
type TranscriptNotifier struct {
	sender email.EmailSender
	cb     *breaker.CircuitBreaker
	to     string
	log    *slog.Logger
}

// NewTranscriptNotifier panics on missing dependencies or an undeliverable
// recipient address.
func NewTranscriptNotifier(sender email.EmailSender, cb *breaker.CircuitBreaker, to string, log *slog.Logger) *TranscriptNotifier {
	if sender == nil {
		panic("chat: email sender is required")
	}
	if cb == nil {
		panic("chat: email breaker is required")
	}
	if !email.ValidAddress(to) {
		panic("chat: transcript recipient must be a valid email address")
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &TranscriptNotifier{sender: sender, cb: cb, to: to, log: log}
}

// Send emails the conversation transcript. Conversations without visitor
// messages are skipped.
func (n *TranscriptNotifier) Send(ctx context.Context, conv *Conversation, msgs []Message) error {
	if conv.UserMessageCount == 0 {
		return nil
	}

	params := email.SendEmailParams{
		SendTo:   n.to,
		Subject:  fmt.Sprintf("Chat transcript %s", conv.ID),
		BodyHTML: renderTranscript(conv, msgs),
		Tag:      "chat-transcript",
	}
	return n.cb.Do(ctx, func(ctx context.Context) error {
		return n.sender.SendEmail(ctx, params)
	})
}

func renderTranscript(conv *Conversation, msgs []Message) string {
	var b strings.Builder
	b.WriteString("<h2>Conversation transcript</h2>")
	fmt.Fprintf(&b, "<p>Conversation %s, started %s, %d messages.</p>",
		conv.ID, conv.CreatedAt.Format(time.RFC1123), conv.MessageCount)
	b.WriteString("<hr>")
	for _, m := range msgs {
		fmt.Fprintf(&b, "<p><strong>%s</strong> (%s):<br>%s</p>",
			roleLabel(m.Role),
			m.CreatedAt.Format("15:04:05"),
			html.EscapeString(m.Content))
	}
	return b.String()
}

func roleLabel(r Role) string {
	switch r {
	case RoleUser:
		return "Visitor"
	case RoleBot:
		return "Assistant"
	default:
		return "System"
	}
}

// notifyTranscript delivers the transcript of a just-completed
// conversation. Delivery runs off the request path with a bounded wait so a
// hung email provider cannot stall completion, and failure degrades to a
// log line, never an error to the visitor.
func (s *Service) notifyTranscript(ctx context.Context, conv *Conversation) {
	if s.notifier == nil {
		return
	}
	msgs, err := s.conversations.RecentMessages(ctx, conv.ID, 0)
	if err == nil {
		future := async.Exec(ctx, msgs, func(ctx context.Context, msgs []Message) error {
			return s.notifier.Send(ctx, conv, msgs)
		})
		err = future.AwaitWithTimeout(transcriptDeliveryTimeout)
	}
	if err != nil {
		s.log.WarnContext(ctx, "transcript notification failed",
			logger.Component("chat"),
			logger.Dependency("email"),
			logger.ConversationID(conv.ID.String()),
			logger.Error(err))
	}
}
