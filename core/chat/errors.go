package chat

import "errors"

var (
	// ErrConversationNotFound is returned for lookups of unknown conversations.
	ErrConversationNotFound = errors.New("chat: conversation not found")
	// ErrFlowNotFound is returned for lookups of unknown flows.
	ErrFlowNotFound = errors.New("chat: flow not found")
	// ErrEmptyMessage is returned when a visitor message has no content.
	ErrEmptyMessage = errors.New("chat: message content is empty")
	// ErrMessageTooLong is returned when a visitor message exceeds the limit.
	ErrMessageTooLong = errors.New("chat: message content too long")
)
