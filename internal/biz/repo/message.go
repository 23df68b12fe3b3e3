package repo

import "context"

// MessageRepo is the outbound messaging interface
// Responsible for delivering messages through the WhatsApp transport
type MessageRepo interface {
	// NewMessageID reserves the id of the next outbound message
	NewMessageID() string

	// SendText sends a text message under msgID, optionally quoting quotedID
	SendText(ctx context.Context, chatID, msgID, text, quotedID string) error

	// SetTyping starts or stops the typing indicator
	SetTyping(ctx context.Context, chatID string, typing bool) error
}
