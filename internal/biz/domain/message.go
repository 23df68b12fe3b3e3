package domain

import "time"

// InboundMessage is one message event observed on a conversation,
// either from the remote party or authored by the operator (FromMe).
type InboundMessage struct {
	ID        string
	ChatID    string
	FromMe    bool
	PushName  string
	Timestamp time.Time // second precision, as delivered by the transport
	Content   Content
}

// SenderLabel returns the display name used when addressing the sender
func (m *InboundMessage) SenderLabel() string {
	if m.PushName == "" {
		return "Unknown"
	}
	return m.PushName
}

// IsBefore checks if the message was sent before the specified time
func (m *InboundMessage) IsBefore(t time.Time) bool {
	return m.Timestamp.Unix() < t.Unix()
}

// Text extracts the textual form of the message content
func (m *InboundMessage) Text() (string, bool) {
	return TextOf(m.Content)
}
