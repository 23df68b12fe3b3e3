package domain

import "time"

// PendingCandidate is a queued automated-reply decision for one inbound message
type PendingCandidate struct {
	MessageID   string    `json:"message_id"`
	ChatID      string    `json:"chat_id"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	SourceText  string    `json:"source_text"`
	SenderLabel string    `json:"sender_label"`
}

// MuteWindow suppresses automated replies for a chat until ExpiresAt
type MuteWindow struct {
	ChatID    string    `json:"chat_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ActiveAt checks if the window still suppresses replies at t
func (w *MuteWindow) ActiveAt(t time.Time) bool {
	return t.Before(w.ExpiresAt)
}
