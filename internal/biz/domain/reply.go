package domain

import (
	"fmt"
	"time"
)

// Disposition is the terminal state reached by one message event
type Disposition string

const (
	DispositionManual       Disposition = "manual"
	DispositionBotEcho      Disposition = "bot_echo"
	DispositionStale        Disposition = "stale"
	DispositionDeduplicated Disposition = "deduplicated"
	DispositionNoText       Disposition = "no_text"
	DispositionCommand      Disposition = "command"
	DispositionMuted        Disposition = "muted"
	DispositionPending      Disposition = "pending"
)

// Outcome is what happened to a conversation as recorded in the reply journal
type Outcome string

const (
	OutcomeCommand    Outcome = "command"
	OutcomeMuted      Outcome = "muted"
	OutcomeReplied    Outcome = "replied"
	OutcomeFallback   Outcome = "fallback"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeCanceled   Outcome = "canceled"
)

// ReplyEvent is one journal entry
type ReplyEvent struct {
	ID        int64     `json:"id"`
	ChatID    string    `json:"chat_id"`
	MsgID     string    `json:"msg_id"`
	Sender    string    `json:"sender"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FallbackReplyText is sent when the completion service fails
const FallbackReplyText = "❌ Automated reply failed."

// ReplyConfig represents reply coordination configuration (value object)
type ReplyConfig struct {
	MuteToken         string        // Case-insensitive substring that mutes a chat
	MuteDuration      time.Duration // How long a mute command suppresses replies
	ReplyDelay        time.Duration // Wait before an automated reply is evaluated
	SeenRetention     time.Duration // How long processed message ids are remembered
	CompletionTimeout time.Duration
	FallbackText      string
}

// DefaultReplyConfig returns the default reply configuration
func DefaultReplyConfig() ReplyConfig {
	return ReplyConfig{
		MuteToken:         "#stop",
		MuteDuration:      time.Hour,
		ReplyDelay:        4500 * time.Millisecond,
		SeenRetention:     12 * time.Hour,
		CompletionTimeout: 30 * time.Second,
		FallbackText:      FallbackReplyText,
	}
}

// AckText is the acknowledgement sent after a mute command
func (c ReplyConfig) AckText() string {
	return fmt.Sprintf("🤖 Auto-reply paused for %s.", humanDuration(c.MuteDuration))
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute && d%time.Minute == 0:
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	default:
		return d.String()
	}
}
