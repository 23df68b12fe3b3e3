package repo

import "context"

// CompletionRepo produces automated reply text
type CompletionRepo interface {
	// Complete returns the reply for userText written by senderLabel
	Complete(ctx context.Context, userText, senderLabel string) (string, error)
}
