package repo

import (
	"context"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
)

// JournalRepo is the reply journal repository interface
// Append-only audit trail of coordinator outcomes (SQLite)
type JournalRepo interface {
	// Record appends an event
	Record(ctx context.Context, event *domain.ReplyEvent) error

	// Recent lists the latest events, newest first
	Recent(ctx context.Context, limit int) ([]*domain.ReplyEvent, error)

	Close() error
}
