package repo

import "context"

// SeenRepo deduplicates message ids within a retention window
type SeenRepo interface {
	// IsSeen reports whether id was seen before and records it if not
	IsSeen(ctx context.Context, id string) bool
}
