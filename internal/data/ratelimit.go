package data

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/repo"
)

// rateLimitedCompletionRepo spaces completion calls to stay under a provider quota
type rateLimitedCompletionRepo struct {
	next    repo.CompletionRepo
	limiter *rate.Limiter
}

// NewRateLimitedCompletionRepo allows at most perMinute calls per minute through to next.
// Callers wait for a slot until their context ends.
func NewRateLimitedCompletionRepo(next repo.CompletionRepo, perMinute int) repo.CompletionRepo {
	if perMinute <= 0 {
		return next
	}
	return &rateLimitedCompletionRepo{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

func (r *rateLimitedCompletionRepo) Complete(ctx context.Context, userText, senderLabel string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("completion rate limit: %w", err)
	}
	return r.next.Complete(ctx, userText, senderLabel)
}
