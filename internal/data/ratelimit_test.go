package data

import (
	"context"
	"testing"
	"time"
)

type countingCompletionRepo struct {
	calls int
}

func (c *countingCompletionRepo) Complete(ctx context.Context, userText, senderLabel string) (string, error) {
	c.calls++
	return "ok", nil
}

func TestRateLimitedCompletionRepo_Disabled(t *testing.T) {
	next := &countingCompletionRepo{}
	if r := NewRateLimitedCompletionRepo(next, 0); r != next {
		t.Error("Expected zero limit to return the wrapped repo")
	}
}

func TestRateLimitedCompletionRepo_BurstThenWait(t *testing.T) {
	next := &countingCompletionRepo{}
	r := NewRateLimitedCompletionRepo(next, 2)

	for i := 0; i < 2; i++ {
		if _, err := r.Complete(context.Background(), "hi", "Alice"); err != nil {
			t.Fatalf("Unexpected error on call %d: %v", i, err)
		}
	}

	// The third call needs a slot 30s away, past the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := r.Complete(ctx, "hi", "Alice"); err == nil {
		t.Error("Expected rate limit error")
	}
	if next.calls != 2 {
		t.Errorf("Expected 2 calls through, got %d", next.calls)
	}
}
