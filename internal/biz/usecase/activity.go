package usecase

import (
	"sync"
	"time"
)

// ManualActivityTracker remembers when the operator last replied by hand in each chat
type ManualActivityTracker struct {
	mu   sync.RWMutex
	last map[string]time.Time // chatID -> latest manual reply
}

// NewManualActivityTracker creates an empty tracker
func NewManualActivityTracker() *ManualActivityTracker {
	return &ManualActivityTracker{last: make(map[string]time.Time)}
}

// RecordManual stores at unless a later mark is already recorded
func (t *ManualActivityTracker) RecordManual(chatID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.last[chatID]; ok && !at.After(prev) {
		return
	}
	t.last[chatID] = at
}

// LastManualAt returns the latest manual mark for chatID
func (t *ManualActivityTracker) LastManualAt(chatID string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	at, ok := t.last[chatID]
	return at, ok
}
