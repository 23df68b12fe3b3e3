package usecase

import (
	"context"
	"sync"
	"time"
)

// DefaultSeenRetention is how long a processed message id is remembered
const DefaultSeenRetention = 12 * time.Hour

// SeenMessageCache is an in-memory message deduplication cache.
// Expired records are evicted lazily on every lookup.
type SeenMessageCache struct {
	mu        sync.Mutex
	clock     Clock
	retention time.Duration
	seen      map[string]time.Time // msgID -> first seen
}

// NewSeenMessageCache creates a cache keeping ids for retention
func NewSeenMessageCache(retention time.Duration, clock Clock) *SeenMessageCache {
	if retention <= 0 {
		retention = DefaultSeenRetention
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &SeenMessageCache{
		clock:     clock,
		retention: retention,
		seen:      make(map[string]time.Time),
	}
}

// IsSeen reports whether id was already seen. An unseen id is recorded.
// Repeat sightings do not refresh the first-seen time.
func (c *SeenMessageCache) IsSeen(_ context.Context, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.evictLocked()
	if _, ok := c.seen[id]; ok {
		return true
	}
	c.seen[id] = now
	return false
}

// Add records id as seen now unless it is already remembered
func (c *SeenMessageCache) Add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.evictLocked()
	if _, ok := c.seen[id]; !ok {
		c.seen[id] = now
	}
}

// Contains reports whether id is remembered, without recording it
func (c *SeenMessageCache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked()
	_, ok := c.seen[id]
	return ok
}

func (c *SeenMessageCache) evictLocked() time.Time {
	now := c.clock.Now()
	for mid, ts := range c.seen {
		if now.Sub(ts) > c.retention {
			delete(c.seen, mid)
		}
	}
	return now
}

// Len returns the number of remembered ids
func (c *SeenMessageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
