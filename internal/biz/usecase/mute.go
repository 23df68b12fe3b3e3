package usecase

import (
	"sort"
	"sync"
	"time"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
)

// MuteRegistry tracks per-chat mute windows.
// Expired windows are never purged, they just stop matching.
type MuteRegistry struct {
	mu      sync.RWMutex
	clock   Clock
	windows map[string]time.Time // chatID -> expiresAt
}

// NewMuteRegistry creates an empty registry
func NewMuteRegistry(clock Clock) *MuteRegistry {
	if clock == nil {
		clock = SystemClock()
	}
	return &MuteRegistry{
		clock:   clock,
		windows: make(map[string]time.Time),
	}
}

// Mute replaces any window for chatID with one ending d from now
func (r *MuteRegistry) Mute(chatID string, d time.Duration) time.Time {
	expiresAt := r.clock.Now().Add(d)

	r.mu.Lock()
	r.windows[chatID] = expiresAt
	r.mu.Unlock()

	return expiresAt
}

// IsMuted checks if chatID has a window still open at now
func (r *MuteRegistry) IsMuted(chatID string, now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	expiresAt, ok := r.windows[chatID]
	return ok && now.Before(expiresAt)
}

// Unmute closes the window for chatID. Returns false if none was active.
func (r *MuteRegistry) Unmute(chatID string) bool {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt, ok := r.windows[chatID]
	delete(r.windows, chatID)
	return ok && now.Before(expiresAt)
}

// Active lists windows open at now, soonest expiry first
func (r *MuteRegistry) Active(now time.Time) []domain.MuteWindow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.MuteWindow, 0, len(r.windows))
	for chatID, expiresAt := range r.windows {
		if now.Before(expiresAt) {
			result = append(result, domain.MuteWindow{ChatID: chatID, ExpiresAt: expiresAt})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result
}
