package usecase

import (
	"sort"
	"sync"
	"time"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
)

// DefaultReplyDelay is the wait between enqueue and evaluation
const DefaultReplyDelay = 4500 * time.Millisecond

type pendingTask struct {
	candidate domain.PendingCandidate
	timer     Timer
}

// PendingReplyScheduler holds in-flight candidates per chat.
// Each candidate owns the timer of its delayed evaluation, so canceling
// a candidate is removing it from the queue.
type PendingReplyScheduler struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	queue map[string]map[string]*pendingTask // chatID -> msgID -> task
	index map[string]string                  // msgID -> chatID
}

// NewPendingReplyScheduler creates a scheduler firing evaluations after delay
func NewPendingReplyScheduler(delay time.Duration, clock Clock) *PendingReplyScheduler {
	if delay <= 0 {
		delay = DefaultReplyDelay
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &PendingReplyScheduler{
		clock: clock,
		delay: delay,
		queue: make(map[string]map[string]*pendingTask),
		index: make(map[string]string),
	}
}

// Schedule queues c and arranges for fire to run once after the delay.
// Returns false if a candidate with the same message id is already queued.
func (s *PendingReplyScheduler) Schedule(c domain.PendingCandidate, fire func(domain.PendingCandidate)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[c.MessageID]; exists {
		return false
	}

	task := &pendingTask{candidate: c}
	chat, ok := s.queue[c.ChatID]
	if !ok {
		chat = make(map[string]*pendingTask)
		s.queue[c.ChatID] = chat
	}
	chat[c.MessageID] = task
	s.index[c.MessageID] = c.ChatID

	task.timer = s.clock.AfterFunc(s.delay, func() { fire(c) })
	return true
}

// Lookup returns the queued candidate, if it is still queued
func (s *PendingReplyScheduler) Lookup(chatID, msgID string) (domain.PendingCandidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.queue[chatID][msgID]
	if !ok {
		return domain.PendingCandidate{}, false
	}
	return task.candidate, true
}

// Remove drops one candidate and stops its timer
func (s *PendingReplyScheduler) Remove(chatID, msgID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.queue[chatID][msgID]
	if !ok {
		return false
	}
	s.removeLocked(chatID, msgID, task)
	return true
}

// CancelAll drops every candidate queued for chatID and returns them
func (s *PendingReplyScheduler) CancelAll(chatID string) []domain.PendingCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.queue[chatID]
	canceled := make([]domain.PendingCandidate, 0, len(chat))
	for msgID, task := range chat {
		canceled = append(canceled, task.candidate)
		s.removeLocked(chatID, msgID, task)
	}
	sortCandidates(canceled)
	return canceled
}

// Pending returns a snapshot of every queued candidate, oldest first
func (s *PendingReplyScheduler) Pending() []domain.PendingCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.PendingCandidate, 0, len(s.index))
	for _, chat := range s.queue {
		for _, task := range chat {
			result = append(result, task.candidate)
		}
	}
	sortCandidates(result)
	return result
}

// Len returns the number of queued candidates
func (s *PendingReplyScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *PendingReplyScheduler) removeLocked(chatID, msgID string, task *pendingTask) {
	if task.timer != nil {
		task.timer.Stop()
	}
	delete(s.queue[chatID], msgID)
	if len(s.queue[chatID]) == 0 {
		delete(s.queue, chatID)
	}
	delete(s.index, msgID)
}

func sortCandidates(cs []domain.PendingCandidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].EnqueuedAt.Equal(cs[j].EnqueuedAt) {
			return cs[i].MessageID < cs[j].MessageID
		}
		return cs[i].EnqueuedAt.Before(cs[j].EnqueuedAt)
	})
}
