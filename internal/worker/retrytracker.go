package worker

import (
	"sync"
	"time"
)

const (
	trackerMaxEntries = 10000
	trackerEntryTTL   = 30 * time.Minute
)

type retryEntry struct {
	attempts  int
	expiresAt time.Time
}

// RetryTracker counts delivery attempts per message id. Entries expire so
// the map stays bounded on a long-lived worker; an evicted entry simply
// restarts the backoff schedule for that message.
type RetryTracker struct {
	mu      sync.Mutex
	entries map[string]retryEntry
	ttl     time.Duration
	max     int
	now     func() time.Time
}

func NewRetryTracker() *RetryTracker {
	return &RetryTracker{
		entries: make(map[string]retryEntry),
		ttl:     trackerEntryTTL,
		max:     trackerMaxEntries,
		now:     time.Now,
	}
}

// Increment records one more failed attempt and returns the new count.
func (t *RetryTracker) Increment(messageID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.evictLocked(now)

	entry := t.entries[messageID]
	if !entry.expiresAt.IsZero() && entry.expiresAt.Before(now) {
		entry = retryEntry{}
	}
	entry.attempts++
	entry.expiresAt = now.Add(t.ttl)
	t.entries[messageID] = entry
	return entry.attempts
}

// Forget drops the counter once a message is acked or permanently failed.
func (t *RetryTracker) Forget(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, messageID)
}

func (t *RetryTracker) evictLocked(now time.Time) {
	if len(t.entries) < t.max {
		return
	}
	for id, entry := range t.entries {
		if entry.expiresAt.Before(now) {
			delete(t.entries, id)
		}
	}
	// Still full of live entries: drop arbitrary ones rather than grow
	// without bound.
	for id := range t.entries {
		if len(t.entries) < t.max {
			break
		}
		delete(t.entries, id)
	}
}
