package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	mu      sync.Mutex
	rec     Record
	evicted bool
}

// MemoryStore keeps windows in process memory. Expired entries are dropped
// lazily on access and by Sweep.
type MemoryStore struct {
	entries sync.Map
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Consume(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Record, bool, error) {
	for {
		v, _ := s.entries.LoadOrStore(key, &memoryEntry{})
		entry := v.(*memoryEntry)

		entry.mu.Lock()
		if entry.evicted {
			// Lost a race with Sweep; the next LoadOrStore sees a fresh entry.
			entry.mu.Unlock()
			continue
		}
		rec, allowed := decide(entry.rec, limit, window, now)
		entry.rec = rec
		entry.mu.Unlock()

		return rec, allowed, nil
	}
}

// Sweep removes every entry whose window ended before now and returns how
// many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	s.entries.Range(func(key, value any) bool {
		entry := value.(*memoryEntry)
		entry.mu.Lock()
		if entry.rec.Count > 0 && now.After(entry.rec.ResetAt) {
			entry.evicted = true
			s.entries.Delete(key)
			removed++
		}
		entry.mu.Unlock()
		return true
	})
	return removed
}

// Len counts tracked clients.
func (s *MemoryStore) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Sweep(now)
			}
		}
	}()
}
