package activity

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory slice.
// Intended for demos and testing; no database required.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	seen    map[string]bool
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]bool)}
}

func (s *MemoryStore) WriteEntries(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if s.seen[e.EventID] {
			continue
		}
		s.seen[e.EventID] = true
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, opts QueryOptions) ([]Entry, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if opts.Entity != "" && e.Entity != opts.Entity {
			continue
		}
		if opts.RunID != "" && e.RunID != opts.RunID {
			continue
		}
		if len(opts.States) > 0 && !slices.Contains(opts.States, e.State) {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.OccurredAt.After(*opts.Until) {
			continue
		}
		matched = append(matched, e)
	}

	// Newest first; insertion order breaks ties.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	totalCount := len(matched)
	if cursor, ok := opts.cursorTime(); ok {
		idx := sort.Search(len(matched), func(i int) bool {
			return matched[i].OccurredAt.Before(cursor)
		})
		matched = matched[idx:]
	}

	limit := opts.limit()
	var nextCursor string
	if len(matched) > limit {
		matched = matched[:limit]
		nextCursor = matched[len(matched)-1].OccurredAt.Format(time.RFC3339Nano)
	}

	return matched, nextCursor, totalCount, nil
}
