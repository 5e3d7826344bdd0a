package report

import "sync"

// MemStore keeps the most recent results in memory in front of a backing
// Store, evicting the oldest entry once capacity is reached.
type MemStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order []string // insertion order, oldest first
	items map[string]*RunResult
}

// NewMemStore creates a bounded in-memory cache with the given capacity
// (coerced to at least 1) delegating to back on miss.
func NewMemStore(cap int, back Store) *MemStore {
	if cap < 1 {
		cap = 1
	}
	return &MemStore{
		cap:   cap,
		back:  back,
		items: make(map[string]*RunResult, cap),
	}
}

// Save caches the result and delegates to the backing store.
func (s *MemStore) Save(result *RunResult) error {
	s.mu.Lock()
	if _, ok := s.items[result.ID]; !ok {
		s.order = append(s.order, result.ID)
		if len(s.order) > s.cap {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.items, oldest)
		}
	}
	s.items[result.ID] = result
	s.mu.Unlock()

	return s.back.Save(result)
}

// Load returns a cached result, falling back to the backing store.
// Backing-store hits are not promoted; runs are write-once and the cache
// exists only to keep recent runs cheap.
func (s *MemStore) Load(runID string) (*RunResult, error) {
	s.mu.Lock()
	r, ok := s.items[runID]
	s.mu.Unlock()
	if ok {
		return r, nil
	}
	return s.back.Load(runID)
}
