package store

import "sync"

// inflightTracker counts fetches in progress per key. A count above one
// means duplicate fetches for the same location are racing.
type inflightTracker struct {
	mu     sync.Mutex
	active map[string]int
}

func newInflightTracker() *inflightTracker {
	return &inflightTracker{active: make(map[string]int)}
}

// Begin records a fetch for key and returns the count including it.
// Callers must call End(key) when the fetch completes.
func (t *inflightTracker) Begin(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[key]++
	return t.active[key]
}

func (t *inflightTracker) End(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.active[key]; ok && n > 0 {
		t.active[key]--
		if t.active[key] == 0 {
			delete(t.active, key)
		}
	}
}

func (t *inflightTracker) Count(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[key]
}
