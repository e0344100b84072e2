// Package guard provides in-flight deduplication and response ordering for
// resource fetches.
//
// Every fetch for a resource key acquires the key before calling the backend
// and releases it on all exit paths (defer). A second fetch arriving while
// the key is held is skipped, not queued. Entity-scoped fetches additionally
// take a sequence number at issue time; a response is applied only if no
// newer request for the same entity has been issued since.
package guard

import "sync"

// Guard tracks in-flight fetches and per-entity request sequence numbers.
// The zero value is not usable; call New.
type Guard struct {
	mu   sync.Mutex
	held map[string]bool
	seq  map[string]uint64
}

// New creates an empty guard.
func New() *Guard {
	return &Guard{
		held: make(map[string]bool),
		seq:  make(map[string]uint64),
	}
}

// TryAcquire marks key in flight. It returns false without side effect when
// the key is already held.
func (g *Guard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] {
		return false
	}
	g.held[key] = true
	return true
}

// Release clears the in-flight mark. Call exactly once per successful
// TryAcquire, on every exit path:
//
//	if !g.TryAcquire(key) {
//		return
//	}
//	defer g.Release(key)
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
}

// Held reports whether key is currently in flight.
func (g *Guard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held[key]
}

// NextSequence increments and returns the request counter for entityKey.
// Sequence numbers are never reused or decremented.
func (g *Guard) NextSequence(entityKey string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq[entityKey]++
	return g.seq[entityKey]
}

// IsCurrent reports whether seq is still the latest issued sequence for
// entityKey. A false result means the response belongs to a superseded
// request and must be discarded.
func (g *Guard) IsCurrent(entityKey string, seq uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq[entityKey] == seq
}
