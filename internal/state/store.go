// Package state holds the client-side canonical copies of backend data.
//
// Each domain's data lives in an explicitly owned container behind a narrow
// read/mutate interface. Exactly one fetcher writes each container; the UI
// reads snapshots and may subscribe for change notification. There is no
// ambient global store.
package state

import "sync"

// Store is a single-value container for one domain's normalized data.
type Store[T any] struct {
	mu    sync.RWMutex
	value T
	subs  map[int]func(T)
	nextID int
}

// NewStore creates an empty store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{subs: make(map[int]func(T))}
}

// Get returns the current snapshot.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the snapshot and notifies subscribers.
func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	subs := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	// Notify outside the lock so a subscriber may call Get.
	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn to run on every mutation. The returned func removes
// the subscription.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// KeyedStore holds per-entity values (milestones by job id, log tails by
// service name). Writers publish whole-entity snapshots; readers pull copies.
type KeyedStore[T any] struct {
	mu     sync.RWMutex
	values map[string]T
	subs   map[int]func(string, T)
	nextID int
}

// NewKeyedStore creates an empty keyed store.
func NewKeyedStore[T any]() *KeyedStore[T] {
	return &KeyedStore[T]{
		values: make(map[string]T),
		subs:   make(map[int]func(string, T)),
	}
}

// Get returns the value for key and whether it exists.
func (s *KeyedStore[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set replaces the value for key and notifies subscribers.
func (s *KeyedStore[T]) Set(key string, v T) {
	s.mu.Lock()
	s.values[key] = v
	subs := make([]func(string, T), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(key, v)
	}
}

// Delete removes the value for key, if present.
func (s *KeyedStore[T]) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

// Snapshot returns a copy of the full map.
func (s *KeyedStore[T]) Snapshot() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]T, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Subscribe registers fn to run on every per-key mutation.
func (s *KeyedStore[T]) Subscribe(fn func(string, T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
