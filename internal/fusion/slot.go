package fusion

import "sync"

// Slot is a published-value cell: one background worker writes it, any
// number of readers load the latest value. The generation counter lets
// consumers tell "new value" from "same value re-read"; readers are
// expected to tolerate a value that is stale by one tick.
type Slot[T any] struct {
	mu    sync.RWMutex
	value T
	gen   uint64
	ok    bool
}

// Publish atomically replaces the value and bumps the generation.
func (s *Slot[T]) Publish(v T) {
	s.mu.Lock()
	s.value = v
	s.gen++
	s.ok = true
	s.mu.Unlock()
}

// Load returns the latest published value, or ok=false if nothing has
// been published yet (or the slot was cleared).
func (s *Slot[T]) Load() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.ok
}

// Generation returns the current generation counter.
func (s *Slot[T]) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Clear marks the slot empty without resetting the generation.
func (s *Slot[T]) Clear() {
	s.mu.Lock()
	var zero T
	s.value = zero
	s.ok = false
	s.mu.Unlock()
}
