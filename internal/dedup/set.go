// Package dedup provides the run-scoped sets that keep the crawl from
// revisiting URLs or persisting the same code block twice.
package dedup

import "sync"

// Set is a concurrency-safe set with atomic check-and-insert.
type Set[K comparable] struct {
	mu   sync.Mutex
	seen map[K]struct{}
}

// New returns an empty Set.
func New[K comparable]() *Set[K] {
	return &Set[K]{seen: make(map[K]struct{})}
}

// MarkIfNew inserts key and reports whether it was absent.
// Exactly one of any number of concurrent callers with the same key gets true.
func (s *Set[K]) MarkIfNew(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Contains reports whether key has been inserted.
func (s *Set[K]) Contains(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

// Len returns the number of keys.
func (s *Set[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
