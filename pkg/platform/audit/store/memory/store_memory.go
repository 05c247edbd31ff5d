// Package memory provides an in-memory audit store for development and tests.
package memory

import (
	"context"
	"sync"

	audit "warden/pkg/platform/audit"
)

// Store keeps audit events per subject in memory.
type Store struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

// NewInMemoryStore constructs an empty audit store.
func NewInMemoryStore() *Store {
	return &Store{events: make(map[string][]audit.Event)}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.Subject] = append(s.events[event.Subject], event)
	return nil
}

func (s *Store) ListByUser(_ context.Context, subject string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[subject]...), nil
}
