package docstore

import (
	"context"
	"sync"

	"warden/pkg/platform/sentinel"
)

// Memory is an in-memory Store for development and tests. It intentionally
// favors clarity over performance.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

// NewMemory constructs an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]Document)}
}

func (s *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(doc)
}

func (s *Memory) Set(_ context.Context, collection, id string, doc Document, merge bool) error {
	copied, err := clone(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Document)
	}
	if existing, ok := s.collections[collection][id]; ok && merge {
		copied = merged(existing, copied)
	}
	s.collections[collection][id] = copied
	return nil
}

func (s *Memory) Update(_ context.Context, collection, id string, partial Document) error {
	copied, err := clone(partial)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.collections[collection][id] = merged(existing, copied)
	return nil
}
