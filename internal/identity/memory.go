package identity

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps the id for the lifetime of the process.
type MemoryStore struct {
	mu sync.RWMutex
	id string
}

// NewMemoryStore returns a MemoryStore preloaded with id (may be empty).
func NewMemoryStore(id string) *MemoryStore {
	return &MemoryStore{id: id}
}

func (s *MemoryStore) Get(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.id != "", nil
}

func (s *MemoryStore) Set(_ context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	return nil
}
