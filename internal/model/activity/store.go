package activity

import "strings"

// Store exposes the activity catalog to HTTP handlers.
type Store interface {
	List() []Card
	FindByKind(kind string) (Card, bool)
}

// MemoryStore keeps the catalog in a slice.
type MemoryStore struct {
	items []Card
}

// NewMemoryStore returns a MemoryStore preloaded with items.
func NewMemoryStore(items []Card) *MemoryStore {
	return &MemoryStore{items: append([]Card(nil), items...)}
}

// List returns a copy of the catalog.
func (s *MemoryStore) List() []Card {
	return append([]Card(nil), s.items...)
}

// FindByKind looks up a card; kind is matched case-insensitively.
func (s *MemoryStore) FindByKind(kind string) (Card, bool) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	for _, item := range s.items {
		if item.Kind == kind {
			return item, true
		}
	}
	return Card{}, false
}
