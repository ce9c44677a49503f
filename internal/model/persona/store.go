package persona

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a persona id is unknown.
var ErrNotFound = errors.New("persona not found")

// Store exposes persona retrieval. Put is only used by seeding.
type Store interface {
	List(ctx context.Context) ([]Persona, error)
	Get(ctx context.Context, id string) (*Persona, error)
	Put(ctx context.Context, p Persona) error
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the personas in insertion order.
func (s *MemoryStore) List(_ context.Context) ([]Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Persona(nil), s.items...), nil
}

// Get looks up a persona by identifier.
func (s *MemoryStore) Get(_ context.Context, id string) (*Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			p := item
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

// Put inserts or replaces a persona.
func (s *MemoryStore) Put(_ context.Context, p Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == p.ID {
			s.items[i] = p
			return nil
		}
	}
	s.items = append(s.items, p)
	return nil
}
