package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/weft/pkg/domain"
)

// Store implements ports.DefinitionStore in memory.
// Definitions are immutable, so the store shares them with callers.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.GraphDefinition
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.GraphDefinition),
	}
}

// Save keeps def in memory under key.
func (s *Store) Save(ctx context.Context, key string, def *domain.GraphDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = def
	return nil
}

// Load retrieves the definition from memory.
func (s *Store) Load(ctx context.Context, key string) (*domain.GraphDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.data[key]
	if !ok {
		return nil, domain.ErrDefinitionNotFound
	}
	return def, nil
}

// Delete removes the definition.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the stored keys.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Hash implements ports.HashIndex.
func (s *Store) Hash(ctx context.Context, key string) (uint64, error) {
	def, err := s.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	return def.Hash, nil
}
