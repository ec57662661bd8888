package middleware

import (
	"context"
	"sync"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

type cacheMiddleware struct {
	next ports.DefinitionStore
	mu   sync.RWMutex
	defs map[string]*domain.GraphDefinition
}

// NewCacheMiddleware keeps decoded definitions in memory. When the wrapped
// store implements ports.HashIndex, every Load revalidates the cached entry
// against the stored hash, so writes by other processes are picked up without
// decoding unchanged definitions again. Otherwise entries live until this
// store saves or deletes the key.
func NewCacheMiddleware() Middleware {
	return func(next ports.DefinitionStore) ports.DefinitionStore {
		return &cacheMiddleware{
			next: next,
			defs: make(map[string]*domain.GraphDefinition),
		}
	}
}

func (m *cacheMiddleware) Save(ctx context.Context, key string, def *domain.GraphDefinition) error {
	if err := m.next.Save(ctx, key, def); err != nil {
		return err
	}
	m.mu.Lock()
	m.defs[key] = def
	m.mu.Unlock()
	return nil
}

func (m *cacheMiddleware) Load(ctx context.Context, key string) (*domain.GraphDefinition, error) {
	m.mu.RLock()
	cached, ok := m.defs[key]
	m.mu.RUnlock()

	if ok {
		idx, indexed := m.next.(ports.HashIndex)
		if !indexed {
			return cached, nil
		}
		h, err := idx.Hash(ctx, key)
		if err == nil && h == cached.Hash {
			return cached, nil
		}
	}

	def, err := m.next.Load(ctx, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		delete(m.defs, key)
		return nil, err
	}
	m.defs[key] = def
	return def, nil
}

func (m *cacheMiddleware) Hash(ctx context.Context, key string) (uint64, error) {
	if idx, ok := m.next.(ports.HashIndex); ok {
		return idx.Hash(ctx, key)
	}
	def, err := m.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	return def.Hash, nil
}

func (m *cacheMiddleware) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.defs, key)
	m.mu.Unlock()
	return m.next.Delete(ctx, key)
}

func (m *cacheMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
