package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
)

// Source implements ports.GraphSource and ports.Watchable over an in-memory
// map. Put notifies watchers, which makes it handy for hot-reload tests.
type Source struct {
	mu       sync.RWMutex
	graphs   map[string]*authoring.Graph
	watchers []chan string
}

// NewSource creates a source holding graphs, keyed by graph name.
func NewSource(graphs ...*authoring.Graph) (*Source, error) {
	s := &Source{graphs: make(map[string]*authoring.Graph, len(graphs))}
	for _, g := range graphs {
		if g.Name == "" {
			return nil, fmt.Errorf("graph missing name")
		}
		if err := g.Normalize(); err != nil {
			return nil, fmt.Errorf("invalid graph %s: %w", g.Name, err)
		}
		s.graphs[g.Name] = g
	}
	return s, nil
}

// Put adds or replaces a graph and notifies watchers.
func (s *Source) Put(g *authoring.Graph) error {
	if err := g.Normalize(); err != nil {
		return fmt.Errorf("invalid graph %s: %w", g.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.Name] = g
	for _, ch := range s.watchers {
		select {
		case ch <- g.Name:
		default:
		}
	}
	return nil
}

// Load returns the graph with the given name.
func (s *Source) Load(ctx context.Context, name string) (*authoring.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, name)
	}
	return g, nil
}

// List returns all graph names.
func (s *Source) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.graphs))
	for k := range s.graphs {
		names = append(names, k)
	}
	sort.Strings(names) // Deterministic order
	return names, nil
}

// Watch implements ports.Watchable.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
