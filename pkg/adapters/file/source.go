package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// formats lists the graph file extensions in lookup order.
var formats = []string{".yaml", ".yml", ".json", ".hcl"}

// Source implements ports.GraphSource and ports.Watchable over a directory of
// graph files. A graph's name is its file name without extension.
type Source struct {
	Dir    string
	logger *slog.Logger
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithLogger sets the logger used for watch errors.
func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource creates a source reading graphs from dir.
func NewSource(dir string, opts ...SourceOption) *Source {
	s := &Source{Dir: dir, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load decodes the graph file for name.
func (s *Source) Load(ctx context.Context, name string) (*authoring.Graph, error) {
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid graph name %q", name)
	}
	for _, ext := range formats {
		path := filepath.Join(s.Dir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read graph file: %w", err)
		}
		g, err := authoring.Decode(path, data)
		if err != nil {
			return nil, err
		}
		g.Name = name
		return g, nil
	}
	return nil, fmt.Errorf("%w: %s in %s", domain.ErrGraphNotFound, name, s.Dir)
}

// List returns the names of all graph files in the directory.
func (s *Source) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	seen := make(map[string]bool)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := graphName(entry.Name())
		if ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Watch implements ports.Watchable using fsnotify on the directory.
// Each write, create, rename or removal of a graph file sends its name.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.Dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.Dir, err)
	}

	ch := make(chan string, 16)
	go func() {
		defer close(ch)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
					!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
					continue
				}
				name, ok := graphName(filepath.Base(ev.Name))
				if !ok {
					continue
				}
				s.logger.Debug("graph file changed", "graph", name, "op", ev.Op.String())
				select {
				case ch <- name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("graph watcher error", "err", err)
			}
		}
	}()
	return ch, nil
}

func graphName(file string) (string, bool) {
	if strings.HasPrefix(file, ".") {
		return "", false
	}
	ext := strings.ToLower(filepath.Ext(file))
	for _, f := range formats {
		if ext == f {
			return strings.TrimSuffix(file, filepath.Ext(file)), true
		}
	}
	return "", false
}
