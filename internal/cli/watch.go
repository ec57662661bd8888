package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

// ReloadSource is a graph source that reports changes.
type ReloadSource interface {
	ports.GraphSource
	ports.Watchable
}

// WatchAndReload recompiles every graph src reports as changed and swaps
// the running instances on the next frame. Graphs with errors are logged and
// keep running their last good version. It returns once watching started.
func WatchAndReload(ctx context.Context, eng *Engine, src ReloadSource, logger *slog.Logger) error {
	changes, err := src.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch graphs: %w", err)
	}
	go func() {
		for name := range changes {
			g, err := src.Load(ctx, name)
			if err != nil {
				logger.Error("reload failed", "graph", name, "err", err)
				continue
			}
			if _, changed, err := (Reloader{eng, logger}).Ensure(ctx, name, g); err != nil {
				logger.Error("reload failed", "graph", name, "err", err)
			} else if !changed {
				logger.Debug("graph unchanged", "graph", name)
			}
		}
	}()
	return nil
}

// Reloader is a ports.GraphCompiler that also swaps the running instances of
// every definition it changes, on the next frame.
type Reloader struct {
	Engine *Engine
	Logger *slog.Logger
}

// Ensure implements ports.GraphCompiler.
func (r Reloader) Ensure(ctx context.Context, key string, g *authoring.Graph) (*domain.GraphDefinition, bool, error) {
	def, changed, err := r.Engine.Ensure(ctx, key, g)
	if err != nil || !changed {
		return def, changed, err
	}
	r.Engine.Host().Post(func() {
		n := r.Engine.Reload(def)
		r.Logger.Info("graph reloaded", "graph", def.Name, "instances", n,
			"hash", domain.FormatHash(def.Hash))
	})
	return def, true, nil
}

// EnsureAll compiles and stores every graph of src.
func EnsureAll(ctx context.Context, eng *Engine, src ports.GraphSource) error {
	names, err := src.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		g, err := src.Load(ctx, name)
		if err != nil {
			return err
		}
		if _, _, err := eng.Ensure(ctx, name, g); err != nil {
			return err
		}
	}
	return nil
}
