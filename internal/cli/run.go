package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/weft/pkg/adapters/file"
	"github.com/aretw0/weft/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunOptions configures a run session.
type RunOptions struct {
	Path        string
	Frames      uint64
	Rate        int
	FixedStep   time.Duration
	Watch       bool
	Events      bool // read JSON-Lines events from stdin
	MetricsAddr string
	Gatherer    prometheus.Gatherer
}

// Run compiles the graph at opts.Path, spawns one instance and drives the
// engine until the frame budget is spent or the process is interrupted.
func Run(ctx context.Context, eng *Engine, opts RunOptions, logger *slog.Logger) (uint64, error) {
	var source *file.Source
	if opts.Watch {
		source = file.NewSource(filepath.Dir(opts.Path), file.WithLogger(logger))
		key := GraphKey(opts.Path)
		g, err := source.Load(ctx, key)
		if err != nil {
			return 0, err
		}
		def, _, err := eng.Ensure(ctx, key, g)
		if err != nil {
			return 0, err
		}
		eng.Spawn(def)
	} else {
		def, err := LoadDefinition(ctx, eng, opts.Path)
		if err != nil {
			return 0, err
		}
		eng.Spawn(def)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if source != nil {
		if err := WatchAndReload(ctx, eng, source, logger); err != nil {
			return 0, err
		}
	}
	if opts.Events {
		go func() {
			if err := runner.NewEventReader(os.Stdin, eng).Run(ctx); err != nil {
				logger.Error("event reader stopped", "err", err)
			}
		}()
	}
	if opts.MetricsAddr != "" && opts.Gatherer != nil {
		srv := &http.Server{Addr: opts.MetricsAddr, Handler: promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "err", err)
			}
		}()
		defer srv.Close()
	}

	frames, err := eng.Run(ctx,
		runner.WithRate(opts.Rate),
		runner.WithMaxFrames(opts.Frames),
		runner.WithFixedStep(opts.FixedStep),
		runner.WithSignals(true),
	)
	if err != nil {
		return frames, fmt.Errorf("run failed after %d frames: %w", frames, err)
	}
	return frames, nil
}
