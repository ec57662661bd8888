package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/config"
	"github.com/aretw0/weft/pkg/adapters/file"
	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/adapters/redis"
	"github.com/aretw0/weft/pkg/adapters/sqlite"
	"github.com/aretw0/weft/pkg/observability"
	"github.com/aretw0/weft/pkg/persistence/middleware"
	"github.com/aretw0/weft/pkg/ports"
)

// Engine bundles an engine with the resources the factory opened for it.
type Engine struct {
	*weft.Engine
	closers []io.Closer
}

// Close destroys every instance and releases the store.
func (e *Engine) Close() error {
	e.Engine.Close()
	var first error
	for _, c := range e.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewEngine builds an engine from cfg. metrics may be nil.
func NewEngine(cfg config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Engine, error) {
	out := &Engine{}
	opts := []weft.Option{
		weft.WithLogger(logger),
		weft.WithConstantFolding(cfg.Compiler.ConstantFolding, cfg.Compiler.AnnotateOnly),
		weft.WithMaxNodesPerFrame(cfg.Runtime.MaxNodesPerFrame),
		weft.WithTracing(cfg.Runtime.Tracing),
	}
	if metrics != nil {
		opts = append(opts, weft.WithMetrics(metrics))
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		opts = append(opts, weft.WithLifecycleHooks(debugHooks(logger)))
	}

	var store ports.DefinitionStore
	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(cfg.Store.Path)
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("error opening sqlite store: %w", err)
		}
		out.closers = append(out.closers, s)
		store = s
	case config.BackendRedis:
		var ropts []redis.Option
		if cfg.Store.Prefix != "" {
			ropts = append(ropts, redis.WithPrefix(cfg.Store.Prefix))
		}
		if cfg.Store.TTL > 0 {
			ropts = append(ropts, redis.WithTTL(cfg.Store.TTL))
		}
		s := redis.New(cfg.Store.RedisAddr, cfg.Store.Password, cfg.Store.DB, ropts...)
		out.closers = append(out.closers, s)
		store = s
		opts = append(opts, weft.WithLocker(redis.NewLocker(s.Client(), "weft:"), 0))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	mws := []middleware.Middleware{middleware.NewLoggingMiddleware(logger)}
	if cfg.Store.Backend != config.BackendMemory && cfg.Store.Backend != "" {
		mws = append(mws, middleware.NewCacheMiddleware())
	}
	opts = append(opts, weft.WithStore(middleware.Chain(store, mws...)))

	out.Engine = weft.New(opts...)
	return out, nil
}
