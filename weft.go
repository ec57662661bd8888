package weft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/weft/internal/compiler"
	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/internal/runtime"
	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/nodes"
	"github.com/aretw0/weft/pkg/observability"
	"github.com/aretw0/weft/pkg/ports"
	"github.com/aretw0/weft/pkg/registry"
	"github.com/aretw0/weft/pkg/runner"
	"github.com/aretw0/weft/pkg/value"
)

// Engine is the high-level entry point of the library. It compiles authoring
// graphs, keeps compiled definitions in a store and drives their instances
// on a runtime host.
type Engine struct {
	store    ports.DefinitionStore
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	registry *registry.Registry
	metrics  *observability.Metrics
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	folding      bool
	annotateOnly bool
	maxNodes     int
	tracing      bool

	host *runtime.Host
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets where compiled definitions are kept (default: in memory).
func WithStore(s ports.DefinitionStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker serializes Ensure per key across processes sharing the store.
// Without it Ensure is serialized per key within the process only.
// A zero ttl keeps the default of 30 seconds.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		if ttl > 0 {
			e.lockTTL = ttl
		}
	}
}

// WithRegistry replaces the standard node library.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithMetrics records compilations and executions in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLifecycleHooks registers observability hooks on every instance.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConstantFolding enables compile-time folding. With annotateOnly the
// folded values are reported without rewriting the graph.
func WithConstantFolding(enabled, annotateOnly bool) Option {
	return func(e *Engine) {
		e.folding = enabled
		e.annotateOnly = annotateOnly
	}
}

// WithMaxNodesPerFrame caps node executions per instance and frame.
func WithMaxNodesPerFrame(n int) Option {
	return func(e *Engine) {
		e.maxNodes = n
	}
}

// WithTracing records node failures instead of re-panicking them.
func WithTracing(enabled bool) Option {
	return func(e *Engine) {
		e.tracing = enabled
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.locker == nil {
		e.locker = memory.NewLocker()
	}
	if e.registry == nil {
		e.registry = nodes.NewRegistry()
	}

	hooks := e.hooks
	if e.metrics != nil {
		hooks = hooks.Merge(e.metrics.Hooks())
	}
	instanceOpts := []runtime.InstanceOption{
		runtime.WithLifecycleHooks(hooks),
		runtime.WithResolver(e.registry),
		runtime.WithTracing(e.tracing),
	}
	if e.maxNodes > 0 {
		instanceOpts = append(instanceOpts, runtime.WithMaxNodesPerFrame(e.maxNodes))
	}
	e.host = runtime.NewHost(
		runtime.WithHostLogger(e.logger),
		runtime.WithInstanceOptions(instanceOpts...),
	)
	return e
}

// Store returns the definition store.
func (e *Engine) Store() ports.DefinitionStore { return e.store }

// Registry returns the node registry used for compilation and member calls.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Host returns the runtime host driving the spawned instances.
func (e *Engine) Host() *runtime.Host { return e.host }

// Compile compiles g without touching the store. Error diagnostics are
// reported in the result, not as an error.
func (e *Engine) Compile(ctx context.Context, g *authoring.Graph) (*compiler.Result, error) {
	start := time.Now()
	res, err := compiler.Compile(ctx, g,
		compiler.WithRegistry(e.registry),
		compiler.WithLogger(e.logger),
		compiler.WithConstantFolding(e.folding),
		compiler.WithAnnotateOnly(e.annotateOnly),
	)
	if e.metrics != nil {
		outcome := err
		if outcome == nil {
			outcome = res.Err()
		}
		e.metrics.ObserveCompile(g.Name, time.Since(start), outcome)
	}
	return res, err
}

// Ensure compiles g and saves it under key unless the stored definition has
// the same content hash. It reports whether the store changed. A graph with
// error diagnostics yields domain.ErrInvalidGraph.
func (e *Engine) Ensure(ctx context.Context, key string, g *authoring.Graph) (*domain.GraphDefinition, bool, error) {
	unlock, err := e.locker.Lock(ctx, key, e.lockTTL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock %s: %w", key, err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("failed to release lock", "key", key, "err", err)
		}
	}()

	res, err := e.Compile(ctx, g)
	if err != nil {
		return nil, false, err
	}
	if err := res.Err(); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", domain.ErrInvalidGraph, key, err)
	}
	def := res.Definition

	stored, err := e.storedHash(ctx, key)
	switch {
	case err == nil && stored == def.Hash:
		e.logger.Debug("definition up to date", "key", key, "hash", domain.FormatHash(def.Hash))
		return def, false, nil
	case err != nil && !errors.Is(err, domain.ErrDefinitionNotFound):
		return nil, false, err
	}

	if err := e.store.Save(ctx, key, def); err != nil {
		return nil, false, fmt.Errorf("failed to save %s: %w", key, err)
	}
	e.logger.Info("definition saved", "key", key, "hash", domain.FormatHash(def.Hash))
	return def, true, nil
}

func (e *Engine) storedHash(ctx context.Context, key string) (uint64, error) {
	if idx, ok := e.store.(ports.HashIndex); ok {
		return idx.Hash(ctx, key)
	}
	def, err := e.store.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	return def.Hash, nil
}

// Load returns the stored definition for key.
func (e *Engine) Load(ctx context.Context, key string) (*domain.GraphDefinition, error) {
	return e.store.Load(ctx, key)
}

// Spawn starts an instance of def for a fresh entity. Like every host
// mutation it must run on the goroutine that ticks the engine.
func (e *Engine) Spawn(def *domain.GraphDefinition) domain.Entity {
	return e.host.Spawn(def)
}

// Reload swaps the instances running an older version of def.
func (e *Engine) Reload(def *domain.GraphDefinition) int {
	return e.host.Reload(def)
}

// Tick runs one frame on every instance.
func (e *Engine) Tick(ctx context.Context, delta time.Duration) error {
	return e.host.Tick(ctx, delta)
}

// SendEvent queues an event for delivery at the start of the next frame.
// It is safe for concurrent use.
func (e *Engine) SendEvent(ctx context.Context, hook string, target domain.Entity, payload value.Value) error {
	return runner.HostSink{Host: e.host}.SendEvent(ctx, hook, target, payload)
}

// Run drives the engine with a runner.Runner built from opts.
func (e *Engine) Run(ctx context.Context, opts ...runner.Option) (uint64, error) {
	opts = append([]runner.Option{runner.WithLogger(e.logger)}, opts...)
	return runner.NewRunner(opts...).Run(ctx, e)
}

// Close destroys every instance.
func (e *Engine) Close() {
	e.host.Close()
}
