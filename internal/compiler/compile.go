package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/registry"
)

// ErrNoRegistry is returned by Compile when no node registry was configured.
var ErrNoRegistry = errors.New("compiler: no node registry configured")

// Option configures a compilation.
type Option func(*compilation)

// WithRegistry sets the node registry used to translate authoring nodes.
func WithRegistry(r *registry.Registry) Option {
	return func(c *compilation) {
		c.registry = r
	}
}

// WithLogger sets the logger for compiler warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *compilation) {
		c.logger = l
	}
}

// WithConstantFolding enables or disables the folding pass.
func WithConstantFolding(enabled bool) Option {
	return func(c *compilation) {
		c.fold = enabled
	}
}

// WithAnnotateOnly makes folding report computed values without rewriting the graph.
func WithAnnotateOnly(enabled bool) Option {
	return func(c *compilation) {
		c.annotateOnly = enabled
	}
}

// Result is the outcome of a compilation. Definition is always set; nodes and
// connections reported by error diagnostics are left out of it.
type Result struct {
	Definition  *domain.GraphDefinition
	Diagnostics Diagnostics
	Annotations []FoldAnnotation
	Dropped     []Edge
}

// Err returns the error diagnostics as a single error, or nil.
func (r *Result) Err() error {
	return r.Diagnostics.Err()
}

type compilation struct {
	ctx          context.Context
	registry     *registry.Registry
	logger       *slog.Logger
	fold         bool
	annotateOnly bool

	diags       Diagnostics
	annotations []FoldAnnotation
	dropped     []Edge
	cache       map[*authoring.Graph]*domain.GraphDefinition
	active      map[*authoring.Graph]bool
}

// Compile translates an authoring graph into a runtime definition.
// Authoring problems are reported as diagnostics on the result; the returned
// error is reserved for configuration problems and cancellation.
func Compile(ctx context.Context, g *authoring.Graph, opts ...Option) (*Result, error) {
	c, err := newCompilation(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	def, err := c.compile(g, nil)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Definition:  def,
		Diagnostics: c.diags,
		Annotations: c.annotations,
		Dropped:     c.dropped,
	}
	for _, d := range c.diags {
		c.logger.Log(ctx, d.Severity.level(), d.Message, "graph", g.Name, "node", d.Node, "port", d.Port)
	}
	return res, nil
}

// Translate runs accretion only and returns the populated builder, leaving
// folding and compaction to the caller. Subgraphs are still compiled in full.
func Translate(ctx context.Context, g *authoring.Graph, opts ...Option) (*GraphBuilder, Diagnostics, error) {
	c, err := newCompilation(ctx, g, opts)
	if err != nil {
		return nil, nil, err
	}
	b := NewGraphBuilder(g.Name, WithBuilderLogger(c.logger))
	c.active[g] = true
	t := &translator{c: c, g: g, scope: []*authoring.Graph{g}, b: b, diags: &c.diags}
	t.run()
	return b, c.diags, nil
}

func newCompilation(ctx context.Context, g *authoring.Graph, opts []Option) (*compilation, error) {
	c := &compilation{
		ctx:    ctx,
		logger: logging.NewNop(),
		fold:   true,
		cache:  make(map[*authoring.Graph]*domain.GraphDefinition),
		active: make(map[*authoring.Graph]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		return nil, ErrNoRegistry
	}
	if g == nil {
		return nil, errors.New("compiler: nil graph")
	}
	if err := g.Normalize(); err != nil {
		c.diags.add(SeverityError, "", "", "%v", err)
	}
	return c, nil
}

func (c *compilation) compile(g *authoring.Graph, scope []*authoring.Graph) (*domain.GraphDefinition, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	if def, ok := c.cache[g]; ok {
		return def, nil
	}
	c.active[g] = true
	defer delete(c.active, g)

	b := NewGraphBuilder(g.Name, WithBuilderLogger(c.logger))
	t := &translator{c: c, g: g, scope: append(scope, g), b: b, diags: &c.diags}
	t.run()

	if c.fold {
		fr, err := Fold(b, c.registry.Literal, FoldOptions{AnnotateOnly: c.annotateOnly})
		if err != nil {
			c.diags.add(SeverityWarning, "", "", "constant folding skipped: %v", err)
		}
		c.annotations = append(c.annotations, fr.Annotations...)
	}
	def := b.Build()
	for _, e := range b.Dropped() {
		c.diags.add(SeverityWarning, "", "", "graph %s: dropped dangling edge %d -> %d", g.Name, e.From, e.To)
	}
	c.dropped = append(c.dropped, b.Dropped()...)
	c.cache[g] = def
	return def, nil
}

func (c *compilation) compileSubgraph(g *authoring.Graph, scope []*authoring.Graph, caller string) (*domain.GraphDefinition, bool) {
	if c.active[g] {
		c.diags.add(SeverityError, caller, "", "subgraph %q calls itself", g.Name)
		return nil, false
	}
	def, err := c.compile(g, scope)
	if err != nil {
		c.diags.add(SeverityError, caller, "", "subgraph %q: %v", g.Name, err)
		return nil, false
	}
	return def, true
}

func (s Severity) level() slog.Level {
	switch s {
	case SeverityError:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// MustCompile compiles g and panics on any error diagnostic. Intended for tests
// and fixed graphs embedded in code.
func MustCompile(g *authoring.Graph, opts ...Option) *domain.GraphDefinition {
	res, err := Compile(context.Background(), g, opts...)
	if err != nil {
		panic(err)
	}
	if err := res.Err(); err != nil {
		panic(fmt.Sprintf("compile %s: %v", g.Name, err))
	}
	return res.Definition
}
