// Package events is the process-wide event bus graph instances register their
// event entry points with.
package events

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// Handler receives an event delivered to a registered hook.
type Handler func(ctx context.Context, hook domain.Hook, payload value.Value)

// Token identifies a registration for Unregister.
type Token uint64

// hookEntry holds the handlers of one (name, target) pair in registration order.
type hookEntry struct {
	tokens   []Token
	handlers map[Token]Handler
}

// Bus routes events to handlers keyed by hook name and target entity.
// A handler registered with target NoEntity hears the hook for every entity.
// Handlers run on the caller's goroutine, outside the bus lock.
type Bus struct {
	mu      sync.RWMutex
	next    Token
	entries map[domain.Hook]*hookEntry
	owners  map[Token]domain.Hook
	logger  *slog.Logger
}

// Option configures the Bus.
type Option func(*Bus)

// WithLogger configures a logger for delivery tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		entries: make(map[domain.Hook]*hookEntry),
		owners:  make(map[Token]domain.Hook),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register adds a handler for hook and returns its token.
func (b *Bus) Register(hook domain.Hook, h Handler) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	tok := b.next
	entry, ok := b.entries[hook]
	if !ok {
		entry = &hookEntry{handlers: make(map[Token]Handler)}
		b.entries[hook] = entry
	}
	entry.tokens = append(entry.tokens, tok)
	entry.handlers[tok] = h
	b.owners[tok] = hook
	return tok
}

// Unregister removes a registration. Empty hooks are forgotten.
func (b *Bus) Unregister(tok Token) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	hook, ok := b.owners[tok]
	if !ok {
		return false
	}
	delete(b.owners, tok)
	entry := b.entries[hook]
	delete(entry.handlers, tok)
	for i, t := range entry.tokens {
		if t == tok {
			entry.tokens = append(entry.tokens[:i], entry.tokens[i+1:]...)
			break
		}
	}
	if len(entry.tokens) == 0 {
		delete(b.entries, hook)
	}
	return true
}

// Trigger delivers payload to the handlers of hook, then to the global handlers
// of the hook name when hook targets a specific entity. It returns the number
// of handlers run.
func (b *Bus) Trigger(ctx context.Context, hook domain.Hook, payload value.Value) int {
	handlers := b.snapshot(hook)
	if hook.Target != domain.NoEntity {
		handlers = append(handlers, b.snapshot(domain.Hook{Name: hook.Name, Target: domain.NoEntity})...)
	}
	b.logger.Debug("event", "hook", hook.Name, "target", uint64(hook.Target), "handlers", len(handlers))
	for _, h := range handlers {
		h(ctx, hook, payload)
	}
	return len(handlers)
}

func (b *Bus) snapshot(hook domain.Hook) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.entries[hook]
	if !ok {
		return nil
	}
	out := make([]Handler, 0, len(entry.tokens))
	for _, t := range entry.tokens {
		out = append(out, entry.handlers[t])
	}
	return out
}

// Hooks lists the registered hooks ordered by name then target.
func (b *Bus) Hooks() []domain.Hook {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Hook, 0, len(b.entries))
	for h := range b.entries {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Target < out[j].Target
	})
	return out
}
