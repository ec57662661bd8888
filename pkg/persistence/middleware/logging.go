package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.DefinitionStore
	logger *slog.Logger
}

// NewLoggingMiddleware logs every store operation at debug level, and
// failures other than a missing key at error level.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.DefinitionStore) ports.DefinitionStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) log(op, key string, start time.Time, err error, attrs ...any) {
	attrs = append([]any{"op", op, "key", key, "took", time.Since(start)}, attrs...)
	if err != nil && !errors.Is(err, domain.ErrDefinitionNotFound) {
		m.logger.Error("store operation failed", append(attrs, "err", err)...)
		return
	}
	m.logger.Debug("store operation", attrs...)
}

func (m *loggingMiddleware) Save(ctx context.Context, key string, def *domain.GraphDefinition) error {
	start := time.Now()
	err := m.next.Save(ctx, key, def)
	m.log("save", key, start, err, "hash", domain.FormatHash(def.Hash))
	return err
}

func (m *loggingMiddleware) Load(ctx context.Context, key string) (*domain.GraphDefinition, error) {
	start := time.Now()
	def, err := m.next.Load(ctx, key)
	m.log("load", key, start, err)
	return def, err
}

func (m *loggingMiddleware) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := m.next.Delete(ctx, key)
	m.log("delete", key, start, err)
	return err
}

func (m *loggingMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := m.next.List(ctx)
	m.log("list", "", start, err, "count", len(keys))
	return keys, err
}

func (m *loggingMiddleware) Hash(ctx context.Context, key string) (uint64, error) {
	if idx, ok := m.next.(ports.HashIndex); ok {
		return idx.Hash(ctx, key)
	}
	def, err := m.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	return def.Hash, nil
}
