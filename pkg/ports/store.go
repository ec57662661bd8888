package ports

import (
	"context"

	"github.com/aretw0/weft/pkg/domain"
)

// DefinitionStore persists compiled graph definitions by key.
// Definitions are immutable once saved; Save replaces the previous one.
type DefinitionStore interface {
	// Save persists def under key.
	Save(ctx context.Context, key string, def *domain.GraphDefinition) error

	// Load retrieves the definition stored under key.
	// Returns domain.ErrDefinitionNotFound if the key does not exist.
	Load(ctx context.Context, key string) (*domain.GraphDefinition, error)

	// Delete removes the definition. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the stored keys in sorted order.
	List(ctx context.Context) ([]string, error)
}

// HashIndex is implemented by stores that can report a definition's content
// hash without decoding it. Callers fall back to Load when it is absent.
type HashIndex interface {
	// Hash returns the stored content hash, or domain.ErrDefinitionNotFound.
	Hash(ctx context.Context, key string) (uint64, error)
}
