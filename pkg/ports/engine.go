package ports

import (
	"context"

	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
)

// GraphCompiler compiles authoring graphs into stored definitions.
type GraphCompiler interface {
	// Ensure compiles g and saves it under key unless the stored definition
	// already has the same content hash. It reports whether the store changed.
	Ensure(ctx context.Context, key string, g *authoring.Graph) (*domain.GraphDefinition, bool, error)
}
