package ports

import (
	"context"

	"github.com/aretw0/weft/pkg/authoring"
)

// GraphSource defines where authoring graphs come from (files, memory).
type GraphSource interface {
	// Load returns the normalized authoring graph with the given name.
	Load(ctx context.Context, name string) (*authoring.Graph, error)

	// List returns the available graph names in sorted order.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for sources that can notify about changes.
// This is used for hot reload.
type Watchable interface {
	// Watch returns a channel that receives the name of each graph that changed.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
