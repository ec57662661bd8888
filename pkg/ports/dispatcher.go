package ports

import (
	"context"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// EventSink delivers external stimuli to running graphs.
// Target domain.NoEntity addresses global listeners.
type EventSink interface {
	SendEvent(ctx context.Context, hook string, target domain.Entity, payload value.Value) error
}
