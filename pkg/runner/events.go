package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/internal/runtime"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
	"github.com/aretw0/weft/pkg/value"
)

// EventLine is one line of the JSON-Lines event stream:
//
//	{"event": "hit", "entity": 2, "payload": 7}
//
// A zero or missing entity addresses global listeners.
type EventLine struct {
	Event   string          `json:"event"`
	Entity  uint64          `json:"entity,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventReader feeds events read from a JSON-Lines stream into an EventSink,
// which lets a host be driven from stdin or a pipe.
type EventReader struct {
	Reader *bufio.Reader
	Sink   ports.EventSink
	Logger *slog.Logger
}

// NewEventReader creates a reader delivering the events of r to sink.
func NewEventReader(r io.Reader, sink ports.EventSink) *EventReader {
	return &EventReader{
		Reader: bufio.NewReader(r),
		Sink:   sink,
		Logger: logging.NewNop(),
	}
}

// Run reads until EOF or ctx is done. Malformed lines are logged and skipped;
// a sink error stops the reader.
func (h *EventReader) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		text, err := h.Reader.ReadString('\n')
		if line := strings.TrimSpace(text); line != "" {
			if serr := h.deliver(ctx, line); serr != nil {
				return serr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read events: %w", err)
		}
	}
}

func (h *EventReader) deliver(ctx context.Context, line string) error {
	ev, payload, err := ParseEventLine([]byte(line))
	if err != nil {
		h.Logger.Warn("skipping malformed event line", "err", err, "line", line)
		return nil
	}
	if err := h.Sink.SendEvent(ctx, ev.Event, domain.Entity(ev.Entity), payload); err != nil {
		return fmt.Errorf("failed to deliver event %s: %w", ev.Event, err)
	}
	return nil
}

// ParseEventLine decodes one event line and its payload.
// A bare JSON string is accepted as an event name with no payload.
func ParseEventLine(b []byte) (EventLine, value.Value, error) {
	var ev EventLine
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		ev.Event = name
	} else if err := json.Unmarshal(b, &ev); err != nil {
		return ev, value.Value{}, err
	}
	if ev.Event == "" {
		return ev, value.Value{}, fmt.Errorf("event line has no event name")
	}
	payload, err := value.FromJSON(ev.Payload)
	if err != nil {
		return ev, value.Value{}, err
	}
	return ev, payload, nil
}

// HostSink delivers events to the bus of a runtime host. Delivery is posted to
// the host goroutine and happens at the start of the next tick.
type HostSink struct {
	Host *runtime.Host
}

// SendEvent implements ports.EventSink.
func (s HostSink) SendEvent(ctx context.Context, hook string, target domain.Entity, payload value.Value) error {
	if hook == "" {
		return fmt.Errorf("event has no name")
	}
	ctx = context.WithoutCancel(ctx)
	s.Host.Post(func() {
		s.Host.Bus().Trigger(ctx, domain.Hook{Name: hook, Target: target}, payload)
	})
	return nil
}
