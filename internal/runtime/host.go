package runtime

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/events"
)

// Host drives every graph instance of a process frame by frame.
//
// Except for Post, Host methods must be called from the goroutine that calls
// Tick. Other goroutines hand work over with Post.
type Host struct {
	bus      *events.Bus
	logger   *slog.Logger
	opts     []InstanceOption
	entities []domain.Entity
	byEntity map[domain.Entity]*GraphInstance
	last     domain.Entity
	frame    uint64

	mu     sync.Mutex
	posted []func()
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostBus sets the event bus shared by spawned instances.
func WithHostBus(bus *events.Bus) HostOption {
	return func(h *Host) {
		h.bus = bus
	}
}

// WithHostLogger sets the host logger. Spawned instances inherit it unless
// WithInstanceOptions overrides it.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithInstanceOptions appends options applied to every spawned instance.
func WithInstanceOptions(opts ...InstanceOption) HostOption {
	return func(h *Host) {
		h.opts = append(h.opts, opts...)
	}
}

// NewHost creates a host with no instances.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		logger:   logging.NewNop(),
		byEntity: make(map[domain.Entity]*GraphInstance),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.bus == nil {
		h.bus = events.NewBus(events.WithLogger(h.logger))
	}
	return h
}

// Bus returns the event bus of the host.
func (h *Host) Bus() *events.Bus { return h.bus }

// Frame returns the number of completed ticks.
func (h *Host) Frame() uint64 { return h.frame }

// Spawn creates and starts an instance of def for a fresh entity.
func (h *Host) Spawn(def *domain.GraphDefinition, opts ...InstanceOption) domain.Entity {
	h.last++
	for h.last == domain.NoEntity || h.byEntity[h.last] != nil {
		h.last++
	}
	h.spawnAs(h.last, def, opts...).Start()
	return h.last
}

func (h *Host) spawnAs(e domain.Entity, def *domain.GraphDefinition, opts ...InstanceOption) *GraphInstance {
	all := append([]InstanceOption{WithLogger(h.logger)}, h.opts...)
	all = append(all, opts...)
	all = append(all, WithBus(h.bus))
	inst := NewGraphInstance(e, def, all...)
	if _, exists := h.byEntity[e]; !exists {
		h.entities = append(h.entities, e)
	}
	h.byEntity[e] = inst
	h.logger.Debug("instance spawned", "graph", def.Name, "entity", uint64(e))
	return inst
}

// Despawn destroys the instance of entity e.
func (h *Host) Despawn(e domain.Entity) bool {
	inst, ok := h.byEntity[e]
	if !ok {
		return false
	}
	inst.Destroy()
	delete(h.byEntity, e)
	for i, x := range h.entities {
		if x == e {
			h.entities = append(h.entities[:i], h.entities[i+1:]...)
			break
		}
	}
	h.logger.Debug("instance despawned", "graph", inst.def.Name, "entity", uint64(e))
	return true
}

// Reload replaces every instance running a graph named def.Name with a stale
// hash by a fresh instance of def. Variables present in both definitions keep
// their values. It returns the number of instances replaced.
func (h *Host) Reload(def *domain.GraphDefinition) int {
	n := 0
	for _, e := range h.Entities() {
		old := h.byEntity[e]
		if old.def.Name != def.Name || old.def.Hash == def.Hash {
			continue
		}
		carried := make(map[uint64]int)
		for i, v := range old.def.Variables {
			carried[v.BindingID] = i
		}
		saved := old.Values()
		for _, v := range saved {
			v.Retain()
		}
		old.Destroy()

		inst := h.spawnAs(e, def, old.opts...)
		for _, v := range def.Variables {
			if i, ok := carried[v.BindingID]; ok {
				inst.SetVariable(v.BindingID, saved[old.def.Variables[i].DataIndex])
			}
		}
		inst.Start()
		for _, v := range saved {
			v.Release()
		}
		h.logger.Info("instance reloaded", "graph", def.Name, "entity", uint64(e),
			"hash", domain.FormatHash(def.Hash))
		n++
	}
	return n
}

// Instance returns the instance of entity e.
func (h *Host) Instance(e domain.Entity) (*GraphInstance, bool) {
	inst, ok := h.byEntity[e]
	return inst, ok
}

// Entities lists the live entities in spawn order.
func (h *Host) Entities() []domain.Entity {
	return append([]domain.Entity(nil), h.entities...)
}

// Post queues fn to run on the host goroutine at the start of the next Tick.
// It is safe for concurrent use.
func (h *Host) Post(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.posted = append(h.posted, fn)
}

// Dispatch runs the queued functions in posting order.
func (h *Host) Dispatch() int {
	h.mu.Lock()
	posted := h.posted
	h.posted = nil
	h.mu.Unlock()
	for _, fn := range posted {
		fn()
	}
	return len(posted)
}

// Tick runs one frame: posted work, then every phase across all instances in
// phase order, then FinishFrame on each.
func (h *Host) Tick(ctx context.Context, delta time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.Dispatch()
	instances := h.instances()
	for _, inst := range instances {
		inst.Advance(delta)
	}
	for p := PhaseStandard; p < phaseCount; p++ {
		for _, inst := range instances {
			inst.Resume(p)
		}
	}
	for _, inst := range instances {
		inst.FinishFrame()
	}
	h.frame++
	return nil
}

func (h *Host) instances() []*GraphInstance {
	out := make([]*GraphInstance, 0, len(h.entities))
	for _, e := range h.entities {
		out = append(out, h.byEntity[e])
	}
	return out
}

// Close despawns every instance.
func (h *Host) Close() {
	es := h.Entities()
	sort.Slice(es, func(i, j int) bool { return es[i] > es[j] })
	for _, e := range es {
		h.Despawn(e)
	}
}
