package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/events"
	"github.com/aretw0/weft/pkg/value"
)

// DefaultMaxNodesPerFrame caps the activations one instance runs per frame.
const DefaultMaxNodesPerFrame = 1024

// Phase is a scheduling sub-phase of a frame.
type Phase uint8

const (
	// PhaseStandard runs update entry points and main-flow continuations.
	PhaseStandard Phase = iota
	// PhaseCoroutine runs continuations of coroutines.
	PhaseCoroutine
	// PhaseEndOfFrame runs nodes that yielded until the end of the frame.
	PhaseEndOfFrame
	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseStandard:
		return "standard"
	case PhaseCoroutine:
		return "coroutine"
	case PhaseEndOfFrame:
		return "end-of-frame"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// activation is one scheduled node execution. Port 0 enters the node as an
// entry point; resume re-enters it through Update.
type activation struct {
	node      domain.NodeID
	port      domain.PortIndex
	coroutine domain.CoroutineID
	resume    bool
	payload   value.Value
}

// InstanceOption configures a GraphInstance.
type InstanceOption func(*GraphInstance)

// WithLogger sets the logger nodes write to.
func WithLogger(logger *slog.Logger) InstanceOption {
	return func(g *GraphInstance) {
		g.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) InstanceOption {
	return func(g *GraphInstance) {
		g.hooks = hooks
	}
}

// WithBus registers the instance's event entry points on bus.
func WithBus(bus *events.Bus) InstanceOption {
	return func(g *GraphInstance) {
		g.bus = bus
	}
}

// WithResolver sets how reflected members are resolved.
func WithResolver(r domain.MemberResolver) InstanceOption {
	return func(g *GraphInstance) {
		g.resolver = r
	}
}

// WithMaxNodesPerFrame overrides DefaultMaxNodesPerFrame.
func WithMaxNodesPerFrame(n int) InstanceOption {
	return func(g *GraphInstance) {
		if n > 0 {
			g.maxNodes = n
		}
	}
}

// WithTracing toggles per-node error capture and execution hooks. With tracing
// off a node panic propagates to the caller of the phase.
func WithTracing(enabled bool) InstanceOption {
	return func(g *GraphInstance) {
		g.tracing = enabled
	}
}

// WithContext sets the context handed to lifecycle hooks.
func WithContext(ctx context.Context) InstanceOption {
	return func(g *GraphInstance) {
		g.ctx = ctx
	}
}

// withParent marks a nested instance owned by a call node of parent.
func withParent(parent *GraphInstance, node domain.NodeID) InstanceOption {
	return func(g *GraphInstance) {
		g.parent = parent
		g.parentNode = node
	}
}

// GraphInstance is one live execution of a GraphDefinition.
type GraphInstance struct {
	def      *domain.GraphDefinition
	entity   domain.Entity
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	bus      *events.Bus
	resolver domain.MemberResolver
	maxNodes int
	tracing  bool
	ctx      context.Context
	opts     []InstanceOption

	parent     *GraphInstance
	parentNode domain.NodeID

	values   []value.Value
	states   []any
	coStates map[domain.CoroutineID][]any
	nested   []*GraphInstance
	members  []domain.MemberFunc
	entries  map[domain.EntryKind][]domain.NodeID
	tokens   []events.Token

	stack      []activation
	later      []activation
	current    [phaseCount][]activation
	next       [phaseCount][]activation
	phase      Phase
	executed   int
	aborted    bool
	draining   bool
	evaluating map[domain.NodeID]bool

	loops         map[domain.CoroutineID][]domain.LoopID
	lastCoroutine domain.CoroutineID
	clock         domain.FrameTime
	errs          map[domain.NodeID]error
	started       bool
	destroyed     bool
}

// NewGraphInstance builds an instance of def for entity. Variables receive their
// initial values, constants are written once, stateful nodes get their state
// records, nested instances are created per call node and event entry points
// are registered on the bus.
func NewGraphInstance(entity domain.Entity, def *domain.GraphDefinition, opts ...InstanceOption) *GraphInstance {
	g := &GraphInstance{
		def:        def,
		entity:     entity,
		logger:     logging.NewNop(),
		maxNodes:   DefaultMaxNodesPerFrame,
		tracing:    true,
		ctx:        context.Background(),
		opts:       opts,
		values:     make([]value.Value, def.SlotCount()),
		coStates:   make(map[domain.CoroutineID][]any),
		entries:    make(map[domain.EntryKind][]domain.NodeID),
		evaluating: make(map[domain.NodeID]bool),
		loops:      make(map[domain.CoroutineID][]domain.LoopID),
		errs:       make(map[domain.NodeID]error),
	}
	for _, opt := range opts {
		opt(g)
	}

	for i, v := range def.Variables {
		g.setSlot(v.DataIndex, def.VariableInitValues[i])
	}

	layout := def.StateLayout()
	g.states = make([]any, layout.StateCount)
	g.nested = make([]*GraphInstance, layout.SubgraphCount)
	g.members = make([]domain.MemberFunc, len(def.ReflectedMembers))
	for i, n := range def.NodeTable {
		id := domain.NodeID(i + 1)
		if c, ok := n.(domain.ConstantNode); ok {
			g.setSlot(def.Port(c.ConstantOutput().Port).Slot(), c.Constant())
		}
		if s, ok := n.(domain.StatefulNode); ok {
			g.states[layout.State[i]] = s.NewState()
		}
		if s, ok := n.(domain.SubgraphNode); ok {
			child := def.GraphReferences[s.SubgraphIndex()]
			childOpts := append(append([]InstanceOption(nil), opts...), withParent(g, id))
			g.nested[layout.Subgraph[i]] = NewGraphInstance(entity, child, childOpts...)
		}
		if e, ok := n.(domain.EntryPointNode); ok {
			kind := e.EntryPoint()
			g.entries[kind] = append(g.entries[kind], id)
		}
	}
	g.registerEvents()
	return g
}

// registerEvents subscribes the event entry points. Nested instances listen
// under the entity of the instance that owns them.
func (g *GraphInstance) registerEvents() {
	if g.bus == nil {
		return
	}
	for _, id := range g.entries[domain.EntryEvent] {
		ev, ok := g.def.Node(id).(domain.EventNode)
		if !ok {
			continue
		}
		name, global := ev.Hook()
		hook := domain.Hook{Name: name, Target: g.entity}
		if global {
			hook.Target = domain.NoEntity
		}
		node := id
		g.tokens = append(g.tokens, g.bus.Register(hook, func(_ context.Context, _ domain.Hook, payload value.Value) {
			g.fire(node, payload)
		}))
	}
}

// Definition returns the compiled graph the instance runs.
func (g *GraphInstance) Definition() *domain.GraphDefinition { return g.def }

// Entity returns the entity the instance runs for.
func (g *GraphInstance) Entity() domain.Entity { return g.entity }

// Time returns the instance clock.
func (g *GraphInstance) Time() domain.FrameTime { return g.clock }

// Start fires the start entry points and closes frame zero.
func (g *GraphInstance) Start() {
	if g.started || g.destroyed {
		return
	}
	g.started = true
	g.pushEntries(domain.EntryStart)
	g.drain()
	g.FinishFrame()
}

// Advance moves the clock one frame forward.
func (g *GraphInstance) Advance(delta time.Duration) {
	g.clock.Frame++
	g.clock.Delta = delta
	g.clock.Elapsed += delta
	for _, child := range g.nested {
		child.Advance(delta)
	}
}

// Resume runs one phase of the current frame to completion, or until the
// per-frame node budget runs out.
func (g *GraphInstance) Resume(phase Phase) {
	if g.destroyed || phase >= phaseCount {
		return
	}
	g.phase = phase
	if !g.aborted {
		queued := g.current[phase]
		g.current[phase] = nil
		for i := len(queued) - 1; i >= 0; i-- {
			g.stack = append(g.stack, queued[i])
		}
		if phase == PhaseStandard {
			g.pushEntries(domain.EntryUpdate)
		}
		g.drain()
	}
	for _, child := range g.nested {
		child.Resume(phase)
	}
}

// FinishFrame reports the frame, releases coroutine state with no pending work
// and promotes next-frame work to the current frame.
func (g *GraphInstance) FinishFrame() {
	if g.destroyed {
		return
	}
	if g.hooks.OnFrameEnd != nil {
		g.hooks.OnFrameEnd(g.ctx, g.frameEvent())
	}

	pending := make(map[domain.CoroutineID]bool)
	for p := range g.next {
		// work left behind by an aborted frame moves forward
		g.next[p] = append(g.current[p], g.next[p]...)
		for _, a := range g.next[p] {
			pending[a.coroutine] = true
		}
	}
	for co := range g.coStates {
		if !pending[co] {
			delete(g.coStates, co)
		}
	}
	for co, open := range g.loops {
		if len(open) == 0 {
			delete(g.loops, co)
		}
	}

	g.current, g.next = g.next, [phaseCount][]activation{}
	g.stack, g.later = g.stack[:0], g.later[:0]
	g.executed = 0
	g.aborted = false
	g.phase = PhaseStandard
	for _, child := range g.nested {
		child.FinishFrame()
	}
}

// Destroy unregisters the instance from the bus and releases every held value.
func (g *GraphInstance) Destroy() {
	if g.destroyed {
		return
	}
	g.destroyed = true
	if g.bus != nil {
		for _, tok := range g.tokens {
			g.bus.Unregister(tok)
		}
	}
	g.tokens = nil
	for i := range g.values {
		g.values[i].Release()
		g.values[i] = value.Value{}
	}
	for _, child := range g.nested {
		child.Destroy()
	}
	for _, open := range g.loops {
		for _, id := range open {
			loops.end(id)
		}
	}
	g.loops = nil
	g.stack, g.later = nil, nil
	g.current, g.next = [phaseCount][]activation{}, [phaseCount][]activation{}
	g.coStates = nil
	g.states = nil
}

// Values returns a copy of the value array.
func (g *GraphInstance) Values() []value.Value {
	return append([]value.Value(nil), g.values...)
}

// Errors returns the last error recorded per node.
func (g *GraphInstance) Errors() map[domain.NodeID]error {
	out := make(map[domain.NodeID]error, len(g.errs))
	for k, v := range g.errs {
		out[k] = v
	}
	return out
}

// ClearErrors forgets the recorded node errors.
func (g *GraphInstance) ClearErrors() {
	clear(g.errs)
}

// Pending reports whether any work is scheduled for a later phase or frame.
func (g *GraphInstance) Pending() bool {
	for p := range g.current {
		if len(g.current[p]) > 0 || len(g.next[p]) > 0 {
			return true
		}
	}
	for _, child := range g.nested {
		if child.Pending() {
			return true
		}
	}
	return false
}

// Variable reads a variable by name.
func (g *GraphInstance) Variable(name string) (value.Value, bool) {
	v, ok := g.def.VariableByName(name)
	if !ok {
		return value.Value{}, false
	}
	return g.values[v.DataIndex], true
}

// GetVariable reads a variable by binding id.
func (g *GraphInstance) GetVariable(binding uint64) (value.Value, bool) {
	v, ok := g.def.VariableByBinding(binding)
	if !ok {
		return value.Value{}, false
	}
	return g.values[v.DataIndex], true
}

// SetVariable writes a variable by binding id, coercing to its declared type.
func (g *GraphInstance) SetVariable(binding uint64, val value.Value) bool {
	v, ok := g.def.VariableByBinding(binding)
	if !ok {
		return false
	}
	if v.Type != value.Unknown {
		val = value.CoerceValueToType(v.Type, val)
	}
	g.setSlot(v.DataIndex, val)
	return true
}

// SetVariableByName writes a variable by name.
func (g *GraphInstance) SetVariableByName(name string, val value.Value) bool {
	v, ok := g.def.VariableByName(name)
	if !ok {
		return false
	}
	return g.SetVariable(v.BindingID, val)
}

// TriggerEvent fires this instance's event entry points listening for name,
// bypassing the bus.
func (g *GraphInstance) TriggerEvent(name string, payload value.Value) int {
	n := 0
	for _, id := range g.entries[domain.EntryEvent] {
		if ev, ok := g.def.Node(id).(domain.EventNode); ok {
			if hook, _ := ev.Hook(); hook == name {
				g.fire(id, payload)
				n++
			}
		}
	}
	return n
}

// fire runs an event entry point now, or queues it when the instance is
// already draining.
func (g *GraphInstance) fire(node domain.NodeID, payload value.Value) {
	if g.destroyed {
		return
	}
	g.stack = append(g.stack, activation{node: node, payload: payload})
	g.drain()
}

func (g *GraphInstance) pushEntries(kind domain.EntryKind) {
	ids := g.entries[kind]
	for i := len(ids) - 1; i >= 0; i-- {
		g.stack = append(g.stack, activation{node: ids[i]})
	}
}

// setSlot stores v in slot, taking a share of its handle and releasing the
// previous occupant's.
func (g *GraphInstance) setSlot(slot domain.DataIndex, v value.Value) {
	if slot == domain.NullSlot {
		return
	}
	v.Retain()
	g.values[slot].Release()
	g.values[slot] = v
}

func (g *GraphInstance) frameEvent() *domain.FrameEvent {
	return &domain.FrameEvent{
		Graph:    g.def.Name,
		Entity:   g.entity,
		Frame:    g.clock.Frame,
		Executed: g.executed,
	}
}
