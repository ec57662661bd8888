package runtime

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// execContext is the GraphContext of one activation.
type execContext struct {
	g   *GraphInstance
	act activation
}

var _ domain.GraphContext = (*execContext)(nil)

func (c *execContext) Node() domain.NodeID           { return c.act.node }
func (c *execContext) Entity() domain.Entity         { return c.g.entity }
func (c *execContext) Coroutine() domain.CoroutineID { return c.act.coroutine }
func (c *execContext) Time() domain.FrameTime        { return c.g.clock }
func (c *execContext) Logger() *slog.Logger          { return c.g.logger }
func (c *execContext) EventPayload() value.Value     { return c.act.payload }

func (c *execContext) Read(p domain.InputDataPort) value.Value {
	return c.g.values[c.g.read(p.Port, c.act.coroutine)]
}

func (c *execContext) Write(p domain.OutputDataPort, v value.Value) {
	if p.Port == domain.NoPort {
		return
	}
	c.g.setSlot(c.g.def.Port(p.Port).Slot(), v)
}

func (c *execContext) Trigger(p domain.OutputTriggerPort) {
	c.g.trigger(p.Port, c.act.coroutine)
}

func (c *execContext) TriggerAsCoroutine(p domain.OutputTriggerPort) {
	c.g.trigger(p.Port, c.g.newCoroutine())
}

// State returns the per-coroutine record of coroutine-stateful nodes, allocated
// on first use, or the instance record of stateful nodes.
func (c *execContext) State() any {
	g := c.g
	i := int(c.act.node) - 1
	layout := g.def.StateLayout()
	if slot := layout.CoroutineState[i]; slot >= 0 {
		arena, ok := g.coStates[c.act.coroutine]
		if !ok {
			arena = make([]any, layout.CoroutineCount)
			g.coStates[c.act.coroutine] = arena
		}
		if arena[slot] == nil {
			arena[slot] = g.def.Node(c.act.node).(domain.CoroutineStatefulNode).NewCoroutineState()
		}
		return arena[slot]
	}
	if slot := layout.State[i]; slot >= 0 {
		return g.states[slot]
	}
	domain.Invariantf("node %s (%s) has no state", c.act.node, domain.NodeTypeName(g.def.Node(c.act.node)))
	return nil
}

func (c *execContext) loopEvent(id domain.LoopID) *domain.LoopEvent {
	return &domain.LoopEvent{Graph: c.g.def.Name, Entity: c.g.entity, NodeID: c.act.node, Loop: id}
}

func (c *execContext) BeginLoop() domain.LoopID {
	id := loops.begin()
	c.g.loops[c.act.coroutine] = append(c.g.loops[c.act.coroutine], id)
	if c.g.hooks.OnLoopBegin != nil {
		c.g.hooks.OnLoopBegin(c.g.ctx, c.loopEvent(id))
	}
	return id
}

func (c *execContext) EndLoop(id domain.LoopID) {
	if !loops.end(id) {
		return
	}
	open := c.g.loops[c.act.coroutine]
	for i := len(open) - 1; i >= 0; i-- {
		if open[i] == id {
			c.g.loops[c.act.coroutine] = append(open[:i], open[i+1:]...)
			break
		}
	}
	if c.g.hooks.OnLoopEnd != nil {
		c.g.hooks.OnLoopEnd(c.g.ctx, c.loopEvent(id))
	}
}

func (c *execContext) BreakLoop() {
	open := c.g.loops[c.act.coroutine]
	if len(open) == 0 {
		c.g.logger.Warn("break outside of a loop", "graph", c.g.def.Name, "node", c.act.node)
		return
	}
	loops.breakLoop(open[len(open)-1])
}

func (c *execContext) IsLoopBroken(id domain.LoopID) bool {
	return loops.broken(id)
}

func (c *execContext) Subgraph() domain.Subgraph {
	layout := c.g.def.StateLayout()
	slot := layout.Subgraph[int(c.act.node)-1]
	if slot < 0 {
		domain.Invariantf("node %s is not a subgraph call", c.act.node)
	}
	return c.g.nested[slot]
}

func (c *execContext) SendEvent(hook domain.Hook, payload value.Value) {
	if c.g.bus == nil {
		c.g.logger.Warn("event dropped, no bus", "graph", c.g.def.Name, "hook", hook.Name)
		return
	}
	c.g.bus.Trigger(c.g.ctx, hook, payload)
}

func (c *execContext) InvokeMember(index int, args []value.Value) (value.Value, error) {
	g := c.g
	if index < 0 || index >= len(g.members) {
		return value.Value{}, fmt.Errorf("member index %d out of range", index)
	}
	fn := g.members[index]
	if fn == nil {
		m := g.def.ReflectedMembers[index]
		if g.resolver == nil {
			return value.Value{}, fmt.Errorf("%w: no resolver for %s", domain.ErrMemberNotFound, m.Key())
		}
		var ok bool
		if fn, ok = g.resolver.ResolveMember(m); !ok {
			return value.Value{}, fmt.Errorf("%w: %s", domain.ErrMemberNotFound, m.Key())
		}
		g.members[index] = fn
	}
	return fn(args)
}
