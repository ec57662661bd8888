package runtime

import (
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/weft/pkg/domain"
)

// drain runs activations until the stack and the later list are empty. The
// stack is LIFO so a node's downstream runs before its siblings; the later list
// is FIFO and only consulted once the stack is empty.
func (g *GraphInstance) drain() {
	if g.draining {
		return
	}
	g.draining = true
	defer func() { g.draining = false }()

	for !g.aborted {
		if len(g.stack) == 0 && len(g.later) == 0 {
			return
		}
		if g.executed >= g.maxNodes {
			g.abort()
			return
		}
		var act activation
		if len(g.stack) > 0 {
			act = g.stack[len(g.stack)-1]
			g.stack = g.stack[:len(g.stack)-1]
		} else {
			act = g.later[0]
			g.later = g.later[1:]
		}
		g.executed++
		g.execute(act)
	}
}

// abort stops the frame. Unfinished work moves to the front of the same phase
// of the next frame, in the order it would have run.
func (g *GraphInstance) abort() {
	g.logger.Warn("node budget exhausted, aborting frame",
		"graph", g.def.Name, "entity", uint64(g.entity), "frame", g.clock.Frame, "max_nodes", g.maxNodes)
	g.aborted = true
	carried := make([]activation, 0, len(g.stack)+len(g.later))
	for i := len(g.stack) - 1; i >= 0; i-- {
		carried = append(carried, g.stack[i])
	}
	carried = append(carried, g.later...)
	g.current[g.phase] = append(carried, g.current[g.phase]...)
	g.stack, g.later = g.stack[:0], g.later[:0]
	if g.hooks.OnFrameAborted != nil {
		g.hooks.OnFrameAborted(g.ctx, g.frameEvent())
	}
}

func (g *GraphInstance) execute(act activation) {
	node := g.def.Node(act.node)
	ctx := &execContext{g: g, act: act}
	result, err := g.run(node, ctx)
	if err != nil {
		g.fail(act, node, err)
		return
	}
	if g.tracing && g.hooks.OnNodeExecute != nil {
		g.hooks.OnNodeExecute(g.ctx, g.nodeEvent(act, node, result))
	}
	g.schedule(act, result)
}

// run invokes the node, converting panics into errors. Invariant violations are
// re-raised, as are all panics when tracing is off.
func (g *GraphInstance) run(node domain.Node, ctx *execContext) (result domain.Execution, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var inv *domain.InvariantError
		if e, ok := r.(error); ok && errors.As(e, &inv) || !g.tracing {
			panic(r)
		}
		if e, ok := r.(error); ok {
			err = e
		} else {
			err = fmt.Errorf("%v", r)
		}
	}()

	if ctx.act.resume {
		u, ok := node.(domain.UpdatableNode)
		if !ok {
			domain.Invariantf("node %s (%s) suspended but cannot be updated", ctx.act.node, domain.NodeTypeName(node))
		}
		return u.Update(ctx), nil
	}
	f, ok := node.(domain.FlowNode)
	if !ok {
		domain.Invariantf("node %s (%s) was triggered but is not a flow node", ctx.act.node, domain.NodeTypeName(node))
	}
	return f.Execute(ctx, domain.InputTriggerPort{Port: ctx.act.port}), nil
}

// NodeError is the failure recorded for one node activation.
type NodeError struct {
	Node  domain.NodeID
	Frame uint64
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s failed in frame %d: %v", e.Node, e.Frame, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

func (g *GraphInstance) fail(act activation, node domain.Node, cause error) {
	err := &NodeError{Node: act.node, Frame: g.clock.Frame, Err: cause}
	g.errs[act.node] = err
	g.logger.Error("node failed", "graph", g.def.Name, "node", act.node, "type", domain.NodeTypeName(node), "err", cause)
	if g.hooks.OnNodeError != nil {
		g.hooks.OnNodeError(g.ctx, g.nodeEvent(act, node, domain.Done), err)
	}
}

// schedule queues the continuation a node asked for.
func (g *GraphInstance) schedule(act activation, result domain.Execution) {
	cont := activation{node: act.node, coroutine: act.coroutine, resume: true}
	switch result {
	case domain.Done:
	case domain.Running:
		phase := PhaseStandard
		if act.coroutine != 0 {
			phase = PhaseCoroutine
		}
		g.next[phase] = append(g.next[phase], cont)
	case domain.Yield:
		g.later = append(g.later, cont)
	case domain.YieldUntilEndOfFrame:
		if g.phase == PhaseEndOfFrame {
			g.next[PhaseEndOfFrame] = append(g.next[PhaseEndOfFrame], cont)
		} else {
			g.current[PhaseEndOfFrame] = append(g.current[PhaseEndOfFrame], cont)
		}
	default:
		domain.Invariantf("node %s returned unknown execution %d", act.node, result)
	}
}

func (g *GraphInstance) nodeEvent(act activation, node domain.Node, result domain.Execution) *domain.NodeEvent {
	return &domain.NodeEvent{
		Timestamp: time.Now(),
		Graph:     g.def.Name,
		Entity:    g.entity,
		NodeID:    act.node,
		NodeType:  domain.NodeTypeName(node),
		Coroutine: act.coroutine,
		Result:    result,
	}
}

// trigger schedules the input trigger driven by out on coroutine co.
func (g *GraphInstance) trigger(out domain.PortIndex, co domain.CoroutineID) {
	if out == domain.NoPort {
		return
	}
	target := g.def.Port(out).Target()
	if target == domain.NoPort {
		return
	}
	g.stack = append(g.stack, activation{node: g.def.Port(target).Node, port: target, coroutine: co})
}

func (g *GraphInstance) newCoroutine() domain.CoroutineID {
	g.lastCoroutine++
	if g.lastCoroutine == 0 {
		g.lastCoroutine = 1
	}
	return g.lastCoroutine
}

// read resolves an input data port to its slot, first evaluating the producing
// data node unless it is a constant.
func (g *GraphInstance) read(in domain.PortIndex, co domain.CoroutineID) domain.DataIndex {
	if in == domain.NoPort {
		return domain.NullSlot
	}
	slot := g.def.Port(in).Slot()
	if slot == domain.NullSlot {
		return slot
	}
	producer := g.def.DataPortTable[slot]
	if producer == domain.NoPort {
		return slot
	}
	owner := g.def.Port(producer).Node
	n := g.def.Node(owner)
	if _, constant := n.(domain.ConstantNode); constant {
		return slot
	}
	if dn, ok := n.(domain.DataNode); ok {
		if g.evaluating[owner] {
			domain.Invariantf("data cycle through node %s", owner)
		}
		g.evaluating[owner] = true
		defer delete(g.evaluating, owner)
		dn.Evaluate(&execContext{g: g, act: activation{node: owner, coroutine: co}})
	}
	return slot
}
