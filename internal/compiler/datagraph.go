package compiler

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// DataGraphInstance evaluates pure data nodes straight off a GraphBuilder.
// It has no slots, no state and no scheduler: any trigger, state, loop, event or
// subgraph request is refused with domain.ErrNotSupported.
type DataGraphInstance struct {
	b        *GraphBuilder
	logger   *slog.Logger
	outputs  map[domain.PortIndex]value.Value
	visiting map[domain.NodeID]bool
	current  domain.NodeID
}

// NewDataGraphInstance returns an evaluator over b.
func NewDataGraphInstance(b *GraphBuilder) *DataGraphInstance {
	return &DataGraphInstance{
		b:        b,
		logger:   logging.NewNop(),
		outputs:  make(map[domain.PortIndex]value.Value),
		visiting: make(map[domain.NodeID]bool),
	}
}

// Evaluate returns the value of an output data port, evaluating its node and
// the node's producers on demand. Panics raised by nodes are returned as errors.
func (d *DataGraphInstance) Evaluate(out domain.PortIndex) (v value.Value, err error) {
	defer func() {
		switch r := recover().(type) {
		case nil:
		case error:
			err = fmt.Errorf("evaluate port %d: %w", out, r)
		default:
			err = fmt.Errorf("evaluate port %d: %v", out, r)
		}
	}()
	return d.output(out), nil
}

func (d *DataGraphInstance) output(out domain.PortIndex) value.Value {
	if v, ok := d.outputs[out]; ok {
		return v
	}
	owner, ok := d.b.Mapper().Owner(out)
	if !ok {
		domain.Invariantf("read of unassigned port %d", out)
	}
	n, ok := d.b.Node(owner)
	if !ok {
		domain.Invariantf("read of removed node %s", owner)
	}
	switch node := n.(type) {
	case domain.ConstantNode:
		d.outputs[node.ConstantOutput().Port] = node.Constant()
	case domain.DataNode:
		if d.visiting[owner] {
			domain.Invariantf("data cycle through node %s", owner)
		}
		d.visiting[owner] = true
		prev := d.current
		d.current = owner
		node.Evaluate(d)
		d.current = prev
		delete(d.visiting, owner)
	default:
		panic(fmt.Errorf("%w: node %s (%s) is not a data node", domain.ErrNotSupported, owner, domain.NodeTypeName(n)))
	}
	return d.outputs[out]
}

func (d *DataGraphInstance) Node() domain.NodeID           { return d.current }
func (d *DataGraphInstance) Entity() domain.Entity         { return domain.NoEntity }
func (d *DataGraphInstance) Coroutine() domain.CoroutineID { return 0 }
func (d *DataGraphInstance) Time() domain.FrameTime        { return domain.FrameTime{} }
func (d *DataGraphInstance) Logger() *slog.Logger          { return d.logger }

func (d *DataGraphInstance) Read(p domain.InputDataPort) value.Value {
	if p.Port == domain.NoPort {
		return value.Value{}
	}
	src, ok := d.b.Source(p.Port)
	if !ok {
		return value.Value{}
	}
	return d.output(src)
}

func (d *DataGraphInstance) Write(p domain.OutputDataPort, v value.Value) {
	if p.Port == domain.NoPort {
		return
	}
	d.outputs[p.Port] = v
}

func unsupported(op string) {
	panic(fmt.Errorf("%w: %s during constant evaluation", domain.ErrNotSupported, op))
}

func (d *DataGraphInstance) Trigger(domain.OutputTriggerPort)            { unsupported("trigger") }
func (d *DataGraphInstance) TriggerAsCoroutine(domain.OutputTriggerPort) { unsupported("trigger") }
func (d *DataGraphInstance) State() any                                  { unsupported("state"); return nil }
func (d *DataGraphInstance) BeginLoop() domain.LoopID                    { unsupported("loop"); return 0 }
func (d *DataGraphInstance) EndLoop(domain.LoopID)                       { unsupported("loop") }
func (d *DataGraphInstance) BreakLoop()                                  { unsupported("loop") }
func (d *DataGraphInstance) IsLoopBroken(domain.LoopID) bool             { unsupported("loop"); return false }
func (d *DataGraphInstance) Subgraph() domain.Subgraph                   { unsupported("subgraph"); return nil }
func (d *DataGraphInstance) SendEvent(domain.Hook, value.Value)          { unsupported("event") }
func (d *DataGraphInstance) EventPayload() value.Value                   { unsupported("event"); return value.Value{} }

func (d *DataGraphInstance) InvokeMember(int, []value.Value) (value.Value, error) {
	unsupported("member call")
	return value.Value{}, nil
}

var _ domain.GraphContext = (*DataGraphInstance)(nil)
