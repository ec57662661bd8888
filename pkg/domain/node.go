package domain

import "github.com/aretw0/weft/pkg/value"

// Execution is the result of running a flow node.
type Execution uint8

const (
	// Done schedules nothing further.
	Done Execution = iota
	// Running re-enters the node through Update on the next frame.
	Running
	// Yield re-enters the node later this frame, after the current stack drains.
	Yield
	// YieldUntilEndOfFrame re-enters the node in the end-of-frame phase.
	YieldUntilEndOfFrame
)

func (e Execution) String() string {
	switch e {
	case Done:
		return "done"
	case Running:
		return "running"
	case Yield:
		return "yield"
	case YieldUntilEndOfFrame:
		return "yield-until-end-of-frame"
	}
	return "invalid"
}

// DataNode computes its outputs from its inputs when pulled.
type DataNode interface {
	Evaluate(ctx GraphContext)
}

// FlowNode runs when one of its input triggers fires. port is zero for entry points.
type FlowNode interface {
	Execute(ctx GraphContext, port InputTriggerPort) Execution
}

// UpdatableNode is re-entered after returning anything other than Done.
type UpdatableNode interface {
	Update(ctx GraphContext) Execution
}

// StatefulNode owns one private state record per instance.
type StatefulNode interface {
	NewState() any
}

// CoroutineStatefulNode owns one state record per active coroutine.
type CoroutineStatefulNode interface {
	NewCoroutineState() any
}

// EntryKind tells the executor when to fire an entry point.
type EntryKind uint8

const (
	EntryStart EntryKind = iota + 1
	EntryUpdate
	EntryEvent
	EntrySubgraphInput
)

// EntryPointNode is a node the executor fires itself.
type EntryPointNode interface {
	EntryPoint() EntryKind
}

// EventNode is an entry point woken by the event bus.
// An empty target (global) listens to every entity.
type EventNode interface {
	EntryPointNode
	Hook() (name string, global bool)
}

// MultiPortNode declares multi-port widths from its configuration.
// A width of zero leaves the decision to the authoring graph.
type MultiPortNode interface {
	PortWidth(field string) int
}

// FoldableNode may be evaluated at compile time when all its inputs are constant.
type FoldableNode interface {
	DataNode
	Foldable() bool
}

// ConstantNode holds a literal written once at instance construction.
type ConstantNode interface {
	Constant() value.Value
	ConstantOutput() OutputDataPort
}

// VariableNode binds one of its outputs to a declared variable's slot.
type VariableNode interface {
	VariableName() string
	VariableOutput() OutputDataPort
}

// SubgraphNode calls a nested graph definition.
type SubgraphNode interface {
	SubgraphIndex() int
}

// ReflectionNode invokes a reflected member.
type ReflectionNode interface {
	MemberIndex() int
}

// PortResolver maps authoring port names that do not follow field names,
// such as ports generated per variable, to a field and sub-port.
type PortResolver interface {
	ResolvePort(name string) (field string, sub int, ok bool)
}

// SubgraphBinder is a SubgraphNode that names its callee and receives the compiled
// definition before its ports are mapped, so it can size ports per callee variable.
type SubgraphBinder interface {
	SubgraphNode
	SubgraphName() string
	BindSubgraph(index int, def *GraphDefinition)
}
