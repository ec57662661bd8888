package domain

import (
	"log/slog"
	"time"

	"github.com/aretw0/weft/pkg/value"
)

// FrameTime is the clock seen by nodes.
type FrameTime struct {
	Frame   uint64
	Delta   time.Duration
	Elapsed time.Duration
}

// Hook addresses an event bus channel. Target NoEntity reaches global listeners only.
type Hook struct {
	Name   string
	Target Entity
}

// Subgraph is a nested graph instance owned by a call node.
type Subgraph interface {
	SetInput(name string, v value.Value) bool
	Output(name string) value.Value
	// Invoke fires the nested input entry points and drains the nested graph.
	Invoke()
}

// MemberFunc is a resolved reflected member.
type MemberFunc func(args []value.Value) (value.Value, error)

// MemberResolver resolves reflected members to callables.
type MemberResolver interface {
	ResolveMember(m ReflectedMember) (MemberFunc, bool)
}

// GraphContext is the executor surface exposed to a running node.
type GraphContext interface {
	Node() NodeID
	Entity() Entity
	Coroutine() CoroutineID
	Time() FrameTime
	Logger() *slog.Logger

	// Read pulls the value of an input, evaluating its producer when needed.
	Read(p InputDataPort) value.Value
	// Write stores v in the output's slot, transferring boxed ownership.
	Write(p OutputDataPort, v value.Value)
	// Trigger schedules the input driven by p on the current coroutine.
	Trigger(p OutputTriggerPort)
	// TriggerAsCoroutine schedules the input driven by p on a fresh coroutine.
	TriggerAsCoroutine(p OutputTriggerPort)

	// State returns the node's state record, or its per-coroutine record.
	State() any

	BeginLoop() LoopID
	EndLoop(id LoopID)
	BreakLoop()
	IsLoopBroken(id LoopID) bool

	Subgraph() Subgraph
	SendEvent(hook Hook, payload value.Value)
	EventPayload() value.Value
	InvokeMember(index int, args []value.Value) (value.Value, error)
}

// StateOf returns the typed state record of the running node.
func StateOf[T any](ctx GraphContext) *T {
	s, ok := ctx.State().(*T)
	if !ok {
		Invariantf("node %s state is %T", ctx.Node(), ctx.State())
	}
	return s
}
