package domain

import (
	"context"
	"time"
)

// NodeEvent describes a node activation.
type NodeEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	Graph     string      `json:"graph"`
	Entity    Entity      `json:"entity"`
	NodeID    NodeID      `json:"node_id"`
	NodeType  string      `json:"node_type"`
	Coroutine CoroutineID `json:"coroutine,omitempty"`
	Result    Execution   `json:"result"`
}

// FrameEvent describes a frame-level occurrence.
type FrameEvent struct {
	Graph    string `json:"graph"`
	Entity   Entity `json:"entity"`
	Frame    uint64 `json:"frame"`
	Executed int    `json:"executed"`
}

// LoopEvent describes a loop starting or ending.
type LoopEvent struct {
	Graph  string `json:"graph"`
	Entity Entity `json:"entity"`
	NodeID NodeID `json:"node_id"`
	Loop   LoopID `json:"loop"`
}

// LifecycleHooks defines callbacks for executor observability.
type LifecycleHooks struct {
	OnNodeExecute  func(context.Context, *NodeEvent)
	OnNodeError    func(context.Context, *NodeEvent, error)
	OnFrameAborted func(context.Context, *FrameEvent)
	OnFrameEnd     func(context.Context, *FrameEvent)
	OnLoopBegin    func(context.Context, *LoopEvent)
	OnLoopEnd      func(context.Context, *LoopEvent)
}

// Merge returns hooks calling h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeExecute:  chain(h.OnNodeExecute, other.OnNodeExecute),
		OnNodeError:    chain2(h.OnNodeError, other.OnNodeError),
		OnFrameAborted: chain(h.OnFrameAborted, other.OnFrameAborted),
		OnFrameEnd:     chain(h.OnFrameEnd, other.OnFrameEnd),
		OnLoopBegin:    chain(h.OnLoopBegin, other.OnLoopBegin),
		OnLoopEnd:      chain(h.OnLoopEnd, other.OnLoopEnd),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chain2[E any](a, b func(context.Context, *E, error)) func(context.Context, *E, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *E, err error) {
		a(ctx, e, err)
		b(ctx, e, err)
	}
}
