package nodes

import (
	"time"

	"github.com/aretw0/weft/pkg/domain"
)

type waitFlowState struct {
	seen  []bool
	fired bool
}

// WaitForFlow fires Exit once every input has been triggered. With ResetOnExit
// the inputs are cleared after firing; otherwise the node stays done until Reset.
type WaitForFlow struct {
	Count       int  `option:"count"`
	ResetOnExit bool `option:"reset_on_exit"`
	Inputs      domain.InputTriggerMultiPort
	Reset       domain.InputTriggerPort
	Exit        domain.OutputTriggerPort
}

func (n *WaitForFlow) PortWidth(field string) int {
	if field == "Inputs" {
		return n.Count
	}
	return 0
}

func (n *WaitForFlow) NewState() any { return &waitFlowState{} }

func (n *WaitForFlow) Execute(ctx domain.GraphContext, port domain.InputTriggerPort) domain.Execution {
	s := domain.StateOf[waitFlowState](ctx)
	if len(s.seen) != n.Inputs.Count {
		s.seen = make([]bool, n.Inputs.Count)
	}
	if port == n.Reset {
		clear(s.seen)
		s.fired = false
		return domain.Done
	}
	i := n.Inputs.IndexOf(port)
	if i < 0 || s.fired {
		return domain.Done
	}
	s.seen[i] = true
	for _, ok := range s.seen {
		if !ok {
			return domain.Done
		}
	}
	if n.ResetOnExit {
		clear(s.seen)
	} else {
		s.fired = true
	}
	ctx.Trigger(n.Exit)
	return domain.Done
}

type waitState struct {
	remaining time.Duration
	frames    int
}

// Wait fires Out after Seconds of frame time, or Duration when Seconds is unset.
type Wait struct {
	Duration time.Duration `option:"duration"`
	Enter    domain.InputTriggerPort
	Seconds  domain.InputDataPort
	Out      domain.OutputTriggerPort
}

func (n *Wait) NewCoroutineState() any { return &waitState{} }

func (n *Wait) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	s := domain.StateOf[waitState](ctx)
	s.remaining = n.Duration
	if v := ctx.Read(n.Seconds); !v.IsUnknown() {
		s.remaining = time.Duration(float64(v.Float()) * float64(time.Second))
	}
	return domain.Running
}

func (n *Wait) Update(ctx domain.GraphContext) domain.Execution {
	s := domain.StateOf[waitState](ctx)
	s.remaining -= ctx.Time().Delta
	if s.remaining > 0 {
		return domain.Running
	}
	ctx.Trigger(n.Out)
	return domain.Done
}

// WaitFrames fires Out after Frames frames.
type WaitFrames struct {
	Enter  domain.InputTriggerPort
	Frames domain.InputDataPort
	Out    domain.OutputTriggerPort
}

func (n *WaitFrames) NewCoroutineState() any { return &waitState{} }

func (n *WaitFrames) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	s := domain.StateOf[waitState](ctx)
	s.frames = ctx.Read(n.Frames).Int()
	if s.frames <= 0 {
		ctx.Trigger(n.Out)
		return domain.Done
	}
	return domain.Running
}

func (n *WaitFrames) Update(ctx domain.GraphContext) domain.Execution {
	s := domain.StateOf[waitState](ctx)
	s.frames--
	if s.frames > 0 {
		return domain.Running
	}
	ctx.Trigger(n.Out)
	return domain.Done
}

// WaitForEndOfFrame fires Out during the end-of-frame phase.
type WaitForEndOfFrame struct {
	Enter domain.InputTriggerPort
	Out   domain.OutputTriggerPort
}

func (n *WaitForEndOfFrame) Execute(domain.GraphContext, domain.InputTriggerPort) domain.Execution {
	return domain.YieldUntilEndOfFrame
}

func (n *WaitForEndOfFrame) Update(ctx domain.GraphContext) domain.Execution {
	ctx.Trigger(n.Out)
	return domain.Done
}
