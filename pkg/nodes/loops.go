package nodes

import (
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

type loopState struct {
	loop  domain.LoopID
	index int
	last  int
	step  int
	items []value.Value
}

// ForLoop runs Body for Index in [First, Last) by Step, one iteration per yield.
type ForLoop struct {
	Enter     domain.InputTriggerPort
	First     domain.InputDataPort
	Last      domain.InputDataPort
	Step      domain.InputDataPort
	Index     domain.OutputDataPort
	Body      domain.OutputTriggerPort
	Completed domain.OutputTriggerPort
}

func (n *ForLoop) NewCoroutineState() any { return &loopState{} }

func (n *ForLoop) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	s := domain.StateOf[loopState](ctx)
	step := ctx.Read(n.Step).Int()
	if step == 0 {
		step = 1
	}
	*s = loopState{
		loop:  ctx.BeginLoop(),
		index: ctx.Read(n.First).Int(),
		last:  ctx.Read(n.Last).Int(),
		step:  step,
	}
	return n.Update(ctx)
}

func (n *ForLoop) Update(ctx domain.GraphContext) domain.Execution {
	s := domain.StateOf[loopState](ctx)
	done := s.step > 0 && s.index >= s.last || s.step < 0 && s.index <= s.last
	if done || ctx.IsLoopBroken(s.loop) {
		ctx.EndLoop(s.loop)
		ctx.Trigger(n.Completed)
		return domain.Done
	}
	ctx.Write(n.Index, value.FromInt(s.index))
	s.index += s.step
	ctx.Trigger(n.Body)
	return domain.Yield
}

// ForEach runs Body once per element of Items.
type ForEach struct {
	Enter     domain.InputTriggerPort
	Items     domain.InputDataPort
	Item      domain.OutputDataPort
	Index     domain.OutputDataPort
	Body      domain.OutputTriggerPort
	Completed domain.OutputTriggerPort
}

func (n *ForEach) NewCoroutineState() any { return &loopState{} }

func (n *ForEach) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	s := domain.StateOf[loopState](ctx)
	*s = loopState{
		loop:  ctx.BeginLoop(),
		items: ListItems(ctx.Read(n.Items)),
	}
	return n.Update(ctx)
}

func (n *ForEach) Update(ctx domain.GraphContext) domain.Execution {
	s := domain.StateOf[loopState](ctx)
	if s.index >= len(s.items) || ctx.IsLoopBroken(s.loop) {
		ctx.EndLoop(s.loop)
		s.items = nil
		ctx.Trigger(n.Completed)
		return domain.Done
	}
	ctx.Write(n.Item, s.items[s.index])
	ctx.Write(n.Index, value.FromInt(s.index))
	s.index++
	ctx.Trigger(n.Body)
	return domain.Yield
}

// Break stops the innermost running loop of the current coroutine after its
// current iteration.
type Break struct {
	Enter domain.InputTriggerPort
}

func (n *Break) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	ctx.BreakLoop()
	return domain.Done
}
