package nodes

import (
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// OnStart fires once when the instance starts.
type OnStart struct {
	Out domain.OutputTriggerPort
}

func (n *OnStart) EntryPoint() domain.EntryKind { return domain.EntryStart }

func (n *OnStart) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	ctx.Trigger(n.Out)
	return domain.Done
}

// OnUpdate fires at the start of every frame.
type OnUpdate struct {
	Out   domain.OutputTriggerPort
	Delta domain.OutputDataPort
}

func (n *OnUpdate) EntryPoint() domain.EntryKind { return domain.EntryUpdate }

func (n *OnUpdate) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	ctx.Write(n.Delta, value.FromFloat(float32(ctx.Time().Delta.Seconds())))
	ctx.Trigger(n.Out)
	return domain.Done
}

// OnEvent fires when the named event reaches the instance's entity, or any
// entity when Global is set.
type OnEvent struct {
	Event   string `option:"event"`
	Global  bool   `option:"global"`
	Out     domain.OutputTriggerPort
	Payload domain.OutputDataPort
}

func (n *OnEvent) EntryPoint() domain.EntryKind { return domain.EntryEvent }

func (n *OnEvent) Hook() (string, bool) { return n.Event, n.Global }

func (n *OnEvent) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	ctx.Write(n.Payload, ctx.EventPayload())
	ctx.Trigger(n.Out)
	return domain.Done
}

// SendEvent posts Payload on the event bus. Target defaults to the sender's
// entity; Global addresses global listeners only.
type SendEvent struct {
	Event   string `option:"event"`
	Global  bool   `option:"global"`
	Enter   domain.InputTriggerPort
	Payload domain.InputDataPort
	Target  domain.InputDataPort
	Exit    domain.OutputTriggerPort
}

func (n *SendEvent) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	target := ctx.Entity()
	if v := ctx.Read(n.Target); !v.IsUnknown() {
		target = domain.Entity(v.Int())
	}
	if n.Global {
		target = domain.NoEntity
	}
	ctx.SendEvent(domain.Hook{Name: n.Event, Target: target}, ctx.Read(n.Payload))
	ctx.Trigger(n.Exit)
	return domain.Done
}
