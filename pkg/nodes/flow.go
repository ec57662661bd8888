package nodes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aretw0/weft/pkg/domain"
)

// Branch fires True or False depending on Condition.
type Branch struct {
	Enter     domain.InputTriggerPort
	Condition domain.InputDataPort
	True      domain.OutputTriggerPort
	False     domain.OutputTriggerPort
}

func (n *Branch) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	if ctx.Read(n.Condition).Bool() {
		ctx.Trigger(n.True)
	} else {
		ctx.Trigger(n.False)
	}
	return domain.Done
}

// Sequence fires its outputs in order, each running to completion before the next.
type Sequence struct {
	Count int `option:"count"`
	Enter domain.InputTriggerPort
	Out   domain.OutputTriggerMultiPort
}

func (n *Sequence) PortWidth(field string) int {
	if field == "Out" {
		return n.Count
	}
	return 0
}

func (n *Sequence) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	// the scheduler is a stack: push the last output first
	for i := n.Out.Count - 1; i >= 0; i-- {
		ctx.Trigger(n.Out.SelectPort(i))
	}
	return domain.Done
}

// Parallel fires every output on its own coroutine.
type Parallel struct {
	Count int `option:"count"`
	Enter domain.InputTriggerPort
	Out   domain.OutputTriggerMultiPort
}

func (n *Parallel) PortWidth(field string) int {
	if field == "Out" {
		return n.Count
	}
	return 0
}

func (n *Parallel) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	for i := n.Out.Count - 1; i >= 0; i-- {
		ctx.TriggerAsCoroutine(n.Out.SelectPort(i))
	}
	return domain.Done
}

// Log writes Message, and Value when it is known, to the instance logger.
type Log struct {
	Message string `option:"message"`
	Level   string `option:"level"`
	Enter   domain.InputTriggerPort
	Value   domain.InputDataPort
	Exit    domain.OutputTriggerPort
}

func (n *Log) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	attrs := []any{"node", ctx.Node()}
	if v := ctx.Read(n.Value); !v.IsUnknown() {
		attrs = append(attrs, "value", v.String())
	}
	ctx.Logger().Log(context.Background(), logLevel(n.Level), n.Message, attrs...)
	ctx.Trigger(n.Exit)
	return domain.Done
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
