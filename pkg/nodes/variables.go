package nodes

import "github.com/aretw0/weft/pkg/domain"

// GetVariable exposes a declared variable. Its output shares the variable's slot.
type GetVariable struct {
	Variable string `option:"variable"`
	Value    domain.OutputDataPort
}

func (n *GetVariable) VariableName() string { return n.Variable }

func (n *GetVariable) VariableOutput() domain.OutputDataPort { return n.Value }

// SetVariable writes Value into a declared variable.
type SetVariable struct {
	Variable string `option:"variable"`
	Enter    domain.InputTriggerPort
	Input    domain.InputDataPort `port:"Value"`
	Output   domain.OutputDataPort
	Exit     domain.OutputTriggerPort
}

func (n *SetVariable) VariableName() string { return n.Variable }

func (n *SetVariable) VariableOutput() domain.OutputDataPort { return n.Output }

func (n *SetVariable) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	ctx.Write(n.Output, ctx.Read(n.Input))
	ctx.Trigger(n.Exit)
	return domain.Done
}
