package nodes

import "github.com/aretw0/weft/pkg/domain"

// SubgraphInput is the entry point of a graph called through SubgraphCall.
type SubgraphInput struct {
	Out domain.OutputTriggerPort
}

func (n *SubgraphInput) EntryPoint() domain.EntryKind { return domain.EntrySubgraphInput }

func (n *SubgraphInput) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	ctx.Trigger(n.Out)
	return domain.Done
}

// SubgraphCall runs a nested graph synchronously. It has one input per input
// variable of the callee and one output per output variable, addressed by
// variable name.
type SubgraphCall struct {
	Graph    string   `option:"graph"`
	Index    int      `option:"-"`
	InNames  []string `option:"-"`
	OutNames []string `option:"-"`
	Enter    domain.InputTriggerPort
	Inputs   domain.InputDataMultiPort
	Outputs  domain.OutputDataMultiPort
	Exit     domain.OutputTriggerPort
}

func (n *SubgraphCall) SubgraphName() string { return n.Graph }

func (n *SubgraphCall) SubgraphIndex() int { return n.Index }

func (n *SubgraphCall) BindSubgraph(index int, def *domain.GraphDefinition) {
	n.Index = index
	n.InNames, n.OutNames = nil, nil
	for _, v := range def.VariablesOfKind(domain.InputVariable) {
		n.InNames = append(n.InNames, v.Name)
	}
	for _, v := range def.VariablesOfKind(domain.OutputVariable) {
		n.OutNames = append(n.OutNames, v.Name)
	}
}

func (n *SubgraphCall) PortWidth(field string) int {
	switch field {
	case "Inputs":
		return len(n.InNames)
	case "Outputs":
		return len(n.OutNames)
	}
	return 0
}

func (n *SubgraphCall) ResolvePort(name string) (string, int, bool) {
	for i, in := range n.InNames {
		if in == name {
			return "Inputs", i, true
		}
	}
	for i, out := range n.OutNames {
		if out == name {
			return "Outputs", i, true
		}
	}
	return "", 0, false
}

func (n *SubgraphCall) Execute(ctx domain.GraphContext, _ domain.InputTriggerPort) domain.Execution {
	sub := ctx.Subgraph()
	for i, name := range n.InNames {
		sub.SetInput(name, ctx.Read(n.Inputs.SelectPort(i)))
	}
	sub.Invoke()
	for i, name := range n.OutNames {
		ctx.Write(n.Outputs.SelectPort(i), sub.Output(name))
	}
	ctx.Trigger(n.Exit)
	return domain.Done
}
