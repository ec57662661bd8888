package runtime

import (
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

var _ domain.Subgraph = (*GraphInstance)(nil)

// SetInput writes an input variable of a nested instance.
func (g *GraphInstance) SetInput(name string, v value.Value) bool {
	variable, ok := g.def.VariableByName(name)
	if !ok || variable.Kind != domain.InputVariable {
		return false
	}
	return g.SetVariable(variable.BindingID, v)
}

// Output reads an output variable of a nested instance.
func (g *GraphInstance) Output(name string) value.Value {
	variable, ok := g.def.VariableByName(name)
	if !ok || variable.Kind != domain.OutputVariable {
		return value.Value{}
	}
	return g.values[variable.DataIndex]
}

// Invoke fires the subgraph input entry points and drains the instance.
func (g *GraphInstance) Invoke() {
	if g.destroyed {
		return
	}
	g.pushEntries(domain.EntrySubgraphInput)
	g.drain()
}

// Parent returns the owning instance and call node of a nested instance.
func (g *GraphInstance) Parent() (*GraphInstance, domain.NodeID) {
	return g.parent, g.parentNode
}
