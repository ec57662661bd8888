package dsl

import "github.com/aretw0/weft/pkg/authoring"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    authoring.Node
	builder *Builder
}

// ID returns the node id.
func (n *NodeBuilder) ID() string { return n.node.ID }

// Specialize selects a variant of the node type, e.g. "Add" for Arithmetic.
func (n *NodeBuilder) Specialize(s string) *NodeBuilder {
	n.node.Specialization = s
	return n
}

// Option sets a node option.
func (n *NodeBuilder) Option(key string, v any) *NodeBuilder {
	if n.node.Options == nil {
		n.node.Options = make(map[string]any)
	}
	n.node.Options[key] = v
	return n
}

// Default declares an input data port holding a literal default.
func (n *NodeBuilder) Default(port string, v any) *NodeBuilder {
	p := n.port(port, -1, authoring.In)
	p.Kind = authoring.Data
	p.Default = v
	return n
}

// DefaultAt declares a literal default for one sub-port of a multi-port.
func (n *NodeBuilder) DefaultAt(port string, i int, v any) *NodeBuilder {
	p := n.port(port, i, authoring.In)
	p.Kind = authoring.Data
	p.Default = v
	return n
}

// Width sizes a multi-port.
func (n *NodeBuilder) Width(port string, dir authoring.Direction, w int) *NodeBuilder {
	n.port(port, -1, dir).Width = w
	return n
}

// Then connects the named output of this node to target ("node.port").
func (n *NodeBuilder) Then(port, target string) *NodeBuilder {
	n.builder.Connect(n.node.ID+"."+port, target)
	return n
}

// Build returns a copy of the underlying authoring node.
func (n *NodeBuilder) Build() *authoring.Node {
	return n.copy()
}

func (n *NodeBuilder) port(name string, sub int, dir authoring.Direction) *authoring.Port {
	if p, ok := n.node.Port(name, sub); ok {
		return p
	}
	p := &authoring.Port{Name: name, Direction: dir}
	if sub >= 0 {
		idx := sub
		p.Index = &idx
	}
	n.node.Ports = append(n.node.Ports, p)
	return p
}
