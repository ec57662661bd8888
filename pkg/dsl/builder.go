package dsl

import (
	"fmt"
	"maps"

	"github.com/aretw0/weft/pkg/authoring"
	"github.com/google/uuid"
)

// Builder manages the graph construction.
type Builder struct {
	name        string
	order       []string
	nodes       map[string]*NodeBuilder
	connections []authoring.Connection
	variables   []authoring.VariableDecl
	subgraphs   map[string]*Builder
}

// New creates a new graph builder. An empty name gets a generated one.
func New(name string) *Builder {
	if name == "" {
		name = "graph-" + uuid.NewString()
	}
	return &Builder{
		name:      name,
		nodes:     make(map[string]*NodeBuilder),
		subgraphs: make(map[string]*Builder),
	}
}

// Name returns the graph name.
func (b *Builder) Name() string { return b.name }

// Add creates a new node of the given type.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id, typ string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    authoring.Node{ID: id, Type: typ},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Member creates a node compiled from a registered host member.
func (b *Builder) Member(id, member string) *NodeBuilder {
	nb := b.Add(id, "")
	nb.node.Member = member
	return nb
}

// Connect wires two ports given as "node.port" or "node.port[i]".
func (b *Builder) Connect(from, to string) *Builder {
	b.connections = append(b.connections, authoring.Connection{From: from, To: to})
	return b
}

// Variable declares a graph-scoped variable.
func (b *Builder) Variable(name, typ string, def any) *Builder {
	return b.Declare(authoring.VariableDecl{Name: name, Type: typ, Default: def})
}

// Declare adds a variable declaration of any kind.
func (b *Builder) Declare(decl authoring.VariableDecl) *Builder {
	b.variables = append(b.variables, decl)
	return b
}

// Subgraph embeds sub under name for SubgraphCall nodes.
func (b *Builder) Subgraph(name string, sub *Builder) *Builder {
	b.subgraphs[name] = sub
	return b
}

// Build produces a normalized authoring graph. The builder can be reused.
func (b *Builder) Build() (*authoring.Graph, error) {
	g, err := b.graph()
	if err != nil {
		return nil, err
	}
	if err := g.Normalize(); err != nil {
		return nil, fmt.Errorf("failed to build graph %s: %w", b.name, err)
	}
	return g, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *authoring.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}

func (b *Builder) graph() (*authoring.Graph, error) {
	g := &authoring.Graph{
		Name:        b.name,
		Nodes:       make([]*authoring.Node, 0, len(b.order)),
		Connections: append([]authoring.Connection(nil), b.connections...),
		Variables:   append([]authoring.VariableDecl(nil), b.variables...),
	}
	for _, id := range b.order {
		g.Nodes = append(g.Nodes, b.nodes[id].copy())
	}
	if len(b.subgraphs) > 0 {
		g.Subgraphs = make(map[string]*authoring.Graph, len(b.subgraphs))
		for name, sub := range b.subgraphs {
			if sub == b {
				return nil, fmt.Errorf("graph %s embeds itself", b.name)
			}
			sg, err := sub.graph()
			if err != nil {
				return nil, err
			}
			sg.Name = name
			g.Subgraphs[name] = sg
		}
	}
	return g, nil
}

func (n *NodeBuilder) copy() *authoring.Node {
	c := n.node
	c.Options = maps.Clone(n.node.Options)
	c.Ports = make([]*authoring.Port, 0, len(n.node.Ports))
	for _, p := range n.node.Ports {
		pc := *p
		c.Ports = append(c.Ports, &pc)
	}
	return &c
}
