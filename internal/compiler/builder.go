package compiler

import (
	"log/slog"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// Edge is a builder-only connection between an output and an input port.
type Edge struct {
	From domain.PortIndex
	To   domain.PortIndex
}

type builderNode struct {
	id      domain.NodeID
	node    domain.Node
	label   string
	removed bool
}

type builderVariable struct {
	domain.Variable
	init value.Value
}

// GraphBuilder accretes nodes, edges and variables, then compacts them into a
// dense GraphDefinition with Build.
type GraphBuilder struct {
	name      string
	logger    *slog.Logger
	mapper    *PortMapper
	nodes     []*builderNode
	edges     []Edge
	variables []builderVariable
	bindings  map[domain.PortIndex]int
	members   []domain.ReflectedMember
	graphs    []*domain.GraphDefinition
	dropped   []Edge
}

// BuilderOption configures a GraphBuilder.
type BuilderOption func(*GraphBuilder)

// WithBuilderLogger sets the logger used to report dropped edges.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *GraphBuilder) {
		b.logger = l
	}
}

// NewGraphBuilder creates an empty builder.
func NewGraphBuilder(name string, opts ...BuilderOption) *GraphBuilder {
	b := &GraphBuilder{
		name:     name,
		logger:   logging.NewNop(),
		mapper:   NewPortMapper(),
		bindings: make(map[domain.PortIndex]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mapper exposes the builder's port registry.
func (b *GraphBuilder) Mapper() *PortMapper { return b.mapper }

// NextNodeID is the id AddNode will hand out next.
func (b *GraphBuilder) NextNodeID() domain.NodeID {
	return domain.NodeID(len(b.nodes) + 1)
}

// NewNodeMapper returns a scratch mapper continuing the builder's port numbering,
// so a node's ports can be resolved before committing it with AddNode.
func (b *GraphBuilder) NewNodeMapper() *PortMapper {
	return NewPortMapperAt(b.mapper.Next())
}

// AddNode commits n with the ports registered in ports. A nil mapper assigns
// every port of n without authoring associations.
func (b *GraphBuilder) AddNode(n domain.Node, label string, ports *PortMapper) domain.NodeID {
	id := b.NextNodeID()
	if ports == nil {
		ports = b.NewNodeMapper()
		ports.AddAllPorts(id, n)
	}
	b.mapper.Merge(ports)
	b.nodes = append(b.nodes, &builderNode{id: id, node: n, label: label})
	return id
}

// RemoveNode removes a node and forgets its ports. Edges touching it are left in
// place and dropped by Build.
func (b *GraphBuilder) RemoveNode(id domain.NodeID) {
	bn := b.entry(id)
	if bn == nil || bn.removed {
		return
	}
	bn.removed = true
	b.mapper.Remove(id)
}

// Node returns a live node.
func (b *GraphBuilder) Node(id domain.NodeID) (domain.Node, bool) {
	bn := b.entry(id)
	if bn == nil || bn.removed {
		return nil, false
	}
	return bn.node, true
}

// Label returns the authoring label of a node.
func (b *GraphBuilder) Label(id domain.NodeID) string {
	if bn := b.entry(id); bn != nil {
		return bn.label
	}
	return ""
}

// NodeIDs returns the live node ids in insertion order.
func (b *GraphBuilder) NodeIDs() []domain.NodeID {
	out := make([]domain.NodeID, 0, len(b.nodes))
	for _, bn := range b.nodes {
		if !bn.removed {
			out = append(out, bn.id)
		}
	}
	return out
}

func (b *GraphBuilder) entry(id domain.NodeID) *builderNode {
	if id == domain.InvalidNode || int(id) > len(b.nodes) {
		return nil
	}
	return b.nodes[id-1]
}

// AddEdge connects an output port to an input port.
// Mixing data and trigger ports, reversing direction, driving an input trigger
// from an already connected output trigger, or feeding an input data port twice
// are invariant violations.
func (b *GraphBuilder) AddEdge(from, to domain.PortIndex) {
	fk, ok := b.mapper.Kind(from)
	if !ok {
		domain.Invariantf("edge from unassigned port %d", from)
	}
	tk, ok := b.mapper.Kind(to)
	if !ok {
		domain.Invariantf("edge to unassigned port %d", to)
	}
	if !fk.IsOutput() || tk.IsOutput() {
		domain.Invariantf("edge %d -> %d must go from an output to an input (%s -> %s)", from, to, fk, tk)
	}
	if fk.IsData() != tk.IsData() {
		domain.Invariantf("cannot connect %s %d to %s %d", fk, from, tk, to)
	}
	if !fk.IsData() && b.TriggerConnected(from) {
		domain.Invariantf("trigger %d already connected", from)
	}
	if fk.IsData() && b.HasSource(to) {
		domain.Invariantf("input %d already has a source", to)
	}
	b.edges = append(b.edges, Edge{From: from, To: to})
}

// TriggerConnected reports whether an output trigger already drives an input.
func (b *GraphBuilder) TriggerConnected(from domain.PortIndex) bool {
	for _, e := range b.edges {
		if e.From == from {
			return true
		}
	}
	return false
}

// HasSource reports whether an input port has an incoming edge.
func (b *GraphBuilder) HasSource(to domain.PortIndex) bool {
	_, ok := b.Source(to)
	return ok
}

// Source returns the output port feeding an input port.
func (b *GraphBuilder) Source(to domain.PortIndex) (domain.PortIndex, bool) {
	for _, e := range b.edges {
		if e.To == to {
			return e.From, true
		}
	}
	return domain.NoPort, false
}

// Edges returns a copy of the current edge list.
func (b *GraphBuilder) Edges() []Edge {
	return append([]Edge(nil), b.edges...)
}

// RemapEdges redirects edges leaving the keys of remap to the mapped ports.
func (b *GraphBuilder) RemapEdges(remap map[domain.PortIndex]domain.PortIndex) {
	for i, e := range b.edges {
		if to, ok := remap[e.From]; ok {
			b.edges[i].From = to
		}
	}
}

// DropEdgesOf removes every edge touching one of the given nodes.
func (b *GraphBuilder) DropEdgesOf(nodes map[domain.NodeID]bool) {
	kept := b.edges[:0]
	for _, e := range b.edges {
		fo, _ := b.mapper.Owner(e.From)
		to, _ := b.mapper.Owner(e.To)
		if nodes[fo] || nodes[to] {
			continue
		}
		kept = append(kept, e)
	}
	b.edges = kept
}

// PortsOf returns the ports of a node with the given kind, ascending.
func (b *GraphBuilder) PortsOf(id domain.NodeID, kind domain.PortKind) []domain.PortIndex {
	var out []domain.PortIndex
	for _, p := range b.mapper.Ports() {
		r := b.mapper.ports[p]
		if r.node == id && r.kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// DeclareVariable registers a variable and reserves its data slot.
// Redeclaring a name returns the existing index.
func (b *GraphBuilder) DeclareVariable(name string, kind domain.VariableKind, typ value.Kind, init value.Value) int {
	if i, ok := b.VariableIndex(name); ok {
		return i
	}
	b.variables = append(b.variables, builderVariable{
		Variable: domain.Variable{
			Name:      name,
			Kind:      kind,
			Type:      typ,
			BindingID: domain.BindingID(name, kind),
			DataIndex: domain.DataIndex(len(b.variables) + 1),
		},
		init: init,
	})
	return len(b.variables) - 1
}

// VariableIndex looks up a declared variable.
func (b *GraphBuilder) VariableIndex(name string) (int, bool) {
	for i, v := range b.variables {
		if v.Name == name {
			return i, true
		}
	}
	return 0, false
}

// BindVariable makes an output data port share the slot of a declared variable.
func (b *GraphBuilder) BindVariable(out domain.PortIndex, variable int) {
	if k, ok := b.mapper.Kind(out); !ok || k != domain.DataOutput {
		domain.Invariantf("variable binding needs a data output, got port %d", out)
	}
	if variable < 0 || variable >= len(b.variables) {
		domain.Invariantf("unknown variable %d", variable)
	}
	b.bindings[out] = variable
}

// AddReflectedMember interns a reflected member and returns its index.
func (b *GraphBuilder) AddReflectedMember(m domain.ReflectedMember) int {
	for i, existing := range b.members {
		if existing == m {
			return i
		}
	}
	b.members = append(b.members, m)
	return len(b.members) - 1
}

// AddGraphReference interns a nested definition and returns its index.
func (b *GraphBuilder) AddGraphReference(def *domain.GraphDefinition) int {
	for i, existing := range b.graphs {
		if existing == def {
			return i
		}
	}
	b.graphs = append(b.graphs, def)
	return len(b.graphs) - 1
}

// Dropped returns the edges the last Build discarded.
func (b *GraphBuilder) Dropped() []Edge { return b.dropped }
