package authoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Direction is the side of a node a port sits on.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// PortKind separates value ports from control-flow ports.
// The empty kind is resolved against the runtime node at compile time.
type PortKind string

const (
	Data    PortKind = "data"
	Trigger PortKind = "trigger"
)

// Graph is an authoring graph.
type Graph struct {
	Name        string            `yaml:"name" json:"name"`
	Nodes       []*Node           `yaml:"nodes" json:"nodes"`
	Connections []Connection      `yaml:"connections,omitempty" json:"connections,omitempty"`
	Variables   []VariableDecl    `yaml:"variables,omitempty" json:"variables,omitempty"`
	Subgraphs   map[string]*Graph `yaml:"subgraphs,omitempty" json:"subgraphs,omitempty"`
}

// Node is an authoring node.
// Type selects the runtime node; Specialization picks a variant of that type.
// Member names a host member for nodes compiled through reflection.
type Node struct {
	ID             string         `yaml:"id" json:"id"`
	Type           string         `yaml:"type" json:"type"`
	Specialization string         `yaml:"specialization,omitempty" json:"specialization,omitempty"`
	Member         string         `yaml:"member,omitempty" json:"member,omitempty"`
	Options        map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
	Ports          []*Port        `yaml:"ports,omitempty" json:"ports,omitempty"`
}

// Port is an authoring port.
// Index addresses one sub-port of a multi-port; Width sizes the whole multi-port.
type Port struct {
	Name      string    `yaml:"name" json:"name"`
	Direction Direction `yaml:"direction,omitempty" json:"direction,omitempty"`
	Kind      PortKind  `yaml:"kind,omitempty" json:"kind,omitempty"`
	Index     *int      `yaml:"index,omitempty" json:"index,omitempty"`
	Width     int       `yaml:"width,omitempty" json:"width,omitempty"`
	Type      string    `yaml:"type,omitempty" json:"type,omitempty"`
	Default   any       `yaml:"default,omitempty" json:"default,omitempty"`
}

// Sub returns the port's sub-port index, or -1 for a whole port.
func (p *Port) Sub() int {
	if p.Index == nil {
		return -1
	}
	return *p.Index
}

// ID is the graph-unique identity of a port on node.
func (p *Port) ID(node string) string {
	return PortRef{Node: node, Port: p.Name, Index: p.Sub()}.String()
}

// Connection wires an output port to an input port.
type Connection struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// VariableDecl declares a graph variable.
// Kind is one of graph, flow, input or output.
type VariableDecl struct {
	Name    string `yaml:"name" json:"name"`
	Kind    string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Type    string `yaml:"type,omitempty" json:"type,omitempty"`
	Default any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Port returns the declared port matching name and sub-port.
func (n *Node) Port(name string, sub int) (*Port, bool) {
	for _, p := range n.Ports {
		if p.Name == name && p.Sub() == sub {
			return p, true
		}
	}
	return nil, false
}

// Normalize validates node identities and parses connections, declaring the
// ports they reference on nodes that omit them.
func (g *Graph) Normalize() error {
	var errs []error
	seen := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			errs = append(errs, fmt.Errorf("node %d has no id", i))
			continue
		}
		if seen[n.ID] {
			errs = append(errs, fmt.Errorf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
		if n.Type == "" && n.Member == "" {
			errs = append(errs, fmt.Errorf("node %q has no type", n.ID))
		}
	}
	for _, c := range g.Connections {
		from, err := ParsePortRef(c.From)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		to, err := ParsePortRef(c.To)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		g.ensurePort(from, Out)
		g.ensurePort(to, In)
	}
	names := make(map[string]bool, len(g.Variables))
	for _, v := range g.Variables {
		if names[v.Name] {
			errs = append(errs, fmt.Errorf("duplicate variable %q", v.Name))
		}
		names[v.Name] = true
	}
	for name, sub := range g.Subgraphs {
		if sub.Name == "" {
			sub.Name = name
		}
		if err := sub.Normalize(); err != nil {
			errs = append(errs, fmt.Errorf("subgraph %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (g *Graph) ensurePort(ref PortRef, dir Direction) {
	n, ok := g.Node(ref.Node)
	if !ok {
		return
	}
	if p, ok := n.Port(ref.Port, ref.Index); ok {
		if p.Direction == "" {
			p.Direction = dir
		}
		return
	}
	// a declared whole multi-port already covers indexed references
	if ref.Index >= 0 {
		if p, ok := n.Port(ref.Port, -1); ok {
			if p.Width <= ref.Index {
				p.Width = ref.Index + 1
			}
			return
		}
	}
	p := &Port{Name: ref.Port, Direction: dir}
	if ref.Index >= 0 {
		idx := ref.Index
		p.Index = &idx
	}
	n.Ports = append(n.Ports, p)
}

// SubgraphNames returns subgraph names in sorted order.
func (g *Graph) SubgraphNames() []string {
	names := make([]string, 0, len(g.Subgraphs))
	for name := range g.Subgraphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PortRef addresses a port as "node.port" or "node.port[i]".
type PortRef struct {
	Node  string
	Port  string
	Index int
}

// ParsePortRef parses the textual form of a PortRef.
func ParsePortRef(s string) (PortRef, error) {
	dot := strings.Index(s, ".")
	if dot <= 0 || dot == len(s)-1 {
		return PortRef{}, fmt.Errorf("invalid port reference %q: want node.port", s)
	}
	ref := PortRef{Node: s[:dot], Port: s[dot+1:], Index: -1}
	if open := strings.Index(ref.Port, "["); open >= 0 {
		if !strings.HasSuffix(ref.Port, "]") {
			return PortRef{}, fmt.Errorf("invalid port reference %q: unterminated index", s)
		}
		var idx int
		if _, err := fmt.Sscanf(ref.Port[open+1:len(ref.Port)-1], "%d", &idx); err != nil || idx < 0 {
			return PortRef{}, fmt.Errorf("invalid port reference %q: bad index", s)
		}
		ref.Port = ref.Port[:open]
		ref.Index = idx
	}
	return ref, nil
}

func (r PortRef) String() string {
	if r.Index >= 0 {
		return fmt.Sprintf("%s.%s[%d]", r.Node, r.Port, r.Index)
	}
	return r.Node + "." + r.Port
}
