package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/weft/pkg/value"
)

// Node is a runtime node: a pointer to a struct whose port-typed fields are
// addressed by the compiler, implementing one or more capability interfaces.
type Node any

// PortInfo is a row of the PortInfoTable.
//
// For data ports DataOrTriggerIndex is the data slot. For output trigger ports it is
// the port index of the single input trigger it drives. Input trigger ports keep 0.
type PortInfo struct {
	IsData             bool   `json:"data"`
	IsOutput           bool   `json:"output"`
	Node               NodeID `json:"node"`
	Name               string `json:"name"`
	DataOrTriggerIndex uint32 `json:"index"`
}

// Kind returns the port kind described by the row.
func (p PortInfo) Kind() PortKind {
	switch {
	case p.IsData && p.IsOutput:
		return DataOutput
	case p.IsData:
		return DataInput
	case p.IsOutput:
		return TriggerOutput
	}
	return TriggerInput
}

// Slot returns the data slot of a data port.
func (p PortInfo) Slot() DataIndex {
	return DataIndex(p.DataOrTriggerIndex)
}

// Target returns the input trigger driven by an output trigger port.
func (p PortInfo) Target() PortIndex {
	return PortIndex(p.DataOrTriggerIndex)
}

// VariableKind is the scope of a declared variable.
type VariableKind uint8

const (
	GraphVariable VariableKind = iota
	FlowVariable
	InputVariable
	OutputVariable
)

func (k VariableKind) String() string {
	switch k {
	case GraphVariable:
		return "graph"
	case FlowVariable:
		return "flow"
	case InputVariable:
		return "input"
	case OutputVariable:
		return "output"
	}
	return fmt.Sprintf("variable(%d)", uint8(k))
}

// ParseVariableKind resolves a kind name; the empty string is GraphVariable.
func ParseVariableKind(s string) (VariableKind, error) {
	switch strings.ToLower(s) {
	case "", "graph":
		return GraphVariable, nil
	case "flow":
		return FlowVariable, nil
	case "input":
		return InputVariable, nil
	case "output":
		return OutputVariable, nil
	}
	return GraphVariable, fmt.Errorf("unknown variable kind %q", s)
}

// Variable is a declared graph variable bound to a data slot.
type Variable struct {
	Name      string       `json:"name"`
	Kind      VariableKind `json:"kind"`
	Type      value.Kind   `json:"type"`
	BindingID uint64       `json:"binding"`
	DataIndex DataIndex    `json:"slot"`
}

// MemberKind distinguishes reflected fields from methods.
type MemberKind uint8

const (
	MemberField MemberKind = iota
	MemberMethod
)

// ReflectedMember names a host member invoked by a reflection-fallback node.
type ReflectedMember struct {
	DeclaringType string     `json:"type"`
	Name          string     `json:"name"`
	Kind          MemberKind `json:"kind"`
}

// Key is the "Type.Name" form used to resolve the member.
func (m ReflectedMember) Key() string {
	if m.DeclaringType == "" {
		return m.Name
	}
	return m.DeclaringType + "." + m.Name
}

// GraphDefinition is the immutable compiled graph.
//
// NodeTable[i] has NodeID i+1. PortInfoTable[0] and DataPortTable[0] are sentinels.
// NodeLabels carries the authoring ids for debugging and is not part of the hash.
type GraphDefinition struct {
	Name               string
	NodeTable          []Node
	NodeLabels         []string
	PortInfoTable      []PortInfo
	DataPortTable      []PortIndex
	Variables          []Variable
	VariableInitValues []value.Value
	ReflectedMembers   []ReflectedMember
	GraphReferences    []*GraphDefinition
	Hash               uint64

	layoutOnce sync.Once
	layout     *StateLayout
}

// Node returns the node with the given id.
func (d *GraphDefinition) Node(id NodeID) Node {
	return d.NodeTable[id-1]
}

// Label returns the authoring id of a node, or its NodeID when unknown.
func (d *GraphDefinition) Label(id NodeID) string {
	if i := int(id) - 1; i >= 0 && i < len(d.NodeLabels) && d.NodeLabels[i] != "" {
		return d.NodeLabels[i]
	}
	return id.String()
}

// NodeByLabel finds a node by its authoring id.
func (d *GraphDefinition) NodeByLabel(label string) (NodeID, bool) {
	for i, l := range d.NodeLabels {
		if l == label {
			return NodeID(i + 1), true
		}
	}
	return InvalidNode, false
}

// NodeCount returns the number of nodes.
func (d *GraphDefinition) NodeCount() int { return len(d.NodeTable) }

// Port returns the PortInfoTable row of p.
func (d *GraphDefinition) Port(p PortIndex) PortInfo {
	return d.PortInfoTable[p]
}

// SlotCount returns the size of the value array an instance needs.
func (d *GraphDefinition) SlotCount() int { return len(d.DataPortTable) }

// VariableByName looks up a declared variable.
func (d *GraphDefinition) VariableByName(name string) (Variable, bool) {
	for _, v := range d.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// VariableByBinding looks up a declared variable by binding id.
func (d *GraphDefinition) VariableByBinding(id uint64) (Variable, bool) {
	for _, v := range d.Variables {
		if v.BindingID == id {
			return v, true
		}
	}
	return Variable{}, false
}

// VariablesOfKind returns the variables of kind k in declaration order.
func (d *GraphDefinition) VariablesOfKind(k VariableKind) []Variable {
	var out []Variable
	for _, v := range d.Variables {
		if v.Kind == k {
			out = append(out, v)
		}
	}
	return out
}

// StateLayout maps nodes to their slots in an instance's state arenas.
// Index -1 means the node has no state of that kind.
type StateLayout struct {
	State          []int
	CoroutineState []int
	StateCount     int
	CoroutineCount int
	Subgraph       []int
	SubgraphCount  int
}

// StateLayout returns the precomputed layout, building it on first use.
func (d *GraphDefinition) StateLayout() *StateLayout {
	d.layoutOnce.Do(func() {
		n := len(d.NodeTable)
		l := &StateLayout{
			State:          make([]int, n),
			CoroutineState: make([]int, n),
			Subgraph:       make([]int, n),
		}
		for i, node := range d.NodeTable {
			l.State[i], l.CoroutineState[i], l.Subgraph[i] = -1, -1, -1
			if _, ok := node.(StatefulNode); ok {
				l.State[i] = l.StateCount
				l.StateCount++
			}
			if _, ok := node.(CoroutineStatefulNode); ok {
				l.CoroutineState[i] = l.CoroutineCount
				l.CoroutineCount++
			}
			if _, ok := node.(SubgraphNode); ok {
				l.Subgraph[i] = l.SubgraphCount
				l.SubgraphCount++
			}
		}
		d.layout = l
	})
	return d.layout
}

// NodeTypeName returns the registered type name of a node, falling back to its Go type.
func NodeTypeName(n Node) string {
	if name, ok := typeNameOf(n); ok {
		return name
	}
	return fmt.Sprintf("%T", n)
}
