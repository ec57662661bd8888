package cli

import (
	"github.com/aretw0/weft/pkg/domain"
)

// Description is the inspect view of a compiled definition.
type Description struct {
	Name      string                `json:"name" yaml:"name"`
	Hash      string                `json:"hash" yaml:"hash"`
	Slots     int                   `json:"slots" yaml:"slots"`
	Nodes     []NodeDescription     `json:"nodes" yaml:"nodes"`
	Ports     []PortDescription     `json:"ports" yaml:"ports"`
	Variables []VariableDescription `json:"variables,omitempty" yaml:"variables,omitempty"`
	Members   []string              `json:"members,omitempty" yaml:"members,omitempty"`
	Subgraphs []Description         `json:"subgraphs,omitempty" yaml:"subgraphs,omitempty"`
}

// NodeDescription is one row of the node table.
type NodeDescription struct {
	ID    uint32 `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Type  string `json:"type" yaml:"type"`
}

// PortDescription is one row of the port table. Slot is set for data ports,
// Target for connected output triggers.
type PortDescription struct {
	Index  uint32 `json:"index" yaml:"index"`
	Node   string `json:"node" yaml:"node"`
	Name   string `json:"name" yaml:"name"`
	Kind   string `json:"kind" yaml:"kind"`
	Slot   uint32 `json:"slot,omitempty" yaml:"slot,omitempty"`
	Target uint32 `json:"target,omitempty" yaml:"target,omitempty"`
}

// VariableDescription is a declared variable.
type VariableDescription struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
	Type string `json:"type" yaml:"type"`
	Slot uint32 `json:"slot" yaml:"slot"`
}

// Describe builds the inspect view of def and its referenced sub-graphs.
func Describe(def *domain.GraphDefinition) Description {
	d := Description{
		Name:  def.Name,
		Hash:  domain.FormatHash(def.Hash),
		Slots: def.SlotCount(),
	}
	for i, n := range def.NodeTable {
		id := domain.NodeID(i + 1)
		d.Nodes = append(d.Nodes, NodeDescription{
			ID:    uint32(id),
			Label: def.Label(id),
			Type:  domain.NodeTypeName(n),
		})
	}
	for i := 1; i < len(def.PortInfoTable); i++ {
		p := def.PortInfoTable[i]
		row := PortDescription{
			Index: uint32(i),
			Node:  def.Label(p.Node),
			Name:  p.Name,
			Kind:  p.Kind().String(),
		}
		switch p.Kind() {
		case domain.DataInput, domain.DataOutput:
			row.Slot = uint32(p.Slot())
		case domain.TriggerOutput:
			row.Target = uint32(p.Target())
		}
		d.Ports = append(d.Ports, row)
	}
	for _, v := range def.Variables {
		d.Variables = append(d.Variables, VariableDescription{
			Name: v.Name,
			Kind: v.Kind.String(),
			Type: v.Type.String(),
			Slot: uint32(v.DataIndex),
		})
	}
	for _, m := range def.ReflectedMembers {
		d.Members = append(d.Members, m.Key())
	}
	for _, ref := range def.GraphReferences {
		d.Subgraphs = append(d.Subgraphs, Describe(ref))
	}
	return d
}
