package compiler

import (
	"fmt"

	"github.com/aretw0/weft/pkg/domain"
)

// Build compacts the builder into an immutable GraphDefinition.
//
// Live nodes are cloned and renumbered 1..N in insertion order; their ports are
// renumbered 1..M in the same order with multi-port blocks kept contiguous.
// Variables take the first data slots, then every connected output data port gets
// one. Unconnected, unbound outputs keep slot 0. Edges whose endpoints no longer
// exist are dropped with a warning. Build leaves the builder untouched and can be
// called repeatedly.
func (b *GraphBuilder) Build() *domain.GraphDefinition {
	def := &domain.GraphDefinition{
		Name:          b.name,
		PortInfoTable: []domain.PortInfo{{}},
		DataPortTable: []domain.PortIndex{domain.NoPort},
	}

	portMap := make(map[domain.PortIndex]domain.PortIndex, b.mapper.Len())
	oldOf := make(map[domain.PortIndex]domain.PortIndex, b.mapper.Len())
	for _, bn := range b.nodes {
		if bn.removed {
			continue
		}
		clone := domain.CloneNode(bn.node)
		def.NodeTable = append(def.NodeTable, clone)
		def.NodeLabels = append(def.NodeLabels, bn.label)
		id := domain.NodeID(len(def.NodeTable))

		for _, f := range domain.DescribePorts(clone) {
			old, width := f.Index(clone), f.Width(clone)
			if old == domain.NoPort || width == 0 {
				continue
			}
			base := domain.PortIndex(len(def.PortInfoTable))
			for k := 0; k < width; k++ {
				name := f.DisplayName()
				if f.Multi {
					name = fmt.Sprintf("%s[%d]", name, k)
				}
				def.PortInfoTable = append(def.PortInfoTable, domain.PortInfo{
					IsData:   f.Kind.IsData(),
					IsOutput: f.Kind.IsOutput(),
					Node:     id,
					Name:     name,
				})
				portMap[old+domain.PortIndex(k)] = base + domain.PortIndex(k)
				oldOf[base+domain.PortIndex(k)] = old + domain.PortIndex(k)
			}
			f.SetIndex(clone, base)
		}
	}

	b.dropped = nil
	var edges []Edge
	for _, e := range b.edges {
		from, okFrom := portMap[e.From]
		to, okTo := portMap[e.To]
		if !okFrom || !okTo {
			b.logger.Warn("dropping dangling edge", "graph", b.name, "from", e.From, "to", e.To)
			b.dropped = append(b.dropped, e)
			continue
		}
		edges = append(edges, Edge{From: from, To: to})
	}

	varSlots := make([]domain.DataIndex, len(b.variables))
	for i := range b.variables {
		varSlots[i] = domain.DataIndex(len(def.DataPortTable))
		def.DataPortTable = append(def.DataPortTable, domain.NoPort)
	}

	feeds := make(map[domain.PortIndex]bool)
	for _, e := range edges {
		if def.PortInfoTable[e.From].IsData {
			feeds[e.From] = true
		}
	}
	for p := 1; p < len(def.PortInfoTable); p++ {
		info := &def.PortInfoTable[p]
		if !info.IsData || !info.IsOutput {
			continue
		}
		port := domain.PortIndex(p)
		if vi, bound := b.bindings[oldOf[port]]; bound {
			slot := varSlots[vi]
			info.DataOrTriggerIndex = uint32(slot)
			if def.DataPortTable[slot] == domain.NoPort {
				def.DataPortTable[slot] = port
			}
			continue
		}
		if !feeds[port] {
			info.DataOrTriggerIndex = uint32(domain.NullSlot)
			continue
		}
		info.DataOrTriggerIndex = uint32(len(def.DataPortTable))
		def.DataPortTable = append(def.DataPortTable, port)
	}

	for _, e := range edges {
		src := def.PortInfoTable[e.From]
		if src.IsData {
			def.PortInfoTable[e.To].DataOrTriggerIndex = src.DataOrTriggerIndex
			continue
		}
		def.PortInfoTable[e.From].DataOrTriggerIndex = uint32(e.To)
	}

	for i, v := range b.variables {
		variable := v.Variable
		variable.DataIndex = varSlots[i]
		def.Variables = append(def.Variables, variable)
		def.VariableInitValues = append(def.VariableInitValues, v.init)
		v.init.Retain()
	}
	for _, n := range def.NodeTable {
		if c, ok := n.(domain.ConstantNode); ok {
			c.Constant().Retain()
		}
	}

	def.ReflectedMembers = append([]domain.ReflectedMember(nil), b.members...)
	def.GraphReferences = append([]*domain.GraphDefinition(nil), b.graphs...)
	def.Hash = domain.ComputeHash(def)
	return def
}
