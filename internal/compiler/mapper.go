package compiler

import (
	"fmt"
	"sort"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
)

// PortModel associates a runtime port with the authoring port it represents.
// An empty ID means the runtime port has no authoring counterpart.
type PortModel struct {
	ID      string
	Default *value.Value
}

type portRecord struct {
	node       domain.NodeID
	kind       domain.PortKind
	name       string
	model      string
	def        value.Value
	hasDefault bool
}

type modelRecord struct {
	base    domain.PortIndex
	width   int
	indexed bool
}

// PortMapper assigns graph-global port indices to runtime node fields and
// remembers which authoring port each one came from.
type PortMapper struct {
	next   domain.PortIndex
	ports  map[domain.PortIndex]*portRecord
	models map[string]modelRecord
}

// NewPortMapper returns a mapper assigning indices from 1.
func NewPortMapper() *PortMapper {
	return NewPortMapperAt(1)
}

// NewPortMapperAt returns a mapper assigning indices from first.
func NewPortMapperAt(first domain.PortIndex) *PortMapper {
	if first == domain.NoPort {
		first = 1
	}
	return &PortMapper{
		next:   first,
		ports:  make(map[domain.PortIndex]*portRecord),
		models: make(map[string]modelRecord),
	}
}

// Next is the index the mapper will assign next.
func (m *PortMapper) Next() domain.PortIndex { return m.next }

// Len is the number of registered sub-ports.
func (m *PortMapper) Len() int { return len(m.ports) }

func (m *PortMapper) claim(node domain.NodeID, f domain.PortField, n domain.Node, width int) domain.PortIndex {
	if got := f.Index(n); got != domain.NoPort {
		domain.Invariantf("port %s of node %s already assigned index %d", f.Name, node, got)
	}
	base := m.next
	f.SetIndex(n, base)
	m.next += domain.PortIndex(width)
	for k := 0; k < width; k++ {
		name := f.DisplayName()
		if f.Multi {
			name = fmt.Sprintf("%s[%d]", name, k)
		}
		m.ports[base+domain.PortIndex(k)] = &portRecord{node: node, kind: f.Kind, name: name}
	}
	return base
}

// AddSinglePort assigns a fresh index to a single port field.
func (m *PortMapper) AddSinglePort(node domain.NodeID, f domain.PortField, n domain.Node, model PortModel) domain.PortIndex {
	if f.Multi {
		domain.Invariantf("port %s is a multi-port", f.Name)
	}
	p := m.claim(node, f, n, 1)
	m.Associate(p, model)
	return p
}

// AddMultiPort assigns a contiguous block of width indices to a multi-port field.
// models[i], when present, is the authoring port of sub-port i.
func (m *PortMapper) AddMultiPort(node domain.NodeID, f domain.PortField, n domain.Node, width int, models []PortModel) domain.PortIndex {
	if !f.Multi {
		domain.Invariantf("port %s is not a multi-port", f.Name)
	}
	f.SetWidth(n, width)
	if width == 0 {
		return domain.NoPort
	}
	base := m.claim(node, f, n, width)
	for i, model := range models {
		if i < width {
			m.Associate(base+domain.PortIndex(i), model)
		}
	}
	return base
}

// AddMultiPortIndexed assigns a block of width indices represented by one authoring
// port whose sub-ports are selected by index at resolution time.
func (m *PortMapper) AddMultiPortIndexed(node domain.NodeID, f domain.PortField, n domain.Node, width int, model PortModel) domain.PortIndex {
	base := m.AddMultiPort(node, f, n, width, nil)
	if base == domain.NoPort || model.ID == "" {
		return base
	}
	m.models[model.ID] = modelRecord{base: base, width: width, indexed: true}
	if model.Default != nil {
		for k := 0; k < width; k++ {
			r := m.ports[base+domain.PortIndex(k)]
			r.def, r.hasDefault = *model.Default, true
		}
	}
	return base
}

// AddAllPorts assigns indices to every unassigned port of n with no authoring association.
// Multi-port widths come from MultiPortNode, then from the field's current count.
func (m *PortMapper) AddAllPorts(node domain.NodeID, n domain.Node) {
	mp, _ := n.(domain.MultiPortNode)
	for _, f := range domain.DescribePorts(n) {
		if f.Index(n) != domain.NoPort {
			continue
		}
		if !f.Multi {
			m.AddSinglePort(node, f, n, PortModel{})
			continue
		}
		width := f.Width(n)
		if mp != nil {
			if w := mp.PortWidth(f.Name); w > 0 {
				width = w
			}
		}
		m.AddMultiPort(node, f, n, width, nil)
	}
}

// Associate links an assigned port to an authoring port and its default value.
func (m *PortMapper) Associate(p domain.PortIndex, model PortModel) {
	r, ok := m.ports[p]
	if !ok {
		domain.Invariantf("associate unknown port %d", p)
	}
	if model.ID != "" {
		r.model = model.ID
		m.models[model.ID] = modelRecord{base: p, width: 1}
	}
	if model.Default != nil {
		r.def, r.hasDefault = *model.Default, true
	}
}

// TryGetPortIndexOfPortModel resolves an authoring port to its runtime sub-port.
// sub selects inside ports registered with AddMultiPortIndexed and must be -1 or 0 otherwise.
func (m *PortMapper) TryGetPortIndexOfPortModel(model string, sub int) (domain.PortIndex, bool) {
	r, ok := m.models[model]
	if !ok {
		return domain.NoPort, false
	}
	if !r.indexed {
		if sub > 0 {
			return domain.NoPort, false
		}
		return r.base, true
	}
	if sub < 0 {
		sub = 0
	}
	if sub >= r.width {
		return domain.NoPort, false
	}
	return r.base + domain.PortIndex(sub), true
}

// Kind returns the kind of an assigned port.
func (m *PortMapper) Kind(p domain.PortIndex) (domain.PortKind, bool) {
	r, ok := m.ports[p]
	if !ok {
		return 0, false
	}
	return r.kind, true
}

// Owner returns the node owning an assigned port.
func (m *PortMapper) Owner(p domain.PortIndex) (domain.NodeID, bool) {
	r, ok := m.ports[p]
	if !ok {
		return domain.InvalidNode, false
	}
	return r.node, true
}

// Name returns the debug name of an assigned port.
func (m *PortMapper) Name(p domain.PortIndex) string {
	if r, ok := m.ports[p]; ok {
		return r.name
	}
	return ""
}

// Default returns the default value recorded for p.
func (m *PortMapper) Default(p domain.PortIndex) (value.Value, bool) {
	r, ok := m.ports[p]
	if !ok || !r.hasDefault {
		return value.Value{}, false
	}
	return r.def, true
}

// Ports returns the assigned indices in ascending order.
func (m *PortMapper) Ports() []domain.PortIndex {
	out := make([]domain.PortIndex, 0, len(m.ports))
	for p := range m.ports {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge moves other's registrations into m. Colliding indices or authoring
// ports are an invariant violation.
func (m *PortMapper) Merge(other *PortMapper) {
	for p, r := range other.ports {
		if _, dup := m.ports[p]; dup {
			domain.Invariantf("merge collides on port %d", p)
		}
		m.ports[p] = r
	}
	for id, r := range other.models {
		if _, dup := m.models[id]; dup {
			domain.Invariantf("merge collides on authoring port %s", id)
		}
		m.models[id] = r
	}
	if other.next > m.next {
		m.next = other.next
	}
}

// Remove forgets every port owned by node.
func (m *PortMapper) Remove(node domain.NodeID) {
	for p, r := range m.ports {
		if r.node != node {
			continue
		}
		if r.model != "" {
			delete(m.models, r.model)
		}
		delete(m.ports, p)
	}
	for id, r := range m.models {
		if owner, ok := m.ports[r.base]; !ok || owner.node == node {
			delete(m.models, id)
		}
	}
}
