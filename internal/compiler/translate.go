package compiler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/registry"
	"github.com/aretw0/weft/pkg/value"
	"github.com/mitchellh/mapstructure"
)

// translator performs the accretion phase: authoring graph into builder.
type translator struct {
	c        *compilation
	g        *authoring.Graph
	scope    []*authoring.Graph
	b        *GraphBuilder
	diags    *Diagnostics
	nodes    map[string]domain.NodeID
	excluded map[string]bool
}

func (t *translator) run() {
	t.nodes = make(map[string]domain.NodeID, len(t.g.Nodes))
	t.excluded = make(map[string]bool)
	t.declareVariables()
	for _, n := range t.g.Nodes {
		t.translateNode(n)
	}
	t.connect()
	t.materializeDefaults()
}

func (t *translator) declareVariables() {
	for _, v := range t.g.Variables {
		kind, err := domain.ParseVariableKind(v.Kind)
		if err != nil {
			t.diags.add(SeverityError, "", "", "variable %s: %v", v.Name, err)
			continue
		}
		typ, err := value.ParseKind(v.Type)
		if err != nil {
			t.diags.add(SeverityError, "", "", "variable %s: %v", v.Name, err)
			continue
		}
		init := value.CoerceValueToType(typ, value.FromObject(v.Default))
		if init.IsUnknown() && typ != value.Unknown {
			init = value.Zero(typ)
		}
		t.b.DeclareVariable(v.Name, kind, typ, init)
	}
}

func (t *translator) translateNode(an *authoring.Node) {
	reg := t.c.registry
	entry, ok := reg.Lookup(an.Type, an.Specialization)
	var node domain.Node
	if ok {
		node = entry.Factory()
	} else {
		node, ok = t.fallback(an)
		if !ok {
			return
		}
	}

	if err := decodeOptions(an.Options, node); err != nil {
		t.diags.add(SeverityError, an.ID, "", "invalid options: %v", err)
		return
	}

	if sb, ok := node.(domain.SubgraphBinder); ok {
		def, idx, ok := t.subgraph(an, sb.SubgraphName())
		if !ok {
			return
		}
		sb.BindSubgraph(idx, def)
	}

	id := t.b.NextNodeID()
	local := t.b.NewNodeMapper()
	if !t.mapPorts(id, an, node, entry, local) {
		return
	}
	t.b.AddNode(node, an.ID, local)
	t.nodes[an.ID] = id

	if vn, ok := node.(domain.VariableNode); ok {
		name := vn.VariableName()
		vi, declared := t.b.VariableIndex(name)
		if !declared {
			t.diags.add(SeverityWarning, an.ID, "", "variable %q is not declared; declaring it as a graph variable", name)
			vi = t.b.DeclareVariable(name, domain.GraphVariable, value.Unknown, value.Value{})
		}
		if out := vn.VariableOutput(); out.Port != domain.NoPort {
			t.b.BindVariable(out.Port, vi)
		}
	}
}

// fallback compiles a node with no registered runtime type as a reflected member call.
func (t *translator) fallback(an *authoring.Node) (domain.Node, bool) {
	reg := t.c.registry
	name := an.Member
	if name == "" {
		name = an.Type
	}
	kind, known := reg.Member(name)
	if !known {
		d := t.diags.add(SeverityError, an.ID, "", "no runtime node registered for model %q", an.Type)
		d.Fix = removeNodeFix(an.ID)
		return nil, false
	}
	declaring, member := registry.SplitMember(name)
	m := domain.ReflectedMember{DeclaringType: declaring, Name: member, Kind: kind}

	argc := 0
	for _, p := range an.Ports {
		if p.Direction != authoring.Out && p.Kind != authoring.Trigger && !isTriggerName(p.Name) {
			argc++
		}
	}
	node, ok := reg.Fallback(m, t.b.AddReflectedMember(m), argc)
	if !ok {
		t.diags.add(SeverityError, an.ID, "", "no runtime node for model %q and no reflection fallback installed", an.Type)
		return nil, false
	}
	t.diags.add(SeverityWarning, an.ID, "", "no runtime node registered for model %q; compiled as reflected member %s", an.Type, m.Key())
	return node, true
}

func isTriggerName(name string) bool {
	return strings.EqualFold(name, "Enter") || strings.EqualFold(name, "Exit")
}

func (t *translator) subgraph(an *authoring.Node, name string) (*domain.GraphDefinition, int, bool) {
	var sub *authoring.Graph
	for i := len(t.scope) - 1; i >= 0 && sub == nil; i-- {
		sub = t.scope[i].Subgraphs[name]
	}
	if sub == nil {
		t.diags.add(SeverityError, an.ID, "", "unknown subgraph %q", name)
		return nil, 0, false
	}
	def, ok := t.c.compileSubgraph(sub, t.scope, an.ID)
	if !ok {
		return nil, 0, false
	}
	return def, t.b.AddGraphReference(def), true
}

type portMatch struct {
	port *authoring.Port
	sub  int
}

func (t *translator) mapPorts(id domain.NodeID, an *authoring.Node, node domain.Node, entry *registry.Entry, local *PortMapper) bool {
	fields := domain.DescribePorts(node)
	matched := make([][]portMatch, len(fields))
	ok := true
	for _, p := range an.Ports {
		if entry != nil && entry.Excluded[p.Name] {
			t.excluded[p.ID(an.ID)] = true
			continue
		}
		fi, sub, err := resolvePortField(fields, node, entry, p.Name)
		if err != nil {
			d := t.diags.add(SeverityError, an.ID, p.Name, "%v", err)
			if amb, isAmb := err.(*AmbiguousPortError); isAmb {
				d.Fix = renamePortFix(an.ID, p.Name, amb.Candidates[0])
			}
			ok = false
			continue
		}
		f := fields[fi]
		if p.Direction != "" && (p.Direction == authoring.Out) != f.Kind.IsOutput() {
			t.diags.add(SeverityError, an.ID, p.Name, "port is declared %s but %s is a %s", p.Direction, f.Name, f.Kind)
			ok = false
			continue
		}
		if p.Kind != "" && (p.Kind == authoring.Data) != f.Kind.IsData() {
			t.diags.add(SeverityError, an.ID, p.Name, "port is declared %s but %s is a %s", p.Kind, f.Name, f.Kind)
			ok = false
			continue
		}
		if sub < 0 {
			sub = p.Sub()
		}
		if !f.Multi && sub > 0 {
			t.diags.add(SeverityError, an.ID, p.Name, "%s is not a multi-port", f.Name)
			ok = false
			continue
		}
		matched[fi] = append(matched[fi], portMatch{port: p, sub: sub})
	}
	if !ok {
		return false
	}

	mp, _ := node.(domain.MultiPortNode)
	for fi, f := range fields {
		ms := matched[fi]
		if !f.Multi {
			if len(ms) > 1 {
				t.diags.add(SeverityError, an.ID, ms[1].port.Name, "ports %s and %s both map to %s", ms[0].port.Name, ms[1].port.Name, f.Name)
				return false
			}
			model := PortModel{}
			if len(ms) == 1 {
				model = t.portModel(an, ms[0].port, f)
			}
			local.AddSinglePort(id, f, node, model)
			continue
		}

		width := 0
		if mp != nil {
			width = mp.PortWidth(f.Name)
		}
		var whole *portMatch
		for i, m := range ms {
			if m.sub < 0 {
				whole = &ms[i]
			}
		}
		if width == 0 {
			for _, m := range ms {
				width = max(width, m.port.Width, m.sub+1)
			}
		}
		if width == 0 {
			width = f.Width(node)
		}
		if whole != nil {
			base := local.AddMultiPortIndexed(id, f, node, width, t.portModel(an, whole.port, f))
			for _, m := range ms {
				if m.sub >= 0 && m.sub < width {
					local.Associate(base+domain.PortIndex(m.sub), t.portModel(an, m.port, f))
				}
			}
			continue
		}
		models := make([]PortModel, width)
		for _, m := range ms {
			if m.sub >= width {
				t.diags.add(SeverityError, an.ID, m.port.Name, "sub-port %d exceeds the %d ports of %s", m.sub, width, f.Name)
				return false
			}
			models[m.sub] = t.portModel(an, m.port, f)
		}
		local.AddMultiPort(id, f, node, width, models)
	}
	return true
}

func (t *translator) portModel(an *authoring.Node, p *authoring.Port, f domain.PortField) PortModel {
	model := PortModel{ID: p.ID(an.ID)}
	if p.Default == nil {
		return model
	}
	if f.Kind != domain.DataInput {
		t.diags.add(SeverityWarning, an.ID, p.Name, "default value ignored on %s", f.Kind)
		return model
	}
	v := value.FromObject(p.Default)
	if p.Type != "" {
		k, err := value.ParseKind(p.Type)
		if err != nil {
			t.diags.add(SeverityWarning, an.ID, p.Name, "%v", err)
		} else {
			v = value.CoerceValueToType(k, v)
		}
	}
	model.Default = &v
	return model
}

// UnmappedPortError reports an authoring port with no runtime counterpart.
type UnmappedPortError struct {
	Port      string
	NodeType  string
	Available []string
}

func (e *UnmappedPortError) Error() string {
	return fmt.Sprintf("no runtime port %q on %s (available: %s); add a port alias to map it", e.Port, e.NodeType, strings.Join(e.Available, ", "))
}

// AmbiguousPortError reports a case-insensitive match on several runtime ports.
type AmbiguousPortError struct {
	Port       string
	NodeType   string
	Candidates []string
}

func (e *AmbiguousPortError) Error() string {
	return fmt.Sprintf("port %q on %s is ambiguous between %s; use the exact name or an alias", e.Port, e.NodeType, strings.Join(e.Candidates, ", "))
}

// resolvePortField maps an authoring port name to a runtime field: exact name or
// alias first, then a case-insensitive match when it is unique.
func resolvePortField(fields []domain.PortField, node domain.Node, entry *registry.Entry, name string) (int, int, error) {
	sub := -1
	if entry != nil {
		if renamed, ok := entry.Renamed[name]; ok {
			name = renamed
		}
	}
	if pr, ok := node.(domain.PortResolver); ok {
		if field, s, ok := pr.ResolvePort(name); ok {
			name, sub = field, s
		}
	}
	for i, f := range fields {
		if f.Matches(name) {
			return i, sub, nil
		}
	}
	var candidates []int
	for i, f := range fields {
		if f.MatchesFold(name) {
			candidates = append(candidates, i)
		}
	}
	typeName := domain.NodeTypeName(node)
	switch len(candidates) {
	case 1:
		return candidates[0], sub, nil
	case 0:
		available := make([]string, len(fields))
		for i, f := range fields {
			available[i] = f.DisplayName()
		}
		return 0, 0, &UnmappedPortError{Port: name, NodeType: typeName, Available: available}
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = fields[c].DisplayName()
	}
	return 0, 0, &AmbiguousPortError{Port: name, NodeType: typeName, Candidates: names}
}

func (t *translator) lookupPort(ref authoring.PortRef) (domain.PortIndex, bool) {
	if _, ok := t.nodes[ref.Node]; !ok {
		return domain.NoPort, false
	}
	m := t.b.Mapper()
	if p, ok := m.TryGetPortIndexOfPortModel(ref.String(), -1); ok {
		return p, true
	}
	whole := authoring.PortRef{Node: ref.Node, Port: ref.Port, Index: -1}
	return m.TryGetPortIndexOfPortModel(whole.String(), ref.Index)
}

func (t *translator) connect() {
	m := t.b.Mapper()
	for _, c := range t.g.Connections {
		from, err := authoring.ParsePortRef(c.From)
		if err != nil {
			t.diags.add(SeverityError, "", "", "%v", err)
			continue
		}
		to, err := authoring.ParsePortRef(c.To)
		if err != nil {
			t.diags.add(SeverityError, "", "", "%v", err)
			continue
		}
		if t.isExcluded(from) || t.isExcluded(to) {
			continue
		}
		if t.missing(from, c) || t.missing(to, c) {
			continue
		}
		fp, ok := t.lookupPort(from)
		if !ok {
			if _, translated := t.nodes[from.Node]; translated {
				t.diags.add(SeverityError, from.Node, from.Port, "connection source %s does not exist", from)
			}
			continue
		}
		tp, ok := t.lookupPort(to)
		if !ok {
			if _, translated := t.nodes[to.Node]; translated {
				t.diags.add(SeverityError, to.Node, to.Port, "connection target %s does not exist", to)
			}
			continue
		}
		fk, _ := m.Kind(fp)
		tk, _ := m.Kind(tp)
		switch {
		case !fk.IsOutput():
			t.diags.add(SeverityError, from.Node, from.Port, "connection source %s is a %s", from, fk)
		case tk.IsOutput():
			t.diags.add(SeverityError, to.Node, to.Port, "connection target %s is a %s", to, tk)
		case fk.IsData() != tk.IsData():
			t.diags.add(SeverityError, to.Node, to.Port, "cannot connect %s %s to %s %s", fk, from, tk, to)
		case !fk.IsData() && t.b.TriggerConnected(fp):
			d := t.diags.add(SeverityError, from.Node, from.Port, "trigger %s is already connected; use a Sequence to fan out", from)
			d.Fix = removeConnectionFix(c)
		case fk.IsData() && t.b.HasSource(tp):
			d := t.diags.add(SeverityError, to.Node, to.Port, "input %s already has a source", to)
			d.Fix = removeConnectionFix(c)
		default:
			t.b.AddEdge(fp, tp)
		}
	}
}

// missing reports a connection endpoint naming a node the graph does not have.
func (t *translator) missing(ref authoring.PortRef, c authoring.Connection) bool {
	if _, ok := t.g.Node(ref.Node); ok {
		return false
	}
	d := t.diags.add(SeverityError, "", "", "connection %s -> %s references unknown node %q", c.From, c.To, ref.Node)
	d.Fix = removeConnectionFix(c)
	return true
}

func (t *translator) isExcluded(ref authoring.PortRef) bool {
	whole := authoring.PortRef{Node: ref.Node, Port: ref.Port, Index: -1}
	return t.excluded[ref.String()] || t.excluded[whole.String()]
}

// materializeDefaults wires a literal node into every unconnected input with a default.
func (t *translator) materializeDefaults() {
	m := t.b.Mapper()
	for _, p := range m.Ports() {
		if k, _ := m.Kind(p); k != domain.DataInput {
			continue
		}
		def, ok := m.Default(p)
		if !ok || t.b.HasSource(p) {
			continue
		}
		owner, _ := m.Owner(p)
		lit, err := t.c.registry.Literal(def)
		if err != nil {
			t.diags.add(SeverityError, t.b.Label(owner), m.Name(p), "%v", err)
			continue
		}
		cn, ok := lit.(domain.ConstantNode)
		if !ok {
			domain.Invariantf("literal factory returned %T, which is not a constant node", lit)
		}
		t.b.AddNode(lit, t.b.Label(owner)+"."+m.Name(p), nil)
		t.b.AddEdge(cn.ConstantOutput().Port, p)
	}
}

var valueType = reflect.TypeOf(value.Value{})

func valueHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to == valueType {
		return value.FromObject(data), nil
	}
	return data, nil
}

// decodeOptions copies authoring options onto a runtime node. Fields are matched
// by their `option` tag or, failing that, by name.
func decodeOptions(opts map[string]any, node domain.Node) error {
	if len(opts) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "option",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           node,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			valueHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(opts)
}
