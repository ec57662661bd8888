package domain

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// PortKind classifies a port by direction and flow.
type PortKind uint8

const (
	DataInput PortKind = iota + 1
	DataOutput
	TriggerInput
	TriggerOutput
)

// IsData reports whether the port carries values.
func (k PortKind) IsData() bool { return k == DataInput || k == DataOutput }

// IsOutput reports whether the port is an output.
func (k PortKind) IsOutput() bool { return k == DataOutput || k == TriggerOutput }

func (k PortKind) String() string {
	switch k {
	case DataInput:
		return "data input"
	case DataOutput:
		return "data output"
	case TriggerInput:
		return "trigger input"
	case TriggerOutput:
		return "trigger output"
	}
	return "invalid port"
}

var portTypes = map[reflect.Type]struct {
	kind  PortKind
	multi bool
}{
	reflect.TypeOf(InputDataPort{}):          {DataInput, false},
	reflect.TypeOf(OutputDataPort{}):         {DataOutput, false},
	reflect.TypeOf(InputTriggerPort{}):       {TriggerInput, false},
	reflect.TypeOf(OutputTriggerPort{}):      {TriggerOutput, false},
	reflect.TypeOf(InputDataMultiPort{}):     {DataInput, true},
	reflect.TypeOf(OutputDataMultiPort{}):    {DataOutput, true},
	reflect.TypeOf(InputTriggerMultiPort{}):  {TriggerInput, true},
	reflect.TypeOf(OutputTriggerMultiPort{}): {TriggerOutput, true},
}

// PortField describes one port-typed field of a runtime node struct.
//
// Fields are discovered in declaration order. The struct tag `port:"Name"` gives the
// field an alias used when matching authoring ports; `port:"-"` hides it.
type PortField struct {
	Name  string
	Alias string
	Kind  PortKind
	Multi bool
	index []int
}

// Matches reports whether name equals the field name or its alias.
func (f PortField) Matches(name string) bool {
	return name == f.Name || (f.Alias != "" && name == f.Alias)
}

// MatchesFold is the case-insensitive form of Matches.
func (f PortField) MatchesFold(name string) bool {
	return strings.EqualFold(name, f.Name) || (f.Alias != "" && strings.EqualFold(name, f.Alias))
}

// DisplayName is the alias when present, the field name otherwise.
func (f PortField) DisplayName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func (f PortField) field(node Node) reflect.Value {
	return reflect.ValueOf(node).Elem().FieldByIndex(f.index)
}

// Index reads the first port index stored in the field.
func (f PortField) Index(node Node) PortIndex {
	return PortIndex(f.field(node).Field(0).Uint())
}

// SetIndex stores the first port index in the field.
func (f PortField) SetIndex(node Node, p PortIndex) {
	f.field(node).Field(0).SetUint(uint64(p))
}

// Width is 1 for single ports and the declared Count for multi-ports.
func (f PortField) Width(node Node) int {
	if !f.Multi {
		return 1
	}
	return int(f.field(node).Field(1).Int())
}

// SetWidth sets the Count of a multi-port. It panics on single ports.
func (f PortField) SetWidth(node Node, n int) {
	if !f.Multi {
		Invariantf("port %s is not a multi-port", f.Name)
	}
	f.field(node).Field(1).SetInt(int64(n))
}

var portCache sync.Map // reflect.Type -> []PortField

// DescribePorts returns the port fields of a runtime node in declaration order.
// node must be a pointer to a struct.
func DescribePorts(node Node) []PortField {
	t := reflect.TypeOf(node)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("domain: runtime node must be a pointer to a struct, got %T", node))
	}
	if cached, ok := portCache.Load(t); ok {
		return cached.([]PortField)
	}
	fields := scanPorts(t.Elem(), nil)
	actual, _ := portCache.LoadOrStore(t, fields)
	return actual.([]PortField)
}

func scanPorts(t reflect.Type, prefix []int) []PortField {
	var out []PortField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		idx := append(append([]int(nil), prefix...), i)
		tag := sf.Tag.Get("port")
		if tag == "-" {
			continue
		}
		if pt, ok := portTypes[sf.Type]; ok {
			if !sf.IsExported() {
				continue
			}
			out = append(out, PortField{
				Name:  sf.Name,
				Alias: tag,
				Kind:  pt.kind,
				Multi: pt.multi,
				index: idx,
			})
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			out = append(out, scanPorts(sf.Type, idx)...)
		}
	}
	return out
}

// FindPort returns the field whose name or alias is exactly name.
func FindPort(node Node, name string) (PortField, bool) {
	for _, f := range DescribePorts(node) {
		if f.Matches(name) {
			return f, true
		}
	}
	return PortField{}, false
}
