package domain

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ComputeHash returns the order-sensitive content hash of a definition.
// Names are excluded so that renaming a graph does not force a rebuild.
func ComputeHash(d *GraphDefinition) uint64 {
	h := xxhash.New()
	var buf []byte
	u := func(x uint64) {
		buf = binary.LittleEndian.AppendUint64(buf[:0], x)
		_, _ = h.Write(buf)
	}
	s := func(str string) {
		u(uint64(len(str)))
		_, _ = h.WriteString(str)
	}

	u(uint64(len(d.NodeTable)))
	for _, n := range d.NodeTable {
		s(NodeTypeName(n))
		raw, err := json.Marshal(n)
		if err != nil {
			raw = []byte(fmt.Sprintf("%#v", n))
		}
		u(uint64(len(raw)))
		_, _ = h.Write(raw)
	}

	u(uint64(len(d.PortInfoTable)))
	for _, p := range d.PortInfoTable {
		var flags uint64
		if p.IsData {
			flags |= 1
		}
		if p.IsOutput {
			flags |= 2
		}
		u(flags)
		u(uint64(p.Node))
		s(p.Name)
		u(uint64(p.DataOrTriggerIndex))
	}

	u(uint64(len(d.DataPortTable)))
	for _, p := range d.DataPortTable {
		u(uint64(p))
	}

	u(uint64(len(d.Variables)))
	for i, v := range d.Variables {
		s(v.Name)
		u(uint64(v.Kind))
		u(uint64(v.Type))
		u(v.BindingID)
		u(uint64(v.DataIndex))
		if i < len(d.VariableInitValues) {
			raw, _ := json.Marshal(d.VariableInitValues[i])
			_, _ = h.Write(raw)
		}
	}

	u(uint64(len(d.ReflectedMembers)))
	for _, m := range d.ReflectedMembers {
		s(m.Key())
		u(uint64(m.Kind))
	}

	u(uint64(len(d.GraphReferences)))
	for _, sub := range d.GraphReferences {
		u(ComputeHash(sub))
	}
	return h.Sum64()
}

// FormatHash renders a hash as 16 hex digits.
func FormatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// ParseHash parses the output of FormatHash. The empty string is 0.
func ParseHash(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	h, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return h, nil
}

// BindingID derives a variable binding id from its name and kind.
func BindingID(name string, kind VariableKind) uint64 {
	return xxhash.Sum64String(name)&^3 | uint64(kind&3)
}
