package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/aretw0/weft/pkg/value"
)

var nodeTypes = struct {
	sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}{
	byName: make(map[string]reflect.Type),
	byType: make(map[reflect.Type]string),
}

// RegisterNodeType records the persisted name of a runtime node type.
// prototype must be a pointer to a struct. Re-registering a type under a new name
// keeps the first name as canonical.
func RegisterNodeType(name string, prototype Node) {
	t := reflect.TypeOf(prototype)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("domain: node type %q must be a pointer to a struct, got %T", name, prototype))
	}
	nodeTypes.Lock()
	defer nodeTypes.Unlock()
	nodeTypes.byName[name] = t.Elem()
	if _, ok := nodeTypes.byType[t.Elem()]; !ok {
		nodeTypes.byType[t.Elem()] = name
	}
}

// RegisteredNodeTypes lists the persisted node type names.
func RegisteredNodeTypes() []string {
	nodeTypes.RLock()
	defer nodeTypes.RUnlock()
	names := make([]string, 0, len(nodeTypes.byName))
	for name := range nodeTypes.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func typeNameOf(n Node) (string, bool) {
	t := reflect.TypeOf(n)
	if t == nil || t.Kind() != reflect.Pointer {
		return "", false
	}
	nodeTypes.RLock()
	defer nodeTypes.RUnlock()
	name, ok := nodeTypes.byType[t.Elem()]
	return name, ok
}

// NewNodeOfType allocates a zero runtime node of a registered type.
func NewNodeOfType(name string) (Node, error) {
	nodeTypes.RLock()
	t, ok := nodeTypes.byName[name]
	nodeTypes.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, name)
	}
	return reflect.New(t).Interface(), nil
}

// CloneNode returns a shallow copy of a runtime node.
func CloneNode(n Node) Node {
	v := reflect.ValueOf(n)
	c := reflect.New(v.Elem().Type())
	c.Elem().Set(v.Elem())
	return c.Interface()
}

type wireNode struct {
	Type  string          `json:"type"`
	Label string          `json:"label,omitempty"`
	Node  json.RawMessage `json:"node"`
}

type wireDefinition struct {
	Name       string            `json:"name"`
	Hash       string            `json:"hash"`
	Nodes      []wireNode        `json:"nodes"`
	Ports      []PortInfo        `json:"ports"`
	Data       []PortIndex       `json:"data"`
	Variables  []Variable        `json:"variables,omitempty"`
	InitValues []value.Value     `json:"init_values,omitempty"`
	Members    []ReflectedMember `json:"members,omitempty"`
	Subgraphs  []json.RawMessage `json:"subgraphs,omitempty"`
}

// MarshalJSON encodes the definition with every node tagged by its registered type.
func (d *GraphDefinition) MarshalJSON() ([]byte, error) {
	w := wireDefinition{
		Name:       d.Name,
		Hash:       FormatHash(d.Hash),
		Ports:      d.PortInfoTable,
		Data:       d.DataPortTable,
		Variables:  d.Variables,
		InitValues: d.VariableInitValues,
		Members:    d.ReflectedMembers,
	}
	for i, n := range d.NodeTable {
		name, ok := typeNameOf(n)
		if !ok {
			return nil, fmt.Errorf("%w: node %d has unregistered type %T", ErrUnknownNodeType, i+1, n)
		}
		raw, err := json.Marshal(n)
		if err != nil {
			return nil, fmt.Errorf("failed to encode node %d: %w", i+1, err)
		}
		w.Nodes = append(w.Nodes, wireNode{Type: name, Label: d.Label(NodeID(i + 1)), Node: raw})
	}
	for _, sub := range d.GraphReferences {
		raw, err := json.Marshal(sub)
		if err != nil {
			return nil, fmt.Errorf("failed to encode subgraph %s: %w", sub.Name, err)
		}
		w.Subgraphs = append(w.Subgraphs, raw)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a definition written by MarshalJSON.
func (d *GraphDefinition) UnmarshalJSON(b []byte) error {
	var w wireDefinition
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	hash, err := ParseHash(w.Hash)
	if err != nil {
		return err
	}
	d.Name = w.Name
	d.Hash = hash
	d.PortInfoTable = w.Ports
	d.DataPortTable = w.Data
	d.Variables = w.Variables
	d.VariableInitValues = w.InitValues
	d.ReflectedMembers = w.Members
	d.NodeTable = make([]Node, 0, len(w.Nodes))
	d.NodeLabels = make([]string, 0, len(w.Nodes))
	for i, wn := range w.Nodes {
		n, err := NewNodeOfType(wn.Type)
		if err != nil {
			return fmt.Errorf("node %d: %w", i+1, err)
		}
		if err := json.Unmarshal(wn.Node, n); err != nil {
			return fmt.Errorf("failed to decode node %d (%s): %w", i+1, wn.Type, err)
		}
		d.NodeTable = append(d.NodeTable, n)
		d.NodeLabels = append(d.NodeLabels, wn.Label)
	}
	d.GraphReferences = nil
	for _, raw := range w.Subgraphs {
		sub := &GraphDefinition{}
		if err := json.Unmarshal(raw, sub); err != nil {
			return fmt.Errorf("failed to decode subgraph: %w", err)
		}
		d.GraphReferences = append(d.GraphReferences, sub)
	}
	return nil
}

// MarshalDefinition encodes d as JSON.
func MarshalDefinition(d *GraphDefinition) ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalDefinition decodes a definition and verifies its stored hash.
func UnmarshalDefinition(b []byte) (*GraphDefinition, error) {
	d := &GraphDefinition{}
	if err := json.Unmarshal(b, d); err != nil {
		return nil, err
	}
	if got := ComputeHash(d); d.Hash != 0 && got != d.Hash {
		return nil, fmt.Errorf("definition %q is corrupt: hash %s, stored %s", d.Name, FormatHash(got), FormatHash(d.Hash))
	}
	return d, nil
}
