package authoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a graph, choosing the format by file extension.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	return Decode(path, data)
}

// Decode parses data in the format implied by name's extension
// (.yaml, .yml, .json or .hcl) and normalizes the result.
func Decode(name string, data []byte) (*Graph, error) {
	var (
		g   *Graph
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		g, err = DecodeYAML(data)
	case ".json":
		g, err = DecodeJSON(data)
	case ".hcl":
		g, err = DecodeHCL(name, data)
	default:
		return nil, fmt.Errorf("unsupported graph format: %s", name)
	}
	if err != nil {
		return nil, err
	}
	if g.Name == "" {
		g.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	if err := g.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid graph %s: %w", name, err)
	}
	return g, nil
}

// DecodeYAML parses a YAML graph without normalizing it.
func DecodeYAML(data []byte) (*Graph, error) {
	var g Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse yaml graph: %w", err)
	}
	return &g, nil
}

// DecodeJSON parses a JSON graph without normalizing it.
// Whole numbers decode as int so that literals keep their integer kind.
func DecodeJSON(data []byte) (*Graph, error) {
	var g Graph
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to parse json graph: %w", err)
	}
	g.walkValues(fromJSONNumber)
	return &g, nil
}

func (g *Graph) walkValues(fn func(any) any) {
	for _, n := range g.Nodes {
		for k, v := range n.Options {
			n.Options[k] = fn(v)
		}
		for _, p := range n.Ports {
			p.Default = fn(p.Default)
		}
	}
	for i := range g.Variables {
		g.Variables[i].Default = fn(g.Variables[i].Default)
	}
	for _, sub := range g.Subgraphs {
		sub.walkValues(fn)
	}
}

func fromJSONNumber(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i)
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = fromJSONNumber(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = fromJSONNumber(x[k])
		}
	}
	return v
}

// Fingerprint is a content hash of the authoring graph, for cache keys.
func (g *Graph) Fingerprint() uint64 {
	raw, err := json.Marshal(g)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(raw)
}
