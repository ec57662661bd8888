package authoring

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// hclFile is the top-level structure of an HCL graph file.
type hclFile struct {
	Graphs []*hclGraph `hcl:"graph,block"`
}

type hclGraph struct {
	Name        string         `hcl:"name,label"`
	Variables   []*hclVariable `hcl:"variable,block"`
	Nodes       []*hclNode     `hcl:"node,block"`
	Connections []*hclConnect  `hcl:"connect,block"`
	Subgraphs   []*hclGraph    `hcl:"subgraph,block"`
}

type hclVariable struct {
	Name    string         `hcl:"name,label"`
	Kind    *string        `hcl:"kind,optional"`
	Type    *string        `hcl:"type,optional"`
	Default hcl.Expression `hcl:"default,optional"`
}

type hclNode struct {
	ID             string         `hcl:"id,label"`
	Type           string         `hcl:"type,optional"`
	Specialization *string        `hcl:"specialization,optional"`
	Member         *string        `hcl:"member,optional"`
	Options        hcl.Expression `hcl:"options,optional"`
	Ports          []*hclPort     `hcl:"port,block"`
}

type hclPort struct {
	Name      string         `hcl:"name,label"`
	Direction *string        `hcl:"direction,optional"`
	Kind      *string        `hcl:"kind,optional"`
	Index     *int           `hcl:"index,optional"`
	Width     *int           `hcl:"width,optional"`
	Type      *string        `hcl:"type,optional"`
	Default   hcl.Expression `hcl:"default,optional"`
}

type hclConnect struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// DecodeHCL parses an HCL file holding exactly one graph block.
func DecodeHCL(filename string, src []byte) (*Graph, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if len(parsed.Graphs) != 1 {
		return nil, fmt.Errorf("HCL file %s must contain exactly one graph block, found %d", filename, len(parsed.Graphs))
	}
	return parsed.Graphs[0].toGraph()
}

func (h *hclGraph) toGraph() (*Graph, error) {
	g := &Graph{Name: h.Name}
	for _, v := range h.Variables {
		def, err := exprValue(v.Default)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", v.Name, err)
		}
		g.Variables = append(g.Variables, VariableDecl{
			Name:    v.Name,
			Kind:    deref(v.Kind),
			Type:    deref(v.Type),
			Default: def,
		})
	}
	for _, hn := range h.Nodes {
		n := &Node{
			ID:             hn.ID,
			Type:           hn.Type,
			Specialization: deref(hn.Specialization),
			Member:         deref(hn.Member),
		}
		opts, err := exprValue(hn.Options)
		if err != nil {
			return nil, fmt.Errorf("node %s options: %w", hn.ID, err)
		}
		if opts != nil {
			m, ok := opts.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("node %s options must be an object", hn.ID)
			}
			n.Options = m
		}
		for _, hp := range hn.Ports {
			def, err := exprValue(hp.Default)
			if err != nil {
				return nil, fmt.Errorf("node %s port %s: %w", hn.ID, hp.Name, err)
			}
			p := &Port{
				Name:      hp.Name,
				Direction: Direction(deref(hp.Direction)),
				Kind:      PortKind(deref(hp.Kind)),
				Index:     hp.Index,
				Type:      deref(hp.Type),
				Default:   def,
			}
			if hp.Width != nil {
				p.Width = *hp.Width
			}
			n.Ports = append(n.Ports, p)
		}
		g.Nodes = append(g.Nodes, n)
	}
	for _, c := range h.Connections {
		g.Connections = append(g.Connections, Connection{From: c.From, To: c.To})
	}
	for _, sub := range h.Subgraphs {
		sg, err := sub.toGraph()
		if err != nil {
			return nil, fmt.Errorf("subgraph %s: %w", sub.Name, err)
		}
		if g.Subgraphs == nil {
			g.Subgraphs = make(map[string]*Graph)
		}
		g.Subgraphs[sub.Name] = sg
	}
	return g, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// exprValue evaluates a constant attribute expression. Absent attributes yield nil.
func exprValue(expr hcl.Expression) (any, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToNative(v)
}

// ctyToNative converts a cty.Value to its most natural Go counterpart.
// Whole numbers become int, other numbers float64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			var i int
			if err := gocty.FromCtyValue(v, &i); err == nil {
				return i, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert cty.Number to float64: %w", err)
		}
		return f, nil
	case ty == cty.Bool:
		var b bool
		if err := gocty.FromCtyValue(v, &b); err != nil {
			return nil, fmt.Errorf("internal error: failed to convert cty.Bool to bool: %w", err)
		}
		return b, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			native, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			native, err := ctyToNative(ev)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", k.AsString(), err)
			}
			out[k.AsString()] = native
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty type: %s", ty.FriendlyName())
}
