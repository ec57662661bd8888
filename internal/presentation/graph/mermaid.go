package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/weft/pkg/domain"
)

// GraphOverlay contains runtime state to visualize on the graph.
type GraphOverlay struct {
	// Failed marks nodes with a recorded error, e.g. GraphInstance.Errors.
	Failed map[domain.NodeID]error
	// Visited marks nodes that executed.
	Visited []domain.NodeID
}

// GenerateMermaid produces a Mermaid flowchart for a compiled definition.
// It applies semantic styling:
// - Entry points: ((Circle))
// - Sub-graph calls: [[Subroutine]]
// - Constants: {{Hexagon}}
// - Pure data nodes: (Rounded)
// - Flow nodes: [Rectangle]
// Trigger edges are solid, data edges dotted. Referenced sub-graphs are
// rendered as nested subgraph blocks. The overlay is applied to the top-level
// graph only.
func GenerateMermaid(def *domain.GraphDefinition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	writeGraph(&sb, def, "", "    ")
	for i, sub := range def.GraphReferences {
		prefix := fmt.Sprintf("g%d_", i+1)
		fmt.Fprintf(&sb, "    subgraph %s[\"%s\"]\n", strings.TrimSuffix(prefix, "_"), escape(sub.Name))
		writeGraph(&sb, sub, prefix, "        ")
		sb.WriteString("    end\n")
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.NodeID]bool)
		for _, id := range overlay.Visited {
			if !seen[id] && validNode(def, id) {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", nodeID("", id))
			}
		}
		failed := make([]domain.NodeID, 0, len(overlay.Failed))
		for id := range overlay.Failed {
			if validNode(def, id) {
				failed = append(failed, id)
			}
		}
		sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
		for _, id := range failed {
			fmt.Fprintf(&sb, "    class %s failed;\n", nodeID("", id))
		}
	}

	return sb.String()
}

func writeGraph(sb *strings.Builder, def *domain.GraphDefinition, prefix, indent string) {
	for i, n := range def.NodeTable {
		id := domain.NodeID(i + 1)
		opener, closer := shape(n)
		label := escape(def.Label(id)) + "<br/>" + escape(domain.NodeTypeName(n))
		if c, ok := n.(domain.ConstantNode); ok {
			label += " = " + escape(c.Constant().String())
		}
		fmt.Fprintf(sb, "%s%s%s\"%s\"%s\n", indent, nodeID(prefix, id), opener, label, closer)
	}

	vars := make(map[domain.DataIndex]string, len(def.Variables))
	for _, v := range def.Variables {
		vars[v.DataIndex] = v.Name
		fmt.Fprintf(sb, "%s%s[(\"%s\")]\n", indent, varID(prefix, v.Name), escape(v.Name))
	}

	for p := 1; p < len(def.PortInfoTable); p++ {
		info := def.PortInfoTable[p]
		switch info.Kind() {
		case domain.TriggerOutput:
			if info.Target() == domain.NoPort {
				continue
			}
			to := def.Port(info.Target())
			fmt.Fprintf(sb, "%s%s -- \"%s\" --> %s\n", indent,
				nodeID(prefix, info.Node), edgeLabel(info.Name, to.Name), nodeID(prefix, to.Node))
		case domain.DataInput:
			slot := info.Slot()
			if slot == domain.NullSlot {
				continue
			}
			if name, ok := vars[slot]; ok {
				fmt.Fprintf(sb, "%s%s -. \"%s\" .-> %s\n", indent, varID(prefix, name), escape(info.Name), nodeID(prefix, info.Node))
				continue
			}
			producer := def.DataPortTable[slot]
			if producer == domain.NoPort {
				continue
			}
			from := def.Port(producer)
			fmt.Fprintf(sb, "%s%s -. \"%s\" .-> %s\n", indent,
				nodeID(prefix, from.Node), edgeLabel(from.Name, info.Name), nodeID(prefix, info.Node))
		}
	}
}

func shape(n domain.Node) (string, string) {
	_, flow := n.(domain.FlowNode)
	switch {
	case isEntry(n):
		return "((", "))"
	case isSubgraph(n):
		return "[[", "]]"
	case isConstant(n):
		return "{{", "}}"
	case !flow:
		return "(", ")"
	}
	return "[", "]"
}

func isEntry(n domain.Node) bool    { _, ok := n.(domain.EntryPointNode); return ok }
func isSubgraph(n domain.Node) bool { _, ok := n.(domain.SubgraphNode); return ok }
func isConstant(n domain.Node) bool { _, ok := n.(domain.ConstantNode); return ok }

func validNode(def *domain.GraphDefinition, id domain.NodeID) bool {
	return id.Valid() && int(id) <= def.NodeCount()
}

func nodeID(prefix string, id domain.NodeID) string {
	return fmt.Sprintf("%sn%d", prefix, id)
}

func varID(prefix, name string) string {
	return prefix + "var_" + sanitizeMermaidID(name)
}

func edgeLabel(from, to string) string {
	if from == to {
		return escape(from)
	}
	return escape(from) + " → " + escape(to)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '/', '\\', ' ', '[', ']':
			return '_'
		}
		return r
	}, id)
}
