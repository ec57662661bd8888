package compiler

import (
	"fmt"
	"strings"

	"github.com/aretw0/weft/pkg/authoring"
	"github.com/hashicorp/go-multierror"
)

// Severity grades a diagnostic.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	}
	return "error"
}

// Fix is an automatic repair offered with a diagnostic.
type Fix struct {
	Title string
	Apply func(g *authoring.Graph)
}

// Diagnostic is a structured compiler message attached to an authoring node or port.
type Diagnostic struct {
	Severity Severity
	Message  string
	Node     string
	Port     string
	Fix      *Fix
}

func (d Diagnostic) Error() string {
	var sb strings.Builder
	sb.WriteString(d.Severity.String())
	if d.Node != "" {
		sb.WriteString(" [")
		sb.WriteString(d.Node)
		if d.Port != "" {
			sb.WriteString(".")
			sb.WriteString(d.Port)
		}
		sb.WriteString("]")
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// Diagnostics collects compiler messages. A build with error diagnostics still
// produces a definition; the offending nodes or connections are left out.
type Diagnostics []Diagnostic

func (ds *Diagnostics) add(sev Severity, node, port, format string, args ...any) *Diagnostic {
	*ds = append(*ds, Diagnostic{Severity: sev, Node: node, Port: port, Message: fmt.Sprintf(format, args...)})
	return &(*ds)[len(*ds)-1]
}

// HasErrors reports whether any diagnostic has error severity.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Filter returns the diagnostics at or above min.
func (ds Diagnostics) Filter(min Severity) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity >= min {
			out = append(out, d)
		}
	}
	return out
}

// Err aggregates the error diagnostics, or returns nil when there are none.
func (ds Diagnostics) Err() error {
	var result *multierror.Error
	for _, d := range ds {
		if d.Severity == SeverityError {
			result = multierror.Append(result, d)
		}
	}
	return result.ErrorOrNil()
}

// ApplyFixes runs every offered fix against g and returns how many were applied.
func (ds Diagnostics) ApplyFixes(g *authoring.Graph) int {
	n := 0
	for _, d := range ds {
		if d.Fix != nil && d.Fix.Apply != nil {
			d.Fix.Apply(g)
			n++
		}
	}
	return n
}

func removeNodeFix(id string) *Fix {
	return &Fix{
		Title: fmt.Sprintf("remove node %s", id),
		Apply: func(g *authoring.Graph) {
			nodes := g.Nodes[:0]
			for _, n := range g.Nodes {
				if n.ID != id {
					nodes = append(nodes, n)
				}
			}
			g.Nodes = nodes
			conns := g.Connections[:0]
			for _, c := range g.Connections {
				from, _ := authoring.ParsePortRef(c.From)
				to, _ := authoring.ParsePortRef(c.To)
				if from.Node != id && to.Node != id {
					conns = append(conns, c)
				}
			}
			g.Connections = conns
		},
	}
}

func removeConnectionFix(c authoring.Connection) *Fix {
	return &Fix{
		Title: fmt.Sprintf("remove connection %s -> %s", c.From, c.To),
		Apply: func(g *authoring.Graph) {
			for i, existing := range g.Connections {
				if existing == c {
					g.Connections = append(g.Connections[:i], g.Connections[i+1:]...)
					return
				}
			}
		},
	}
}

func renamePortFix(node, from, to string) *Fix {
	return &Fix{
		Title: fmt.Sprintf("rename port %s to %s", from, to),
		Apply: func(g *authoring.Graph) {
			n, ok := g.Node(node)
			if !ok {
				return
			}
			for _, p := range n.Ports {
				if p.Name == from {
					p.Name = to
				}
			}
			for i, c := range g.Connections {
				g.Connections[i].From = renameRef(c.From, node, from, to)
				g.Connections[i].To = renameRef(c.To, node, from, to)
			}
		},
	}
}

func renameRef(s, node, from, to string) string {
	ref, err := authoring.ParsePortRef(s)
	if err != nil || ref.Node != node || ref.Port != from {
		return s
	}
	ref.Port = to
	return ref.String()
}
