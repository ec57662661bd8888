package runtime_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/aretw0/weft/internal/compiler"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/nodes"
	"github.com/aretw0/weft/pkg/registry"
	"github.com/stretchr/testify/require"
)

func node(id, typ string, opts map[string]any, ports ...*authoring.Port) *authoring.Node {
	return &authoring.Node{ID: id, Type: typ, Options: opts, Ports: ports}
}

func withDefault(name string, def any) *authoring.Port {
	return &authoring.Port{Name: name, Direction: authoring.In, Default: def}
}

func subDefault(name string, i int, def any) *authoring.Port {
	return &authoring.Port{Name: name, Direction: authoring.In, Index: &i, Default: def}
}

func conn(from, to string) authoring.Connection {
	return authoring.Connection{From: from, To: to}
}

func compileWith(t *testing.T, reg *registry.Registry, g *authoring.Graph) *domain.GraphDefinition {
	t.Helper()
	res, err := compiler.Compile(context.Background(), g, compiler.WithRegistry(reg))
	require.NoError(t, err)
	require.NoError(t, res.Err())
	return res.Definition
}

func compile(t *testing.T, g *authoring.Graph) *domain.GraphDefinition {
	t.Helper()
	return compileWith(t, nodes.NewRegistry(), g)
}

// logCapture collects the records written by Log nodes.
type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&c.buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (c *logCapture) records(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(c.buf.String()), "\n") {
		if line == "" {
			continue
		}
		rec := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

// messages returns the info-level messages, which only Log nodes emit.
func (c *logCapture) messages(t *testing.T) []string {
	var out []string
	for _, rec := range c.records(t) {
		if rec["level"] == "INFO" {
			out = append(out, rec["msg"].(string))
		}
	}
	return out
}

// values returns the "value" attribute of info-level records.
func (c *logCapture) values(t *testing.T) []string {
	var out []string
	for _, rec := range c.records(t) {
		if v, ok := rec["value"].(string); ok && rec["level"] == "INFO" {
			out = append(out, v)
		}
	}
	return out
}
