// Package testutils holds helpers shared by tests across packages.
package testutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/weft/internal/compiler"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/nodes"
	"github.com/stretchr/testify/require"
)

// SetupGraphDir creates a temporary directory holding files (name to
// content) and returns its absolute path.
// It fails the test immediately on error.
func SetupGraphDir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644), "Failed to write %s", name)
	}
	return dir
}

// WriteGraph writes one graph file into a fresh directory and returns its path.
func WriteGraph(t *testing.T, name, content string) string {
	t.Helper()
	return filepath.Join(SetupGraphDir(t, map[string]string{name: content}), name)
}

// MustCompile compiles g with the standard node library and requires it to
// have no error diagnostics.
func MustCompile(t *testing.T, g *authoring.Graph) *domain.GraphDefinition {
	t.Helper()
	res, err := compiler.Compile(context.Background(), g, compiler.WithRegistry(nodes.NewRegistry()))
	require.NoError(t, err)
	require.NoError(t, res.Err())
	return res.Definition
}
