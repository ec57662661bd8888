package tests

import (
	"context"
	"testing"

	"github.com/aretw0/weft/internal/compiler"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
	"github.com/aretw0/weft/pkg/nodes"
	"github.com/aretw0/weft/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Definition compiles a small graph with a variable, a literal default and a
// labelled node set, for store tests.
func Definition(t *testing.T, name string, increment int) *domain.GraphDefinition {
	t.Helper()
	b := dsl.New(name)
	b.Variable("count", "int", 0)
	b.Add("start", "OnStart").Then("Out", "set.Enter")
	b.Add("get", "GetVariable").Option("variable", "count")
	b.Add("add", "Add").Default("B", increment)
	b.Add("set", "SetVariable").Option("variable", "count")
	b.Connect("get.Value", "add.A")
	b.Connect("add.Result", "set.Value")

	res, err := compiler.Compile(context.Background(), b.MustBuild(), compiler.WithRegistry(nodes.NewRegistry()))
	require.NoError(t, err)
	require.NoError(t, res.Err())
	return res.Definition
}

// RunDefinitionStoreContract verifies that a DefinitionStore implementation
// adheres to the interface contract. The store must start empty.
func RunDefinitionStoreContract(t *testing.T, store ports.DefinitionStore) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		def := Definition(t, "counter", 1)
		require.NoError(t, store.Save(ctx, "counter", def))

		loaded, err := store.Load(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, def.Name, loaded.Name)
		assert.Equal(t, def.Hash, loaded.Hash)
		assert.Equal(t, def.Hash, domain.ComputeHash(loaded), "loaded definition must hash like the saved one")
		assert.Equal(t, def.NodeLabels, loaded.NodeLabels)
		assert.Equal(t, def.NodeCount(), loaded.NodeCount())
		assert.Len(t, loaded.Variables, 1)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		def := Definition(t, "counter", 5)
		require.NoError(t, store.Save(ctx, "counter", def))

		loaded, err := store.Load(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, def.Hash, loaded.Hash)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent")
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "b-graph", Definition(t, "b", 1)))
		require.NoError(t, store.Save(ctx, "a-graph", Definition(t, "a", 1)))

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a-graph", "b-graph", "counter"}, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "counter"))
		require.NoError(t, store.Delete(ctx, "counter"), "deleting twice must not fail")

		_, err := store.Load(ctx, "counter")
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a-graph", "b-graph"}, keys)
	})
}

// RunGraphSourceContract verifies that a GraphSource serves exactly the graphs
// in want, keyed by name, each with the given node count.
func RunGraphSourceContract(t *testing.T, src ports.GraphSource, want map[string]int) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load", func(t *testing.T) {
		for name, count := range want {
			g, err := src.Load(ctx, name)
			require.NoError(t, err, "loading %s", name)
			assert.Equal(t, name, g.Name)
			assert.Len(t, g.Nodes, count)
		}
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := src.Load(ctx, "non-existent-graph")
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("List", func(t *testing.T) {
		names, err := src.List(ctx)
		require.NoError(t, err)
		assert.Len(t, names, len(want))
		assert.IsIncreasing(t, names)
		for name := range want {
			assert.Contains(t, names, name)
		}
	})
}
