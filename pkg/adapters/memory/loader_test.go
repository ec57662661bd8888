package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/dsl"
	contract "github.com/aretw0/weft/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graph(name string, n int) *dsl.Builder {
	b := dsl.New(name)
	for i := 0; i < n; i++ {
		b.Add(string(rune('a'+i)), "Log")
	}
	return b
}

func TestInMemorySource_Contract(t *testing.T) {
	src, err := memory.NewSource(graph("one", 1).MustBuild(), graph("two", 2).MustBuild())
	require.NoError(t, err)

	contract.RunGraphSourceContract(t, src, map[string]int{"one": 1, "two": 2})
}

func TestInMemorySource_Watch(t *testing.T) {
	src, err := memory.NewSource()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := src.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, src.Put(graph("hot", 3).MustBuild()))

	select {
	case name := <-changes:
		assert.Equal(t, "hot", name)
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}

	g, err := src.Load(ctx, "hot")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)

	cancel()
	select {
	case _, ok := <-changes:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed")
	}
}

func TestInMemorySource_RejectsUnnamed(t *testing.T) {
	g := graph("x", 1).MustBuild()
	g.Name = ""
	_, err := memory.NewSource(g)
	assert.Error(t, err)
}
