package runtime_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/weft/internal/runtime"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterGraph(withLog bool) *authoring.Graph {
	g := &authoring.Graph{
		Name:      "counter",
		Variables: []authoring.VariableDecl{{Name: "count", Type: "int"}},
		Nodes: []*authoring.Node{
			node("update", "OnUpdate", nil),
			node("get", "GetVariable", map[string]any{"variable": "count"}),
			node("inc", "Add", nil, withDefault("B", 1)),
			node("set", "SetVariable", map[string]any{"variable": "count"}),
		},
		Connections: []authoring.Connection{
			conn("update.Out", "set.Enter"),
			conn("get.Value", "inc.A"),
			conn("inc.Result", "set.Value"),
		},
	}
	if withLog {
		g.Nodes = append(g.Nodes, logNode("log", "counted"))
		g.Connections = append(g.Connections, conn("set.Exit", "log.Enter"))
	}
	return g
}

func TestHostTickRunsEveryInstance(t *testing.T) {
	def := compile(t, counterGraph(false))
	h := runtime.NewHost()
	a := h.Spawn(def)
	b := h.Spawn(def)
	require.NotEqual(t, a, b)
	assert.Equal(t, []domain.Entity{a, b}, h.Entities())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Tick(ctx, 16*time.Millisecond))
	}
	assert.Equal(t, uint64(3), h.Frame())

	for _, e := range h.Entities() {
		inst, ok := h.Instance(e)
		require.True(t, ok)
		count, _ := inst.Variable("count")
		assert.Equal(t, 3, count.Int())
	}

	require.True(t, h.Despawn(a))
	assert.False(t, h.Despawn(a))
	assert.Equal(t, []domain.Entity{b}, h.Entities())
}

func TestHostTickHonoursCancellation(t *testing.T) {
	h := runtime.NewHost()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Tick(ctx, time.Millisecond), context.Canceled)
	assert.Equal(t, uint64(0), h.Frame())
}

func TestHostReloadKeepsVariables(t *testing.T) {
	v1 := compile(t, counterGraph(false))
	v2 := compile(t, counterGraph(true))
	require.NotEqual(t, v1.Hash, v2.Hash)

	var logs logCapture
	h := runtime.NewHost(runtime.WithHostLogger(logs.logger()))
	e := h.Spawn(v1)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Tick(ctx, time.Millisecond))
	}

	assert.Equal(t, 0, h.Reload(v1), "same hash is not reloaded")
	assert.Equal(t, 1, h.Reload(v2))

	inst, ok := h.Instance(e)
	require.True(t, ok)
	assert.Same(t, v2, inst.Definition())
	count, _ := inst.Variable("count")
	assert.Equal(t, 3, count.Int())

	require.NoError(t, h.Tick(ctx, time.Millisecond))
	count, _ = inst.Variable("count")
	assert.Equal(t, 4, count.Int())
	assert.Contains(t, logs.messages(t), "counted")
}

func TestHostReloadStartsWithCarriedVariables(t *testing.T) {
	v1 := compile(t, counterGraph(false))
	g := counterGraph(false)
	g.Nodes = append(g.Nodes,
		node("start", "OnStart", nil),
		node("current", "GetVariable", map[string]any{"variable": "count"}),
		node("bump", "Add", nil, withDefault("B", 100)),
		node("store", "SetVariable", map[string]any{"variable": "count"}),
		logNode("seen", "seen"),
	)
	g.Connections = append(g.Connections,
		conn("start.Out", "store.Enter"),
		conn("current.Value", "bump.A"),
		conn("bump.Result", "store.Value"),
		conn("store.Exit", "seen.Enter"),
		conn("current.Value", "seen.Value"),
	)
	v2 := compile(t, g)

	var logs logCapture
	h := runtime.NewHost(runtime.WithHostLogger(logs.logger()))
	e := h.Spawn(v1)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Tick(ctx, time.Millisecond))
	}

	require.Equal(t, 1, h.Reload(v2))
	inst, ok := h.Instance(e)
	require.True(t, ok)
	count, _ := inst.Variable("count")
	assert.Equal(t, 103, count.Int(), "OnStart sees the carried value and its write is kept")
	assert.Equal(t, []string{"103"}, logs.values(t))
}

func TestEventsThroughHostBus(t *testing.T) {
	listener := compile(t, &authoring.Graph{
		Name: "listener",
		Nodes: []*authoring.Node{
			node("on", "OnEvent", map[string]any{"event": "ping"}),
			logNode("log", "pinged"),
		},
		Connections: []authoring.Connection{
			conn("on.Out", "log.Enter"),
			conn("on.Payload", "log.Value"),
		},
	})

	var logs logCapture
	h := runtime.NewHost(runtime.WithHostLogger(logs.logger()))
	a := h.Spawn(listener)
	b := h.Spawn(listener)

	ctx := context.Background()
	assert.Equal(t, 1, h.Bus().Trigger(ctx, domain.Hook{Name: "ping", Target: a}, value.FromInt(7)))
	assert.Equal(t, []string{"7"}, logs.values(t))

	h.Despawn(b)
	assert.Equal(t, 0, h.Bus().Trigger(ctx, domain.Hook{Name: "ping", Target: b}, value.FromInt(8)))
	assert.Equal(t, []string{"7"}, logs.values(t))
}

func TestEventsReachNestedSubgraphs(t *testing.T) {
	relay := &authoring.Graph{
		Nodes: []*authoring.Node{
			node("on", "OnEvent", map[string]any{"event": "ping"}),
			logNode("log", "nested"),
		},
		Connections: []authoring.Connection{
			conn("on.Out", "log.Enter"),
			conn("on.Payload", "log.Value"),
		},
	}
	def := compile(t, &authoring.Graph{
		Name:      "outer",
		Subgraphs: map[string]*authoring.Graph{"relay": relay},
		Nodes: []*authoring.Node{
			node("call", "SubgraphCall", map[string]any{"graph": "relay"}),
		},
	})

	var logs logCapture
	h := runtime.NewHost(runtime.WithHostLogger(logs.logger()))
	e := h.Spawn(def)
	other := h.Spawn(def)

	ctx := context.Background()
	assert.Equal(t, 1, h.Bus().Trigger(ctx, domain.Hook{Name: "ping", Target: e}, value.FromInt(5)))
	assert.Equal(t, []string{"5"}, logs.values(t))

	h.Despawn(other)
	assert.Equal(t, 0, h.Bus().Trigger(ctx, domain.Hook{Name: "ping", Target: other}, value.FromInt(6)))
	assert.Equal(t, []string{"5"}, logs.values(t))
}

func TestSendEventReachesGlobalListeners(t *testing.T) {
	listener := compile(t, &authoring.Graph{
		Name: "listener",
		Nodes: []*authoring.Node{
			node("on", "OnEvent", map[string]any{"event": "hello", "global": true}),
			logNode("log", "heard"),
		},
		Connections: []authoring.Connection{conn("on.Out", "log.Enter")},
	})
	sender := compile(t, &authoring.Graph{
		Name: "sender",
		Nodes: []*authoring.Node{
			node("start", "OnStart", nil),
			node("send", "SendEvent", map[string]any{"event": "hello", "global": true}),
		},
		Connections: []authoring.Connection{conn("start.Out", "send.Enter")},
	})

	var logs logCapture
	h := runtime.NewHost(runtime.WithHostLogger(logs.logger()))
	h.Spawn(listener)
	h.Spawn(listener)
	h.Spawn(sender)

	assert.Equal(t, []string{"heard", "heard"}, logs.messages(t))
	h.Close()
	assert.Empty(t, h.Entities())
	assert.Empty(t, h.Bus().Hooks())
}

func TestHostPostRunsOnTick(t *testing.T) {
	h := runtime.NewHost()
	var ran []int
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Post(func() { ran = append(ran, 1) })
		}()
	}
	wg.Wait()
	assert.Empty(t, ran)
	require.NoError(t, h.Tick(context.Background(), time.Millisecond))
	assert.Len(t, ran, 4)
	assert.Equal(t, 0, h.Dispatch())
}
