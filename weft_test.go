package weft_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/weft"
	"github.com/aretw0/weft/pkg/adapters/file"
	redisstore "github.com/aretw0/weft/pkg/adapters/redis"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
	"github.com/aretw0/weft/pkg/observability"
	"github.com/aretw0/weft/pkg/runner"
	"github.com/aretw0/weft/pkg/value"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ticking counts frames in a variable.
func ticking(step int) *authoring.Graph {
	b := dsl.New("ticking")
	b.Variable("count", "int", 0)
	b.Add("update", "OnUpdate").Then("Out", "set.Enter")
	b.Add("get", "GetVariable").Option("variable", "count")
	b.Add("add", "Arithmetic").Specialize("Add").Default("B", step)
	b.Add("set", "SetVariable").Option("variable", "count")
	b.Connect("get.Value", "add.A")
	b.Connect("add.Result", "set.Value")
	return b.MustBuild()
}

func listener() *authoring.Graph {
	b := dsl.New("listener")
	b.Variable("last", "int", 0)
	b.Add("on", "OnEvent").Option("event", "hit").Then("Out", "set.Enter")
	b.Add("set", "SetVariable").Option("variable", "last")
	b.Connect("on.Payload", "set.Value")
	return b.MustBuild()
}

func variable(t *testing.T, eng *weft.Engine, e domain.Entity, name string) int {
	t.Helper()
	inst, ok := eng.Host().Instance(e)
	require.True(t, ok)
	v, ok := inst.Variable(name)
	require.True(t, ok)
	return v.Int()
}

func TestEngine_EnsureSavesOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	store := file.New(t.TempDir())
	eng := weft.New(weft.WithStore(store))
	defer eng.Close()

	def, changed, err := eng.Ensure(ctx, "ticking", ticking(1))
	require.NoError(t, err)
	assert.True(t, changed)

	again, changed, err := eng.Ensure(ctx, "ticking", ticking(1))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, def.Hash, again.Hash)

	edited, changed, err := eng.Ensure(ctx, "ticking", ticking(2))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEqual(t, def.Hash, edited.Hash)

	loaded, err := eng.Load(ctx, "ticking")
	require.NoError(t, err)
	assert.Equal(t, edited.Hash, loaded.Hash)
}

func TestEngine_EnsureRejectsInvalidGraph(t *testing.T) {
	eng := weft.New()
	defer eng.Close()

	b := dsl.New("broken")
	b.Add("x", "NoSuchNode")
	_, _, err := eng.Ensure(context.Background(), "broken", b.MustBuild())
	assert.ErrorIs(t, err, domain.ErrInvalidGraph)

	_, err = eng.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
}

func TestEngine_EnsureWithLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	store := redisstore.New(mr.Addr(), "", 0)
	defer store.Close()
	locker := redisstore.NewLocker(store.Client(), "weft:test:")

	eng := weft.New(weft.WithStore(store), weft.WithLocker(locker, time.Second))
	defer eng.Close()

	_, changed, err := eng.Ensure(context.Background(), "ticking", ticking(1))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, mr.Exists("weft:test:lock:ticking"), "lock is released after Ensure")
}

func TestEngine_TickAndReload(t *testing.T) {
	ctx := context.Background()
	eng := weft.New()
	defer eng.Close()

	def, _, err := eng.Ensure(ctx, "ticking", ticking(1))
	require.NoError(t, err)
	e := eng.Spawn(def)

	for i := 0; i < 3; i++ {
		require.NoError(t, eng.Tick(ctx, 16*time.Millisecond))
	}
	assert.Equal(t, 3, variable(t, eng, e, "count"))

	edited, changed, err := eng.Ensure(ctx, "ticking", ticking(10))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, 1, eng.Reload(edited))

	require.NoError(t, eng.Tick(ctx, 16*time.Millisecond))
	assert.Equal(t, 13, variable(t, eng, e, "count"), "reload keeps variable values")
}

func TestEngine_SendEvent(t *testing.T) {
	ctx := context.Background()
	eng := weft.New()
	defer eng.Close()

	def, _, err := eng.Ensure(ctx, "listener", listener())
	require.NoError(t, err)
	a := eng.Spawn(def)
	b := eng.Spawn(def)

	require.NoError(t, eng.SendEvent(ctx, "hit", b, value.FromInt(5)))
	assert.Equal(t, 0, variable(t, eng, b, "last"))

	frames, err := eng.Run(ctx, runner.WithMaxFrames(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), frames)
	assert.Equal(t, 0, variable(t, eng, a, "last"))
	assert.Equal(t, 5, variable(t, eng, b, "last"))
}

func TestEngine_Metrics(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	eng := weft.New(weft.WithMetrics(metrics), weft.WithTracing(true))
	defer eng.Close()

	def, _, err := eng.Ensure(ctx, "ticking", ticking(1))
	require.NoError(t, err)
	b := dsl.New("broken")
	b.Add("x", "NoSuchNode")
	_, _, err = eng.Ensure(ctx, "broken", b.MustBuild())
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Compilations.WithLabelValues("ticking", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Compilations.WithLabelValues("broken", "error")))

	eng.Spawn(def)
	require.NoError(t, eng.Tick(ctx, time.Millisecond))
	assert.Positive(t, testutil.ToFloat64(metrics.NodeExecutions.WithLabelValues("ticking", "SetVariable", "done")))
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	eng := weft.New()
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := eng.Run(ctx, runner.WithRate(100))
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
	assert.NoError(t, err)
}
