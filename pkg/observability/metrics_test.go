package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/weft/internal/compiler"
	"github.com/aretw0/weft/internal/runtime"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
	"github.com/aretw0/weft/pkg/nodes"
	"github.com/aretw0/weft/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, b *dsl.Builder) *domain.GraphDefinition {
	t.Helper()
	res, err := compiler.Compile(context.Background(), b.MustBuild(), compiler.WithRegistry(nodes.NewRegistry()))
	require.NoError(t, err)
	require.NoError(t, res.Err())
	return res.Definition
}

func TestHooksCountExecutions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	b := dsl.New("loop")
	b.Add("start", "OnStart").Then("Out", "loop.Enter")
	b.Add("loop", "ForLoop").Default("Last", 3).Then("Body", "log.Enter")
	b.Add("log", "Log").Option("message", "tick")
	def := compile(t, b)

	inst := runtime.NewGraphInstance(1, def, runtime.WithLifecycleHooks(m.Hooks()))
	inst.Start()

	assert.Equal(t, float64(3), testutil.ToFloat64(m.NodeExecutions.WithLabelValues("loop", "Log", "done")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NodeExecutions.WithLabelValues("loop", "OnStart", "done")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ActiveLoops.WithLabelValues("loop")), "begin and end must balance")
	assert.Equal(t, 1, testutil.CollectAndCount(m.FrameNodes))

	n, err := testutil.GatherAndCount(reg, "weft_node_executions_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 3)
}

func TestHooksCountAbortedFrames(t *testing.T) {
	m := observability.NewMetrics(nil)

	b := dsl.New("spin")
	b.Add("start", "OnStart").Then("Out", "loop.Enter")
	b.Add("loop", "ForLoop").Default("Last", 1000).Then("Body", "log.Enter")
	b.Add("log", "Log")
	def := compile(t, b)

	inst := runtime.NewGraphInstance(1, def,
		runtime.WithLifecycleHooks(m.Hooks()), runtime.WithMaxNodesPerFrame(16))
	defer inst.Destroy()
	inst.Start()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.FramesAborted.WithLabelValues("spin")))
}

func TestObserveCompile(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	m.ObserveCompile("g", 2*time.Millisecond, nil)
	m.ObserveCompile("g", time.Millisecond, errors.New("bad"))
	m.ObserveCompile("g", time.Millisecond, nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Compilations.WithLabelValues("g", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Compilations.WithLabelValues("g", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CompileSeconds))
}

func TestNewMetricsRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)
	assert.Panics(t, func() { observability.NewMetrics(reg) })
}
