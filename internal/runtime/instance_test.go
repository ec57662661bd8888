package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/weft/internal/runtime"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/nodes"
	"github.com/aretw0/weft/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logNode(id, msg string) *authoring.Node {
	return node(id, "Log", map[string]any{"message": msg})
}

func TestSequenceRunsOutputsInOrder(t *testing.T) {
	def := compile(t, &authoring.Graph{
		Name: "sequence",
		Nodes: []*authoring.Node{
			node("start", "OnStart", nil),
			node("seq", "Sequence", map[string]any{"count": 3}),
			logNode("one", "1"),
			logNode("two", "2"),
			logNode("three", "3"),
		},
		Connections: []authoring.Connection{
			conn("start.Out", "seq.Enter"),
			conn("seq.Out[0]", "one.Enter"),
			conn("seq.Out[1]", "two.Enter"),
			conn("seq.Out[2]", "three.Enter"),
		},
	})

	var logs logCapture
	inst := runtime.NewGraphInstance(1, def, runtime.WithLogger(logs.logger()))
	inst.Start()

	assert.Equal(t, []string{"1", "2", "3"}, logs.messages(t))
	assert.Empty(t, inst.Errors())
}

func TestForEachAccumulatesIntoVariable(t *testing.T) {
	def := compile(t, &authoring.Graph{
		Name:      "sum",
		Variables: []authoring.VariableDecl{{Name: "sum", Type: "int"}},
		Nodes: []*authoring.Node{
			node("start", "OnStart", nil),
			node("list", "MakeList", nil,
				subDefault("Items", 0, 1),
				subDefault("Items", 1, 2),
				subDefault("Items", 2, 3)),
			node("each", "ForEach", nil),
			node("get", "GetVariable", map[string]any{"variable": "sum"}),
			node("add", "Add", nil),
			node("set", "SetVariable", map[string]any{"variable": "sum"}),
			logNode("log", "iter"),
		},
		Connections: []authoring.Connection{
			conn("start.Out", "each.Enter"),
			conn("list.List", "each.Items"),
			conn("each.Body", "set.Enter"),
			conn("get.Value", "add.A"),
			conn("each.Item", "add.B"),
			conn("add.Result", "set.Value"),
			conn("set.Exit", "log.Enter"),
			conn("each.Index", "log.Value"),
		},
	})

	var begun, ended int
	var logs logCapture
	inst := runtime.NewGraphInstance(1, def,
		runtime.WithLogger(logs.logger()),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnLoopBegin: func(context.Context, *domain.LoopEvent) { begun++ },
			OnLoopEnd:   func(context.Context, *domain.LoopEvent) { ended++ },
		}))
	active := runtime.ActiveLoops()
	inst.Start()

	assert.Equal(t, []string{"0", "1", "2"}, logs.values(t))
	sum, ok := inst.Variable("sum")
	require.True(t, ok)
	assert.Equal(t, 6, sum.Int())
	assert.Equal(t, 1, begun)
	assert.Equal(t, 1, ended)
	assert.Equal(t, active, runtime.ActiveLoops())
}

func TestBreakStopsLoop(t *testing.T) {
	def := compile(t, &authoring.Graph{
		Name: "break",
		Nodes: []*authoring.Node{
			node("start", "OnStart", nil),
			node("loop", "ForLoop", nil, withDefault("First", 0), withDefault("Last", 10)),
			node("cmp", "Compare", map[string]any{"op": "equal"}, withDefault("B", 2)),
			node("branch", "Branch", nil),
			node("stop", "Break", nil),
			logNode("body", "body"),
			logNode("done", "done"),
		},
		Connections: []authoring.Connection{
			conn("start.Out", "loop.Enter"),
			conn("loop.Body", "branch.Enter"),
			conn("loop.Index", "cmp.A"),
			conn("cmp.Result", "branch.Condition"),
			conn("branch.True", "stop.Enter"),
			conn("branch.False", "body.Enter"),
			conn("loop.Index", "body.Value"),
			conn("loop.Completed", "done.Enter"),
		},
	})

	var logs logCapture
	inst := runtime.NewGraphInstance(1, def, runtime.WithLogger(logs.logger()))
	inst.Start()

	assert.Equal(t, []string{"0", "1"}, logs.values(t))
	assert.Equal(t, []string{"body", "body", "done"}, logs.messages(t))
}

func waitForFlowGraph(reset bool) *authoring.Graph {
	return &authoring.Graph{
		Name: "join",
		Nodes: []*authoring.Node{
			node("a", "OnEvent", map[string]any{"event": "a"}),
			node("b", "OnEvent", map[string]any{"event": "b"}),
			node("wait", "WaitForFlow", map[string]any{"count": 2, "reset_on_exit": reset}),
			logNode("log", "joined"),
		},
		Connections: []authoring.Connection{
			conn("a.Out", "wait.Inputs[0]"),
			conn("b.Out", "wait.Inputs[1]"),
			conn("wait.Exit", "log.Enter"),
		},
	}
}

func TestWaitForFlow(t *testing.T) {
	cases := []struct {
		name   string
		reset  bool
		events []string
		want   int
	}{
		{"both inputs", false, []string{"a", "b"}, 1},
		{"same input twice", false, []string{"a", "a"}, 0},
		{"same input twice with reset", true, []string{"a", "a"}, 0},
		{"twice with reset", true, []string{"a", "b", "a", "b"}, 2},
		{"twice without reset", false, []string{"a", "b", "a", "b"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := compile(t, waitForFlowGraph(tc.reset))
			var logs logCapture
			inst := runtime.NewGraphInstance(1, def, runtime.WithLogger(logs.logger()))
			inst.Start()
			for _, ev := range tc.events {
				require.Equal(t, 1, inst.TriggerEvent(ev, value.Value{}))
			}
			assert.Len(t, logs.messages(t), tc.want)
		})
	}
}

func TestSetVariableThenRead(t *testing.T) {
	def := compile(t, &authoring.Graph{
		Name:      "setget",
		Variables: []authoring.VariableDecl{{Name: "x", Type: "int"}},
		Nodes: []*authoring.Node{
			node("start", "OnStart", nil),
			node("set", "SetVariable", map[string]any{"variable": "x"}, withDefault("Value", 42)),
			node("get", "GetVariable", map[string]any{"variable": "x"}),
			logNode("log", "x"),
		},
		Connections: []authoring.Connection{
			conn("start.Out", "set.Enter"),
			conn("set.Exit", "log.Enter"),
			conn("get.Value", "log.Value"),
		},
	})

	var logs logCapture
	inst := runtime.NewGraphInstance(1, def, runtime.WithLogger(logs.logger()))
	inst.Start()

	assert.Equal(t, []string{"42"}, logs.values(t))
	x, _ := inst.Variable("x")
	assert.Equal(t, 42, x.Int())
}

func TestNodeBudgetAbortsFrame(t *testing.T) {
	def := compile(t, &authoring.Graph{
		Name: "spin",
		Nodes: []*authoring.Node{
			node("start", "OnStart", nil),
			logNode("ping", "ping"),
			logNode("pong", "pong"),
		},
		Connections: []authoring.Connection{
			conn("start.Out", "ping.Enter"),
			conn("ping.Exit", "pong.Enter"),
			conn("pong.Exit", "ping.Enter"),
		},
	})

	aborted := 0
	var logs logCapture
	inst := runtime.NewGraphInstance(1, def,
		runtime.WithLogger(logs.logger()),
		runtime.WithMaxNodesPerFrame(10),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnFrameAborted: func(_ context.Context, ev *domain.FrameEvent) {
				aborted++
				assert.Equal(t, 10, ev.Executed)
			},
		}))
	inst.Start()

	assert.Equal(t, 1, aborted)
	assert.Len(t, logs.messages(t), 9)
	assert.True(t, inst.Pending(), "the cut-off chain resumes next frame")

	inst.Advance(time.Millisecond)
	inst.Resume(runtime.PhaseStandard)
	inst.FinishFrame()
	assert.Equal(t, 2, aborted)
	msgs := logs.messages(t)
	require.Len(t, msgs, 19)
	assert.Equal(t, "pong", msgs[9], "resumes where the previous frame stopped")
}

func TestNodeBudgetCarriesLoopAcrossFrames(t *testing.T) {
	def := compile(t, &authoring.Graph{
		Name: "long-loop",
		Nodes: []*authoring.Node{
			node("start", "OnStart", nil),
			node("loop", "ForLoop", nil, withDefault("First", 0), withDefault("Last", 50)),
			logNode("body", "body"),
			logNode("done", "done"),
		},
		Connections: []authoring.Connection{
			conn("start.Out", "loop.Enter"),
			conn("loop.Body", "body.Enter"),
			conn("loop.Index", "body.Value"),
			conn("loop.Completed", "done.Enter"),
		},
	})

	aborted := 0
	var logs logCapture
	active := runtime.ActiveLoops()
	inst := runtime.NewGraphInstance(1, def,
		runtime.WithLogger(logs.logger()),
		runtime.WithMaxNodesPerFrame(20),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnFrameAborted: func(context.Context, *domain.FrameEvent) { aborted++ },
		}))
	inst.Start()
	require.True(t, inst.Pending(), "the loop continues next frame")
	assert.Equal(t, active+1, runtime.ActiveLoops())

	for frame := 0; frame < 20 && inst.Pending(); frame++ {
		inst.Advance(time.Millisecond)
		inst.Resume(runtime.PhaseStandard)
		inst.Resume(runtime.PhaseCoroutine)
		inst.Resume(runtime.PhaseEndOfFrame)
		inst.FinishFrame()
	}

	msgs := logs.messages(t)
	require.Len(t, msgs, 51)
	assert.Equal(t, "done", msgs[50])
	values := logs.values(t)
	require.Len(t, values, 50)
	assert.Equal(t, "0", values[0])
	assert.Equal(t, "49", values[49])
	assert.Greater(t, aborted, 1)
	assert.False(t, inst.Pending())
	assert.Equal(t, active, runtime.ActiveLoops(), "loop id released without Destroy")
	inst.Destroy()
	assert.Equal(t, active, runtime.ActiveLoops())
}

func failingGraph() *authoring.Graph {
	return &authoring.Graph{
		Name: "failing",
		Nodes: []*authoring.Node{
			node("start", "OnStart", nil),
			node("seq", "Sequence", map[string]any{"count": 2}),
			node("fail", "Host.Fail", nil),
			logNode("after", "after"),
		},
		Connections: []authoring.Connection{
			conn("start.Out", "seq.Enter"),
			conn("seq.Out[0]", "fail.Enter"),
			conn("seq.Out[1]", "after.Enter"),
		},
	}
}

func TestNodeErrorIsRecorded(t *testing.T) {
	reg := nodes.NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, reg.RegisterFunc("Host.Fail", domain.MemberMethod, func() error { return boom }))
	def := compileWith(t, reg, failingGraph())

	var hooked error
	var logs logCapture
	inst := runtime.NewGraphInstance(1, def,
		runtime.WithLogger(logs.logger()),
		runtime.WithResolver(reg),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnNodeError: func(_ context.Context, _ *domain.NodeEvent, err error) { hooked = err },
		}))
	inst.Start()

	failID, ok := def.NodeByLabel("fail")
	require.True(t, ok)
	errs := inst.Errors()
	require.Contains(t, errs, failID)
	assert.ErrorIs(t, errs[failID], boom)
	var nodeErr *runtime.NodeError
	require.ErrorAs(t, errs[failID], &nodeErr)
	assert.Equal(t, failID, nodeErr.Node)
	assert.Equal(t, uint64(0), nodeErr.Frame)
	assert.ErrorIs(t, hooked, boom)
	assert.Equal(t, []string{"after"}, logs.messages(t))

	inst.ClearErrors()
	assert.Empty(t, inst.Errors())
}

func TestNodePanicPropagatesWithoutTracing(t *testing.T) {
	reg := nodes.NewRegistry()
	require.NoError(t, reg.RegisterFunc("Host.Fail", domain.MemberMethod, func() error { return errors.New("boom") }))
	def := compileWith(t, reg, failingGraph())

	inst := runtime.NewGraphInstance(1, def, runtime.WithResolver(reg), runtime.WithTracing(false))
	assert.Panics(t, inst.Start)
}

func TestMissingResolverFailsMember(t *testing.T) {
	reg := nodes.NewRegistry()
	require.NoError(t, reg.RegisterFunc("Host.Fail", domain.MemberMethod, func() error { return nil }))
	def := compileWith(t, reg, failingGraph())

	inst := runtime.NewGraphInstance(1, def)
	inst.Start()

	failID, _ := def.NodeByLabel("fail")
	assert.ErrorIs(t, inst.Errors()[failID], domain.ErrMemberNotFound)
}

func TestParallelCoroutinesResumeAcrossFrames(t *testing.T) {
	def := compile(t, &authoring.Graph{
		Name: "parallel",
		Nodes: []*authoring.Node{
			node("start", "OnStart", nil),
			node("par", "Parallel", map[string]any{"count": 2}),
			node("wait", "WaitFrames", nil, withDefault("Frames", 2)),
			logNode("waited", "waited"),
			logNode("now", "now"),
		},
		Connections: []authoring.Connection{
			conn("start.Out", "par.Enter"),
			conn("par.Out[0]", "wait.Enter"),
			conn("wait.Out", "waited.Enter"),
			conn("par.Out[1]", "now.Enter"),
		},
	})

	var logs logCapture
	inst := runtime.NewGraphInstance(1, def, runtime.WithLogger(logs.logger()))
	inst.Start()
	assert.Equal(t, []string{"now"}, logs.messages(t))
	assert.True(t, inst.Pending())

	frame := func() {
		inst.Advance(16 * time.Millisecond)
		inst.Resume(runtime.PhaseStandard)
		inst.Resume(runtime.PhaseCoroutine)
		inst.Resume(runtime.PhaseEndOfFrame)
		inst.FinishFrame()
	}
	frame()
	assert.Equal(t, []string{"now"}, logs.messages(t))
	frame()
	assert.Equal(t, []string{"now", "waited"}, logs.messages(t))
	assert.False(t, inst.Pending())
	assert.Equal(t, uint64(2), inst.Time().Frame)
}

func TestEndOfFramePhaseRunsLast(t *testing.T) {
	def := compile(t, &authoring.Graph{
		Name: "eof",
		Nodes: []*authoring.Node{
			node("update", "OnUpdate", nil),
			node("seq", "Sequence", map[string]any{"count": 2}),
			node("eof", "WaitForEndOfFrame", nil),
			logNode("late", "late"),
			logNode("early", "early"),
		},
		Connections: []authoring.Connection{
			conn("update.Out", "seq.Enter"),
			conn("seq.Out[0]", "eof.Enter"),
			conn("eof.Out", "late.Enter"),
			conn("seq.Out[1]", "early.Enter"),
		},
	})

	var logs logCapture
	inst := runtime.NewGraphInstance(1, def, runtime.WithLogger(logs.logger()))
	inst.Start()
	assert.Empty(t, logs.messages(t))

	inst.Advance(time.Millisecond)
	inst.Resume(runtime.PhaseStandard)
	assert.Equal(t, []string{"early"}, logs.messages(t))
	inst.Resume(runtime.PhaseCoroutine)
	inst.Resume(runtime.PhaseEndOfFrame)
	inst.FinishFrame()
	assert.Equal(t, []string{"early", "late"}, logs.messages(t))
}

func TestSubgraphCall(t *testing.T) {
	double := &authoring.Graph{
		Variables: []authoring.VariableDecl{
			{Name: "x", Kind: "input", Type: "int"},
			{Name: "y", Kind: "output", Type: "int"},
		},
		Nodes: []*authoring.Node{
			node("in", "SubgraphInput", nil),
			node("getx", "GetVariable", map[string]any{"variable": "x"}),
			node("mul", "Multiply", nil, withDefault("B", 2)),
			node("sety", "SetVariable", map[string]any{"variable": "y"}),
		},
		Connections: []authoring.Connection{
			conn("in.Out", "sety.Enter"),
			conn("getx.Value", "mul.A"),
			conn("mul.Result", "sety.Value"),
		},
	}
	def := compile(t, &authoring.Graph{
		Name:      "caller",
		Subgraphs: map[string]*authoring.Graph{"double": double},
		Nodes: []*authoring.Node{
			node("start", "OnStart", nil),
			node("call", "SubgraphCall", map[string]any{"graph": "double"}, withDefault("x", 21)),
			logNode("log", "doubled"),
		},
		Connections: []authoring.Connection{
			conn("start.Out", "call.Enter"),
			conn("call.Exit", "log.Enter"),
			conn("call.y", "log.Value"),
		},
	})
	require.Len(t, def.GraphReferences, 1)

	var logs logCapture
	inst := runtime.NewGraphInstance(1, def, runtime.WithLogger(logs.logger()))
	inst.Start()

	assert.Equal(t, []string{"42"}, logs.values(t))
	assert.Empty(t, inst.Errors())
}

func TestOnUpdateSeesDelta(t *testing.T) {
	def := compile(t, &authoring.Graph{
		Name: "delta",
		Nodes: []*authoring.Node{
			node("update", "OnUpdate", nil),
			logNode("log", "tick"),
		},
		Connections: []authoring.Connection{
			conn("update.Out", "log.Enter"),
			conn("update.Delta", "log.Value"),
		},
	})

	var logs logCapture
	inst := runtime.NewGraphInstance(1, def, runtime.WithLogger(logs.logger()))
	inst.Start()
	inst.Advance(500 * time.Millisecond)
	inst.Resume(runtime.PhaseStandard)
	inst.FinishFrame()

	assert.Equal(t, []string{"0.5"}, logs.values(t))
	assert.Equal(t, 500*time.Millisecond, inst.Time().Elapsed)
}

func TestDestroyReleasesValues(t *testing.T) {
	def := compile(t, &authoring.Graph{
		Name:      "release",
		Variables: []authoring.VariableDecl{{Name: "obj", Type: "object"}},
		Nodes:     []*authoring.Node{node("start", "OnStart", nil)},
	})
	inst := runtime.NewGraphInstance(1, def)

	h := value.NewHandle("payload")
	h.Retain()
	freed := false
	h.OnFree(func(any) { freed = true })
	v := value.FromHandle(value.ManagedObject, h)
	require.True(t, inst.SetVariableByName("obj", v))
	h.Release()
	assert.False(t, freed)

	inst.Destroy()
	assert.True(t, freed)
}
