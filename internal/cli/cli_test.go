package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/weft/internal/config"
	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/internal/testutils"
	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterYAML = `
variables:
  - name: count
    type: int
    default: 0
nodes:
  - id: update
    type: OnUpdate
  - id: get
    type: GetVariable
    options: {variable: count}
  - id: add
    type: Add
    ports:
      - {name: B, default: 1}
  - id: set
    type: SetVariable
    options: {variable: count}
connections:
  - {from: update.Out, to: set.Enter}
  - {from: get.Value, to: add.A}
  - {from: add.Result, to: set.Value}
`

func newEngine(t *testing.T, cfg config.Config) *Engine {
	t.Helper()
	eng, err := NewEngine(cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, eng.Close()) })
	return eng
}

func TestNewEngine_Backends(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	backends := map[string]config.Store{
		"memory": {Backend: config.BackendMemory},
		"file":   {Backend: config.BackendFile, Path: filepath.Join(dir, "defs")},
		"sqlite": {Backend: config.BackendSQLite, DSN: filepath.Join(dir, "weft.db")},
		"redis":  {Backend: config.BackendRedis, RedisAddr: mr.Addr(), Prefix: "cli:"},
	}
	for name, store := range backends {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store = store
			eng := newEngine(t, cfg)

			path := testutils.WriteGraph(t, "counter.yaml", counterYAML)
			g, err := authoring.LoadFile(path)
			require.NoError(t, err)

			ctx := context.Background()
			_, changed, err := eng.Ensure(ctx, "counter", g)
			require.NoError(t, err)
			assert.True(t, changed)
			_, changed, err = eng.Ensure(ctx, "counter", g)
			require.NoError(t, err)
			assert.False(t, changed)

			keys, err := eng.Store().List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"counter"}, keys)
		})
	}

	_, err := NewEngine(config.Config{Store: config.Store{Backend: "tape"}}, logging.NewNop(), nil)
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestLoadDefinition(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, config.Default())

	src := testutils.WriteGraph(t, "counter.yaml", counterYAML)
	def, err := LoadDefinition(ctx, eng, src)
	require.NoError(t, err)
	assert.Equal(t, "counter", def.Name)

	data, err := domain.MarshalDefinition(def)
	require.NoError(t, err)
	compiled := testutils.WriteGraph(t, "counter.json", string(data))
	loaded, err := LoadDefinition(ctx, eng, compiled)
	require.NoError(t, err)
	assert.Equal(t, def.Hash, loaded.Hash)

	corrupt := testutils.WriteGraph(t, "corrupt.json", strings.Replace(string(data), domain.FormatHash(def.Hash), "0000000000000001", 1))
	_, err = LoadDefinition(ctx, eng, corrupt)
	assert.Error(t, err)

	broken := testutils.WriteGraph(t, "broken.yaml", "nodes:\n  - {id: x, type: NoSuchNode}\n")
	_, err = LoadDefinition(ctx, eng, broken)
	assert.True(t, IsInvalidGraph(err))
}

func TestGraphKey(t *testing.T) {
	assert.Equal(t, "counter", GraphKey("graphs/counter.yaml"))
	assert.Equal(t, "a.b", GraphKey("a.b.hcl"))
}

func counter(step int) *authoring.Graph {
	b := dsl.New("counter")
	b.Variable("count", "int", 0)
	b.Add("update", "OnUpdate").Then("Out", "set.Enter")
	b.Add("get", "GetVariable").Option("variable", "count")
	b.Add("add", "Add").Default("B", step)
	b.Add("set", "SetVariable").Option("variable", "count")
	b.Connect("get.Value", "add.A")
	b.Connect("add.Result", "set.Value")
	return b.MustBuild()
}

func TestWatchAndReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng := newEngine(t, config.Default())

	src, err := memory.NewSource(counter(1))
	require.NoError(t, err)
	v1, _, err := eng.Ensure(ctx, "counter", counter(1))
	require.NoError(t, err)
	e := eng.Spawn(v1)

	require.NoError(t, WatchAndReload(ctx, eng, src, logging.NewNop()))
	require.NoError(t, src.Put(counter(5)))

	var current *domain.GraphDefinition
	require.Eventually(t, func() bool {
		if err := eng.Tick(ctx, time.Millisecond); err != nil {
			return false
		}
		inst, ok := eng.Host().Instance(e)
		if !ok {
			return false
		}
		current = inst.Definition()
		return current.Hash != v1.Hash
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := eng.Load(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, stored.Hash, current.Hash)
}

func TestDescribe(t *testing.T) {
	eng := newEngine(t, config.Default())
	def, err := LoadDefinition(context.Background(), eng, testutils.WriteGraph(t, "counter.yaml", counterYAML))
	require.NoError(t, err)

	d := Describe(def)
	assert.Equal(t, "counter", d.Name)
	assert.Len(t, d.Hash, 16)
	require.Len(t, d.Nodes, 5, "the unconnected add.B default becomes a literal node")
	assert.Equal(t, "update", d.Nodes[0].Label)
	assert.Equal(t, "OnUpdate", d.Nodes[0].Type)
	assert.Equal(t, "add.B", d.Nodes[4].Label)
	assert.Equal(t, "Constant", d.Nodes[4].Type)
	require.Len(t, d.Variables, 1)
	assert.Equal(t, "count", d.Variables[0].Name)
	assert.Equal(t, "graph", d.Variables[0].Kind)

	var sawTarget bool
	for _, p := range d.Ports {
		if p.Node == "update" && p.Name == "Out" {
			assert.Equal(t, "trigger output", p.Kind)
			assert.NotZero(t, p.Target)
			sawTarget = true
		}
	}
	assert.True(t, sawTarget)
}
