package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/weft/internal/compiler"
	"github.com/aretw0/weft/pkg/adapters/memory"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/nodes"
	"github.com/aretw0/weft/pkg/ports/tests"
	"github.com/aretw0/weft/pkg/value"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeCompiler compiles straight into a store, the way the engine facade does.
type storeCompiler struct {
	store *memory.Store
}

func (c storeCompiler) Ensure(ctx context.Context, key string, g *authoring.Graph) (*domain.GraphDefinition, bool, error) {
	res, err := compiler.Compile(ctx, g, compiler.WithRegistry(nodes.NewRegistry()))
	if err != nil {
		return nil, false, err
	}
	if err := res.Err(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidGraph, err)
	}
	if h, err := c.store.Hash(ctx, key); err == nil && h == res.Definition.Hash {
		return res.Definition, false, nil
	}
	return res.Definition, true, c.store.Save(ctx, key, res.Definition)
}

type recordedEvent struct {
	hook    string
	target  domain.Entity
	payload value.Value
}

type recordingSink struct {
	events []recordedEvent
}

func (s *recordingSink) SendEvent(_ context.Context, hook string, target domain.Entity, payload value.Value) error {
	s.events = append(s.events, recordedEvent{hook, target, payload})
	return nil
}

type staticWatcher []string

func (w staticWatcher) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, len(w))
	for _, name := range w {
		ch <- name
	}
	close(ch)
	return ch, nil
}

func serve(h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func seeded(t *testing.T) *memory.Store {
	store := memory.NewStore()
	require.NoError(t, store.Save(context.Background(), "counter", tests.Definition(t, "counter", 1)))
	return store
}

func TestHealthAndInfo(t *testing.T) {
	h := NewHandler(memory.NewStore(), WithVersion("1.2.3"))

	w := serve(h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(h, "GET", "/info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"app":"weft-http","version":"1.2.3"}`, w.Body.String())
}

func TestListGraphs(t *testing.T) {
	store := seeded(t)
	h := NewHandler(store)

	w := serve(h, "GET", "/graphs", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out []GraphSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "counter", out[0].Key)
	assert.Equal(t, "counter", out[0].Name)
	assert.Equal(t, 1, out[0].Variables)
	assert.Len(t, out[0].Hash, 16)
}

func TestGetGraph(t *testing.T) {
	store := seeded(t)
	h := NewHandler(store)

	w := serve(h, "GET", "/graphs/counter", "")
	require.Equal(t, http.StatusOK, w.Code)

	def, err := domain.UnmarshalDefinition(w.Body.Bytes())
	require.NoError(t, err)
	stored, _ := store.Load(context.Background(), "counter")
	assert.Equal(t, stored.Hash, def.Hash)
	assert.Equal(t, `"`+domain.FormatHash(def.Hash)+`"`, w.Header().Get("ETag"))

	w = serve(h, "GET", "/graphs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMermaid(t *testing.T) {
	h := NewHandler(seeded(t))

	w := serve(h, "GET", "/graphs/counter/mermaid", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD"))
	assert.Contains(t, w.Body.String(), "var_count")
}

func TestPutGraph(t *testing.T) {
	store := memory.NewStore()
	h := NewHandler(store, WithCompiler(storeCompiler{store}))

	src := `
name: greeter
nodes:
  - id: start
    type: OnStart
  - id: log
    type: Log
    options:
      message: hello
connections:
  - from: start.Out
    to: log.Enter
`
	w := serve(h, "PUT", "/graphs/greeter", src)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sum GraphSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, "greeter", sum.Key)
	assert.Equal(t, 2, sum.Nodes)

	w = serve(h, "PUT", "/graphs/greeter", src)
	assert.Equal(t, http.StatusOK, w.Code, "unchanged graphs are not re-saved")

	w = serve(h, "PUT", "/graphs/broken", `{"name":"broken","nodes":[{"id":"x","type":"NoSuchNode"}]}`, "Content-Type", "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = serve(h, "PUT", "/graphs/garbage", "nodes: [", "Content-Type", "text/yaml")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutGraph_DisabledWithoutCompiler(t *testing.T) {
	w := serve(NewHandler(memory.NewStore()), "PUT", "/graphs/x", "name: x")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestPostEvent(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(memory.NewStore(), WithEventSink(sink))

	w := serve(h, "POST", "/events/hit?entity=3", `{"kind":"float3","value":[1,2,3]}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	w = serve(h, "POST", "/events/ping", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Len(t, sink.events, 2)
	assert.Equal(t, "hit", sink.events[0].hook)
	assert.Equal(t, domain.Entity(3), sink.events[0].target)
	assert.Equal(t, value.Float3, sink.events[0].payload.Kind())
	assert.Equal(t, domain.NoEntity, sink.events[1].target)
	assert.True(t, sink.events[1].payload.IsUnknown())

	w = serve(h, "POST", "/events/hit?entity=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = serve(h, "POST", "/events/hit", "{broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWatch(t *testing.T) {
	h := NewHandler(memory.NewStore(), WithWatcher(staticWatcher{"a", "b"}))

	w := serve(h, "GET", "/watch", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: ping\ndata: connected")
	assert.Contains(t, body, "event: changed\ndata: a\n\n")
	assert.Contains(t, body, "event: changed\ndata: b\n\n")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "weft_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	w := serve(NewHandler(memory.NewStore(), WithGatherer(reg)), "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "weft_test_total 1")

	w = serve(NewHandler(memory.NewStore()), "GET", "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	w := serve(NewHandler(memory.NewStore()), "OPTIONS", "/graphs", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
