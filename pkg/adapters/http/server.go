// Package http exposes compiled graphs and the event bus of a running host
// over a small chi router.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/internal/presentation/graph"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
	"github.com/aretw0/weft/pkg/value"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBody caps request bodies (graphs and event payloads).
const maxBody = 4 << 20

// Server serves the HTTP API. Store is required; the other collaborators
// enable their routes when set.
type Server struct {
	Store    ports.DefinitionStore
	Compiler ports.GraphCompiler
	Events   ports.EventSink
	Watcher  ports.Watchable
	Gatherer prometheus.Gatherer
	Version  string
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithCompiler enables PUT /graphs/{key}.
func WithCompiler(c ports.GraphCompiler) Option {
	return func(s *Server) { s.Compiler = c }
}

// WithEventSink enables POST /events/{hook}.
func WithEventSink(sink ports.EventSink) Option {
	return func(s *Server) { s.Events = sink }
}

// WithWatcher enables GET /watch.
func WithWatcher(w ports.Watchable) Option {
	return func(s *Server) { s.Watcher = w }
}

// WithGatherer enables GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.Gatherer = g }
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.Version = v }
}

// WithLogger configures the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.Logger = logger }
}

// NewHandler creates the HTTP handler serving store.
func NewHandler(store ports.DefinitionStore, opts ...Option) http.Handler {
	s := &Server{
		Store:   store,
		Version: "dev",
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s.Routes()
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Route("/graphs", func(r chi.Router) {
		r.Get("/", s.ListGraphs)
		r.Get("/{key}", s.GetGraph)
		r.Get("/{key}/mermaid", s.GetMermaid)
		if s.Compiler != nil {
			r.Put("/{key}", s.PutGraph)
		}
	})
	if s.Events != nil {
		r.Post("/events/{hook}", s.PostEvent)
	}
	if s.Watcher != nil {
		r.Get("/watch", s.Watch)
	}
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GraphSummary is one row of GET /graphs.
type GraphSummary struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	Nodes     int    `json:"nodes"`
	Variables int    `json:"variables"`
}

func summarize(key string, def *domain.GraphDefinition) GraphSummary {
	return GraphSummary{
		Key:       key,
		Name:      def.Name,
		Hash:      domain.FormatHash(def.Hash),
		Nodes:     def.NodeCount(),
		Variables: len(def.Variables),
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "weft-http",
		"version": s.Version,
	})
}

// ListGraphs handles GET /graphs.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	keys, err := s.Store.List(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "list failed", err)
		return
	}
	out := make([]GraphSummary, 0, len(keys))
	for _, key := range keys {
		def, err := s.Store.Load(r.Context(), key)
		if errors.Is(err, domain.ErrDefinitionNotFound) {
			continue
		}
		if err != nil {
			s.fail(w, http.StatusInternalServerError, "load failed", err)
			return
		}
		out = append(out, summarize(key, def))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetGraph handles GET /graphs/{key}, answering with the persisted definition.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	def, ok := s.load(w, r)
	if !ok {
		return
	}
	data, err := domain.MarshalDefinition(def)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "encode failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", strconv.Quote(domain.FormatHash(def.Hash)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetMermaid handles GET /graphs/{key}/mermaid.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	def, ok := s.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(def, nil))
}

// PutGraph handles PUT /graphs/{key}. The body is an authoring graph in YAML
// (the default), JSON or HCL, chosen by Content-Type.
func (s *Server) PutGraph(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.fail(w, http.StatusBadRequest, "read failed", err)
		return
	}
	g, err := authoring.Decode(key+extension(r.Header.Get("Content-Type")), body)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "invalid graph", err)
		return
	}

	def, changed, err := s.Compiler.Ensure(r.Context(), key, g)
	if errors.Is(err, domain.ErrInvalidGraph) {
		s.fail(w, http.StatusUnprocessableEntity, "compile failed", err)
		return
	}
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "compile failed", err)
		return
	}
	status := http.StatusOK
	if changed {
		status = http.StatusCreated
	}
	s.Logger.Info("graph stored", "key", key, "hash", domain.FormatHash(def.Hash), "changed", changed)
	s.writeJSON(w, status, summarize(key, def))
}

func extension(contentType string) string {
	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "application/json":
		return ".json"
	case "application/hcl", "text/hcl":
		return ".hcl"
	}
	return ".yaml"
}

// PostEvent handles POST /events/{hook}?entity=N. The optional body is the
// JSON payload.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	hook := chi.URLParam(r, "hook")
	target := domain.NoEntity
	if e := r.URL.Query().Get("entity"); e != "" {
		n, err := strconv.ParseUint(e, 10, 64)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "invalid entity", err)
			return
		}
		target = domain.Entity(n)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.fail(w, http.StatusBadRequest, "read failed", err)
		return
	}
	payload, err := value.FromJSON(body)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if err := s.Events.SendEvent(r.Context(), hook, target, payload); err != nil {
		s.fail(w, http.StatusInternalServerError, "event failed", err)
		return
	}
	s.Logger.Debug("event accepted", "hook", hook, "entity", uint64(target))
	s.writeJSON(w, http.StatusAccepted, map[string]any{"event": hook, "entity": uint64(target)})
}

// Watch handles GET /watch, streaming the name of every changed graph as a
// server-sent event.
func (s *Server) Watch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	changes, err := s.Watcher.Watch(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "watch failed", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case name, ok := <-changes:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: changed\ndata: %s\n\n", name)
			flusher.Flush()
		}
	}
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (*domain.GraphDefinition, bool) {
	key := chi.URLParam(r, "key")
	def, err := s.Store.Load(r.Context(), key)
	if errors.Is(err, domain.ErrDefinitionNotFound) {
		s.fail(w, http.StatusNotFound, "not found", err)
		return nil, false
	}
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "load failed", err)
		return nil, false
	}
	return def, true
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string, err error) {
	if status >= http.StatusInternalServerError {
		s.Logger.Error(msg, "err", err)
	} else {
		s.Logger.Debug(msg, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s: %v", msg, err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
