package observability

import (
	"context"
	"time"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors.
type Metrics struct {
	NodeExecutions *prometheus.CounterVec
	NodeErrors     *prometheus.CounterVec
	FramesAborted  *prometheus.CounterVec
	FrameNodes     *prometheus.HistogramVec
	ActiveLoops    *prometheus.GaugeVec
	Compilations   *prometheus.CounterVec
	CompileSeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weft_node_executions_total",
			Help: "Node activations by graph, node type and result.",
		}, []string{"graph", "node_type", "result"}),
		NodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weft_node_errors_total",
			Help: "Node failures recovered by the executor.",
		}, []string{"graph", "node_type"}),
		FramesAborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weft_frames_aborted_total",
			Help: "Frames stopped by the per-frame node budget.",
		}, []string{"graph"}),
		FrameNodes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weft_frame_nodes",
			Help:    "Nodes executed per instance per frame.",
			Buckets: []float64{0, 1, 4, 16, 64, 256, 1024},
		}, []string{"graph"}),
		ActiveLoops: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weft_active_loops",
			Help: "Loops currently running.",
		}, []string{"graph"}),
		Compilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weft_compilations_total",
			Help: "Graph compilations by outcome (ok, error).",
		}, []string{"graph", "outcome"}),
		CompileSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weft_compile_duration_seconds",
			Help:    "Time spent compiling a graph.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"graph"}),
	}
	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors lists every collector.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.NodeExecutions, m.NodeErrors, m.FramesAborted, m.FrameNodes,
		m.ActiveLoops, m.Compilations, m.CompileSeconds,
	}
}

// Hooks returns lifecycle hooks feeding the collectors.
// Node executions are only reported by instances with tracing enabled.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeExecute: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeExecutions.WithLabelValues(e.Graph, e.NodeType, e.Result.String()).Inc()
		},
		OnNodeError: func(_ context.Context, e *domain.NodeEvent, _ error) {
			m.NodeErrors.WithLabelValues(e.Graph, e.NodeType).Inc()
		},
		OnFrameAborted: func(_ context.Context, e *domain.FrameEvent) {
			m.FramesAborted.WithLabelValues(e.Graph).Inc()
		},
		OnFrameEnd: func(_ context.Context, e *domain.FrameEvent) {
			m.FrameNodes.WithLabelValues(e.Graph).Observe(float64(e.Executed))
		},
		OnLoopBegin: func(_ context.Context, e *domain.LoopEvent) {
			m.ActiveLoops.WithLabelValues(e.Graph).Inc()
		},
		OnLoopEnd: func(_ context.Context, e *domain.LoopEvent) {
			m.ActiveLoops.WithLabelValues(e.Graph).Dec()
		},
	}
}

// ObserveCompile records one compilation.
func (m *Metrics) ObserveCompile(graph string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Compilations.WithLabelValues(graph, outcome).Inc()
	m.CompileSeconds.WithLabelValues(graph).Observe(took.Seconds())
}
