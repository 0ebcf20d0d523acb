// Package xmetrics wraps prometheus/client_golang with the small surface
// graphd's processors and coordinators need: two counters and a histogram per
// RPC processor (§4.5: "call count, error count, latency histogram") plus
// a registry that a server can mount at /metrics.
package xmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns every metric graphd exports.
type Registry struct {
	reg *prometheus.Registry
}

// NewRegistry creates an empty Registry seeded with the default Go runtime
// collectors, mirroring the teacher's metrics/prometheus.go setup.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(prometheus.NewGoCollector())
	r.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return &Registry{reg: r}
}

// Handler returns an http.Handler suitable for mounting at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ProcessorMetrics is the per-RPC-processor metric triple required by §4.5.
type ProcessorMetrics struct {
	calls    prometheus.Counter
	errors   prometheus.Counter
	latency  prometheus.Histogram
}

// NewProcessorMetrics registers (or reuses, if already registered) the
// metric triple for a named RPC processor such as "AddVertices" or
// "GetNeighbors".
func (r *Registry) NewProcessorMetrics(processor string) *ProcessorMetrics {
	pm := &ProcessorMetrics{
		calls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graphd",
			Subsystem: "storage",
			Name:      "processor_calls_total",
			ConstLabels: prometheus.Labels{
				"processor": processor,
			},
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graphd",
			Subsystem: "storage",
			Name:      "processor_errors_total",
			ConstLabels: prometheus.Labels{
				"processor": processor,
			},
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "graphd",
			Subsystem: "storage",
			Name:      "processor_latency_seconds",
			Buckets:   prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{
				"processor": processor,
			},
		}),
	}
	// Registration failures (duplicate processor name within a process)
	// are not fatal: the caller gets a metrics object that still tracks
	// counts locally even if double registration was attempted.
	_ = r.reg.Register(pm.calls)
	_ = r.reg.Register(pm.errors)
	_ = r.reg.Register(pm.latency)
	return pm
}

// Call records one invocation. durationSeconds is the wall-clock time the
// processor spent; ok is false if the call returned an error.
func (p *ProcessorMetrics) Call(durationSeconds float64, ok bool) {
	p.calls.Inc()
	if !ok {
		p.errors.Inc()
	}
	p.latency.Observe(durationSeconds)
}
