// Package metrics exposes Prometheus collectors for selection and routine activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "routine_web"

// Recorder owns a private registry so tests can build independent instances.
type Recorder struct {
	registry  *prometheus.Registry
	selection *prometheus.CounterVec
	routines  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	catalog   *prometheus.CounterVec
}

// New registers the application collectors plus the Go and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		selection: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_changes_total",
			Help:      "Selection mutations by action.",
		}, []string{"action"}),
		routines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routines_built_total",
			Help:      "Routine builds by mode and outcome.",
		}, []string{"mode", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "routine_build_seconds",
			Help:      "Routine build latency by mode.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
		catalog: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Catalog load attempts by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		r.selection,
		r.routines,
		r.latency,
		r.catalog,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// SelectionChanged counts one toggle, remove or clear.
func (r *Recorder) SelectionChanged(action string) {
	if r == nil {
		return
	}
	r.selection.WithLabelValues(action).Inc()
}

// RoutineBuilt counts one build and observes its duration.
func (r *Recorder) RoutineBuilt(mode, outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.routines.WithLabelValues(mode, outcome).Inc()
	r.latency.WithLabelValues(mode).Observe(took.Seconds())
}

// CatalogLoaded counts a catalog load attempt.
func (r *Recorder) CatalogLoaded(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.catalog.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
