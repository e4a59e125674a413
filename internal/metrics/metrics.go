package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"killfocus/internal/killer"
)

// Metrics records kill invocations. It implements killer.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	invocations  *prometheus.CounterVec
	duration     prometheus.Histogram
	removedTasks prometheus.Counter
	focusEvents  *prometheus.CounterVec
}

// New registers the killfocus collectors on a fresh registry, together with
// the Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(registry)
}

// NewWithRegistry registers the killfocus collectors on registry
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "killfocus_invocations_total",
				Help: "Total number of kill invocations by result and reason",
			},
			[]string{"result", "reason"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "killfocus_invocation_duration_seconds",
				Help:    "Time spent handling a kill invocation",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		removedTasks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "killfocus_removed_tasks_total",
				Help: "Total number of windows closed after a kill",
			},
		),
		focusEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "killfocus_focus_events_total",
				Help: "Total number of focus events recorded by the tracker",
			},
			[]string{"event_type"},
		),
	}

	registry.MustRegister(
		m.invocations,
		m.duration,
		m.removedTasks,
		m.focusEvents,
	)

	return m
}

// ObserveOutcome implements killer.Recorder
func (m *Metrics) ObserveOutcome(o killer.Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}

	result := "skipped"
	if o.Killed {
		result = "killed"
	}
	m.invocations.WithLabelValues(result, o.Reason.String()).Inc()
	m.duration.Observe(elapsed.Seconds())
	m.removedTasks.Add(float64(len(o.RemovedTasks)))
}

// ObserveFocusEvent counts a stored focus transition
func (m *Metrics) ObserveFocusEvent(eventType string) {
	if m == nil {
		return
	}
	m.focusEvents.WithLabelValues(eventType).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
