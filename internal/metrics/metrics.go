// Package metrics exports research run telemetry to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shpitdev/entity-research/internal/research"
)

// Metrics implements research.Observer.
type Metrics struct {
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	nodeDuration  *prometheus.HistogramVec
	nodeFailures  *prometheus.CounterVec
	searches      *prometheus.CounterVec
	searchResults prometheus.Histogram
	rewrites      prometheus.Counter

	registry *prometheus.Registry
}

var _ research.Observer = (*Metrics)(nil)

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "research_runs_total",
				Help: "Total number of research runs by entity type and outcome",
			},
			[]string{"entity_type", "outcome"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "research_run_duration_seconds",
				Help:    "Duration of research runs",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"entity_type"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "research_node_duration_seconds",
				Help:    "Duration of workflow nodes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		nodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "research_node_failures_total",
				Help: "Total number of fatal node failures",
			},
			[]string{"node"},
		),
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "research_search_fallbacks_total",
				Help: "Search calls by which step of the fallback chain produced documents",
			},
			[]string{"outcome"},
		),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "research_search_documents",
			Help:    "Documents returned per search call",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		rewrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "research_rewrites_total",
			Help: "Total number of query rewrites",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.runs,
		m.runDuration,
		m.nodeDuration,
		m.nodeFailures,
		m.searches,
		m.searchResults,
		m.rewrites,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) NodeFinished(state research.State, elapsed time.Duration, err error) {
	m.nodeDuration.WithLabelValues(state.String()).Observe(elapsed.Seconds())
	if err != nil {
		m.nodeFailures.WithLabelValues(state.String()).Inc()
		return
	}
	if state == research.StateRewrite {
		m.rewrites.Inc()
	}
}

func (m *Metrics) SearchFinished(outcome research.SearchOutcome, documents int) {
	m.searches.WithLabelValues(string(outcome)).Inc()
	m.searchResults.Observe(float64(documents))
}

func (m *Metrics) RunFinished(entityType research.EntityType, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(string(entityType), outcome).Inc()
	m.runDuration.WithLabelValues(string(entityType)).Observe(elapsed.Seconds())
}
