// Package metrics holds the Prometheus collectors exported by the dev
// server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "siteplanner"

// Run outcomes used as the status label.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
	StatusFailed  = "failed"
)

// Metrics is a private registry with the run collectors. Use New; the zero
// value is not usable.
type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	generations   prometheus.Counter
	generatedArea prometheus.Counter
	coverage      prometheus.Gauge
}

// New registers the collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Generation runs by outcome.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of successful generation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Transplanted perceptions across all runs.",
		}),
		generatedArea: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generated_area_square_metres_total",
			Help:      "Site area covered by generations across all runs.",
		}),
		coverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_coverage_ratio",
			Help:      "Generated over site area for the most recent run.",
		}),
	}
	m.registry.MustRegister(
		m.runs, m.runDuration, m.generations, m.generatedArea, m.coverage,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)
	return m
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(elapsed time.Duration, generations int, area, coverage float64) {
	m.runs.WithLabelValues(StatusOK).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	m.generations.Add(float64(generations))
	m.generatedArea.Add(area)
	m.coverage.Set(coverage)
}

// RunFailed records a run that did not complete.
func (m *Metrics) RunFailed(status string) {
	m.runs.WithLabelValues(status).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
