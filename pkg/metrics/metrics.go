package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetch pipeline.
type Metrics struct {
	Registry        *prometheus.Registry
	StepsTotal      *prometheus.CounterVec
	StepErrorsTotal *prometheus.CounterVec
	StepDuration    prometheus.Histogram
	PagesTotal      prometheus.Counter
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	steps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikistats_fetch_steps_total",
			Help: "Completed fetch steps by step name.",
		},
		[]string{"step"},
	)
	stepErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikistats_fetch_step_errors_total",
			Help: "Failed fetch steps by step name.",
		},
		[]string{"step"},
	)
	stepDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wikistats_fetch_step_duration_seconds",
			Help:    "Wall-clock duration of individual fetch steps.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wikistats_pages_total",
			Help: "Total page records processed by the pipeline.",
		},
	)

	registry.MustRegister(steps, stepErrors, stepDuration, pages)

	return &Metrics{
		Registry:        registry,
		StepsTotal:      steps,
		StepErrorsTotal: stepErrors,
		StepDuration:    stepDuration,
		PagesTotal:      pages,
	}
}

// ObserveStep records one completed step.
func (m *Metrics) ObserveStep(step string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(step).Inc()
	if failed {
		m.StepErrorsTotal.WithLabelValues(step).Inc()
	}
	m.StepDuration.Observe(d.Seconds())
}

// ObservePage records one page record entering the pipeline.
func (m *Metrics) ObservePage() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}
