// Package metrics exposes prometheus instrumentation for qualification runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/iwvelando/loan-qualifier/internal/qualifier"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes.
const (
	OutcomeQualified = "qualified"
	OutcomeNone      = "none"
	OutcomeInvalid   = "invalid"
	OutcomeCached    = "cached"
)

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry    *prometheus.Registry
	Runs        *prometheus.CounterVec
	StageOffers *prometheus.HistogramVec
	Duration    prometheus.Histogram
	RateSheet   prometheus.Gauge
}

// New registers the qualifier collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_qualifier_runs_total",
				Help: "Total number of qualification runs by outcome",
			},
			[]string{"outcome"},
		),
		StageOffers: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_qualifier_stage_offers",
				Help:    "Offers surviving each filter stage",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"stage"},
		),
		Duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name: "loan_qualifier_run_duration_seconds",
				Help: "Duration of qualification runs in seconds",
			},
		),
		RateSheet: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "loan_qualifier_rate_sheet_offers",
				Help: "Number of offers on the loaded rate sheet",
			},
		),
	}
}

// ObserveResult records a completed qualification run.
func (m *Metrics) ObserveResult(result qualifier.Result, elapsed time.Duration) {
	outcome := OutcomeQualified
	if len(result.Offers) == 0 {
		outcome = OutcomeNone
	}
	m.Runs.WithLabelValues(outcome).Inc()
	for _, stage := range result.Stages {
		m.StageOffers.WithLabelValues(stage.Name).Observe(float64(stage.Out))
	}
	m.Duration.Observe(elapsed.Seconds())
}

// ObserveOutcome counts a run that did not go through the filters.
func (m *Metrics) ObserveOutcome(outcome string) {
	m.Runs.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
