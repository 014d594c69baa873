package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// solveMetrics bundles the Prometheus metrics of the solve endpoint.
type solveMetrics struct {
	gatherer prometheus.Gatherer

	Solves      *prometheus.CounterVec
	Duration    prometheus.Histogram
	Diagnostics *prometheus.CounterVec
	Rows        prometheus.Histogram
}

// newSolveMetrics registers the metrics against reg, defaulting to the global
// registry when nil.
func newSolveMetrics(reg prometheus.Registerer) (*solveMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &solveMetrics{
		gatherer: gatherer,
		Solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stormdag_solves_total",
			Help: "Total number of network solves, labeled by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stormdag_solve_duration_seconds",
			Help:    "Time spent building, solving and assembling a network.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stormdag_diagnostics_total",
			Help: "Diagnostics raised while solving, labeled by kind.",
		}, []string{"kind"}),
		Rows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stormdag_result_rows",
			Help:    "Rows in assembled result tables.",
			Buckets: prometheus.ExponentialBuckets(4, 4, 8),
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"stormdag_solves_total":           m.Solves,
		"stormdag_solve_duration_seconds": m.Duration,
		"stormdag_diagnostics_total":      m.Diagnostics,
		"stormdag_result_rows":            m.Rows,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}
	return m, nil
}

// Handler exposes the /metrics handler.
func (m *solveMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
