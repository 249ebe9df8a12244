package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// alert engine.
type Metrics struct {
	ObservationsConsumed prometheus.Counter
	ResultsProduced      prometheus.Counter
	AlertEvents          *prometheus.CounterVec // labels: kind={raised,escalated,cleared}
	EntryErrors          *prometheus.CounterVec // labels: reason={invalid_input,stale_observation,storage_unavailable,unknown_transition,cancelled}
	EngineRunning        prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Profile lookups.
	ProfileCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ObservationsConsumed,
		m.ResultsProduced,
		m.AlertEvents,
		m.EntryErrors,
		m.EngineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ProfileCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heatshield",
			Name:      "observations_consumed_total",
			Help:      "Total weather observations read from the source topic.",
		}),
		ResultsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heatshield",
			Name:      "results_produced_total",
			Help:      "Total heat index results computed and persisted.",
		}),
		AlertEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heatshield",
			Name:      "alert_events_total",
			Help:      "Alert events emitted by the state machine, by kind.",
		}, []string{"kind"}),
		EntryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heatshield",
			Name:      "entry_errors_total",
			Help:      "Per-entry processing failures by reason.",
		}, []string{"reason"}),
		EngineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "heatshield",
			Name:      "engine_running",
			Help:      "1 when the engine loop is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heatshield",
			Name:      "batch_size",
			Help:      "Number of observations per batch extracted from the source.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heatshield",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-compute-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ProfileCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heatshield",
			Name:      "profile_cache_total",
			Help:      "Profile lookups served from the in-memory cache, by result.",
		}, []string{"result"}),
	}
}
