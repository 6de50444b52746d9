package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ocean_grid"

// Metrics holds the Prometheus counters, histograms, and gauges for grid
// construction, lookups, and the tagging pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	PipelineRunning  prometheus.Gauge

	ObservationsSkipped *prometheus.CounterVec // labels: reason={out_of_bounds,not_found,invalid,error}

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Grid construction metrics.
	GridBands         prometheus.Counter
	GridBoxesKept     prometheus.Counter
	GridBoxesRejected prometheus.Counter
	GridBuildDuration prometheus.Histogram

	// Lookup metrics.
	Lookups     *prometheus.CounterVec // labels: kind={box,pentad,neighbors}, outcome={success,out_of_bounds,not_found,invalid,error}
	LookupCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total observations read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total tagged observations written to the sinks.",
		}),
		ObservationsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_skipped_total",
			Help:      "Observations committed without loading because they could not be parsed or tagged.",
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of observations per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-tag-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		GridBands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_bands_total",
			Help:      "Latitude bands committed by grid builds.",
		}),
		GridBoxesKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_boxes_kept_total",
			Help:      "Ocean boxes committed by grid builds.",
		}),
		GridBoxesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_boxes_rejected_total",
			Help:      "Candidate boxes discarded for touching land.",
		}),
		GridBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grid_build_duration_seconds",
			Help:      "Wall time of a complete grid build.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Grid and calendar lookups by kind and outcome.",
		}, []string{"kind", "outcome"}),
		LookupCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_cache_total",
			Help:      "Box lookup cache results.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.ObservationsSkipped,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.GridBands,
		m.GridBoxesKept,
		m.GridBoxesRejected,
		m.GridBuildDuration,
		m.Lookups,
		m.LookupCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MessagesConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_consumed_total"}),
		MessagesProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_produced_total"}),
		ObservationsSkipped:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "observations_skipped_total"}, []string{"reason"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
		GridBands:               prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "grid_bands_total"}),
		GridBoxesKept:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "grid_boxes_kept_total"}),
		GridBoxesRejected:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "grid_boxes_rejected_total"}),
		GridBuildDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "grid_build_duration_seconds"}),
		Lookups:                 prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "lookups_total"}, []string{"kind", "outcome"}),
		LookupCache:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "lookup_cache_total"}, []string{"result"}),
	}
}
