package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_etl"

// Item outcomes recorded by ItemsProcessed.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	ItemsProcessed   *prometheus.CounterVec   // labels: stage, outcome={processed,skipped,failed}
	ItemErrors       *prometheus.CounterVec   // labels: stage, kind
	FetchDuration    *prometheus.HistogramVec // labels: endpoint={bulletin,details}
	StageDuration    *prometheus.HistogramVec // labels: stage
	RecordsPublished prometheus.Counter
	RunsCompleted    prometheus.Counter
	PipelineRunning  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ItemsProcessed,
		m.ItemErrors,
		m.FetchDuration,
		m.StageDuration,
		m.RecordsPublished,
		m.RunsCompleted,
		m.PipelineRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ItemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Items handled per stage by outcome.",
		}, []string{"stage", "outcome"}),
		ItemErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_errors_total",
			Help:      "Skipped or failed items per stage by error kind.",
		}, []string{"stage", "kind"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "CWA request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of one complete stage pass.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Unified records written to Kafka.",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Full pipeline runs completed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
	}
}
