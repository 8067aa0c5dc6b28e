package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the bibliometrics service.
// Metrics are organized by subsystem: ingestion, enrichment, metrics
// recomputation, ranking, training and HTTP. All collectors are registered
// via promauto with the default Prometheus registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// RecordsProcessed counts ingested records, labeled by source and outcome.
	RecordsProcessed *prometheus.CounterVec

	// IngestionRuns counts ingestion runs, labeled by source and status.
	IngestionRuns *prometheus.CounterVec

	// IngestionDuration observes ingestion run duration in seconds, labeled by source.
	IngestionDuration *prometheus.HistogramVec

	// FieldsFilled counts placeholder rows filled by enrichment, labeled by field.
	FieldsFilled *prometheus.CounterVec

	// MetricsRuns counts metrics recomputations, labeled by status.
	MetricsRuns *prometheus.CounterVec

	// MetricsDuration observes recomputation duration in seconds.
	MetricsDuration prometheus.Histogram

	// MetricsEntitiesSkipped counts entities whose computation failed, labeled by entity.
	MetricsEntitiesSkipped *prometheus.CounterVec

	// PageRankIterations reports the iteration count of the last PageRank run.
	PageRankIterations prometheus.Gauge

	// RankRequests counts ranking requests, labeled by status (ok, no_results, error).
	RankRequests *prometheus.CounterVec

	// RankDuration observes ranking latency in seconds.
	RankDuration prometheus.Histogram

	// RankResults observes the number of papers returned per ranking request.
	RankResults prometheus.Histogram

	// TrainingRuns counts estimator training runs, labeled by status.
	TrainingRuns *prometheus.CounterVec

	// ArtifactReloads counts ranking artifact reloads, labeled by status.
	ArtifactReloads *prometheus.CounterVec

	// HTTPRequests counts HTTP requests, labeled by method, route and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration observes HTTP request duration in seconds, labeled by method and route.
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Ingestion
		RecordsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Total number of source records processed by outcome",
		}, []string{"source", "outcome"}),
		IngestionRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_runs_total",
			Help:      "Total number of ingestion runs by source and status",
		}, []string{"source", "status"}),
		IngestionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_duration_seconds",
			Help:      "Duration of ingestion runs in seconds by source",
			Buckets:   []float64{1, 5, 10, 30, 60, 300, 900, 1800, 3600},
		}, []string{"source"}),
		FieldsFilled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_fields_filled_total",
			Help:      "Total number of placeholder rows filled by enrichment sweeps",
		}, []string{"field"}),

		// Metrics engine
		MetricsRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metrics_runs_total",
			Help:      "Total number of bibliometric recomputations by status",
		}, []string{"status"}),
		MetricsDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "metrics_duration_seconds",
			Help:      "Duration of bibliometric recomputations in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 300, 900},
		}),
		MetricsEntitiesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metrics_entities_skipped_total",
			Help:      "Total number of entities skipped during recomputation",
		}, []string{"entity"}),
		PageRankIterations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pagerank_iterations",
			Help:      "Iterations used by the last coauthor PageRank run",
		}),

		// Ranking
		RankRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_requests_total",
			Help:      "Total number of ranking requests by status",
		}, []string{"status"}),
		RankDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_duration_seconds",
			Help:      "Duration of ranking requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RankResults: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_results",
			Help:      "Number of papers returned per ranking request",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		}),
		TrainingRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Total number of estimator training runs by status",
		}, []string{"status"}),
		ArtifactReloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_reloads_total",
			Help:      "Total number of ranking artifact reloads by status",
		}, []string{"status"}),

		// HTTP
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "code"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordRecord records the outcome of one ingested record.
func (m *Metrics) RecordRecord(source, outcome string) {
	if m == nil {
		return
	}
	m.RecordsProcessed.WithLabelValues(source, outcome).Inc()
}

// RecordIngestionRun records a finished ingestion run.
func (m *Metrics) RecordIngestionRun(source, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.IngestionRuns.WithLabelValues(source, status).Inc()
	m.IngestionDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordFieldsFilled records rows filled by an enrichment sweep.
func (m *Metrics) RecordFieldsFilled(field string, count int) {
	if m == nil {
		return
	}
	m.FieldsFilled.WithLabelValues(field).Add(float64(count))
}

// RecordMetricsRun records a finished recomputation.
func (m *Metrics) RecordMetricsRun(status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.MetricsRuns.WithLabelValues(status).Inc()
	m.MetricsDuration.Observe(durationSeconds)
}

// RecordEntitiesSkipped records entities skipped during recomputation.
func (m *Metrics) RecordEntitiesSkipped(entity string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.MetricsEntitiesSkipped.WithLabelValues(entity).Add(float64(count))
}

// RecordPageRankIterations records the iteration count of a PageRank run.
func (m *Metrics) RecordPageRankIterations(iterations int) {
	if m == nil {
		return
	}
	m.PageRankIterations.Set(float64(iterations))
}

// RecordRank records a finished ranking request.
func (m *Metrics) RecordRank(status string, results int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RankRequests.WithLabelValues(status).Inc()
	m.RankDuration.Observe(durationSeconds)
	m.RankResults.Observe(float64(results))
}

// RecordTraining records a finished training run.
func (m *Metrics) RecordTraining(status string) {
	if m == nil {
		return
	}
	m.TrainingRuns.WithLabelValues(status).Inc()
}

// RecordArtifactReload records an artifact reload attempt.
func (m *Metrics) RecordArtifactReload(status string) {
	if m == nil {
		return
	}
	m.ArtifactReloads.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, code string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, code).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
