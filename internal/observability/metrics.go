package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gateway"

// Rejection reasons used as the "reason" label of QueryRejections.
const (
	ReasonComplexity  = "complexity"
	ReasonDepth       = "depth"
	ReasonParse       = "parse"
	ReasonConcurrency = "concurrency"
	ReasonNoSchema    = "no_schema"
)

// ReadinessChecker reports whether a dependency is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Scoring
	QueryComplexity      *prometheus.HistogramVec
	QueryRejections      *prometheus.CounterVec
	DocumentCacheLookups *prometheus.CounterVec

	// Schema
	SchemaReloads    *prometheus.CounterVec
	SchemaLoadedTime prometheus.Gauge

	// Kafka
	KafkaMessagesConsumed *prometheus.CounterVec
	KafkaConsumerErrors   *prometheus.CounterVec
	KafkaConsumerRunning  *prometheus.GaugeVec
}

// NewMetrics creates and registers all application metrics with the default registry.
func NewMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer))
}

// NewTestMetrics creates metrics backed by a throw-away registry.
// Safe to call from multiple tests without duplicate-registration panics.
func NewTestMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.NewRegistry()))
}

func newMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method", "path"}),

		QueryComplexity: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_complexity",
			Help:      "Complexity score of scored operations.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"estimator"}),

		QueryRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_rejections_total",
			Help:      "Total operations rejected before reaching the upstream.",
		}, []string{"reason"}),

		DocumentCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_cache_lookups_total",
			Help:      "Parsed document cache lookups by result.",
		}, []string{"result"}),

		SchemaReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_reloads_total",
			Help:      "Schema load attempts by source and result.",
		}, []string{"source", "result"}),

		SchemaLoadedTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schema_loaded_timestamp_seconds",
			Help:      "Unix time the active schema was loaded.",
		}),

		KafkaMessagesConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_consumed_total",
			Help:      "Total Kafka messages consumed.",
		}, []string{"topic"}),

		KafkaConsumerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_errors_total",
			Help:      "Total Kafka consumer errors.",
		}, []string{"topic", "error_type"}),

		KafkaConsumerRunning: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_running",
			Help:      "Whether the Kafka consumer is running (1) or stopped (0).",
		}, []string{"topic"}),
	}
}

// ObserveCacheLookup records a document cache hit or miss. It matches the
// signature of complexity.DocumentCache.OnLookup.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.DocumentCacheLookups.WithLabelValues(result).Inc()
}
