package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	// Delivery metrics
	SubmissionsTotal   *prometheus.CounterVec
	DeliveryAttempts   *prometheus.CounterVec
	DeliveryOutcomes   *prometheus.CounterVec
	DeliveryLatency    *prometheus.HistogramVec
	ChannelUnavailable *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Reconciler metrics
	ReconciledSubmissions prometheus.Counter
}

// NewMetrics creates metrics registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of submissions accepted for delivery",
		}, []string{"kind"}),

		DeliveryAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "Delivery attempts per channel and result",
		}, []string{"channel", "result"}),

		DeliveryOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_outcomes_total",
			Help:      "Terminal submission outcomes",
		}, []string{"kind", "status"}),

		DeliveryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time from persistence to terminal status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),

		ChannelUnavailable: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_unavailable_skips_total",
			Help:      "Channels skipped because configuration is absent",
		}, []string{"channel"}),

		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Database operations by type and status",
		}, []string{"operation", "status"}),

		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Database operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		ReconciledSubmissions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_submissions_total",
			Help:      "Stale pending submissions marked failed by the reconciler",
		}),
	}
}

// NewTestMetrics creates unregistered metrics for tests.
func NewTestMetrics() *Metrics {
	return &Metrics{
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_total",
		}, []string{"kind"}),
		DeliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_attempts_total",
		}, []string{"channel", "result"}),
		DeliveryOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_outcomes_total",
		}, []string{"kind", "status"}),
		DeliveryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "delivery_duration_seconds",
		}, []string{"kind"}),
		ChannelUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "channel_unavailable_skips_total",
		}, []string{"channel"}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "database_operations_total",
		}, []string{"operation", "status"}),
		DatabaseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "database_operation_duration_seconds",
		}, []string{"operation"}),
		ReconciledSubmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconciled_submissions_total",
		}),
	}
}
