package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Assignments counts lead assignment operations by mode (manual|bulk|auto|reassign|unassign) and result.
	Assignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lapublica_assignments_total",
			Help: "Total number of lead assignment operations",
		},
		[]string{"mode", "result"},
	)

	// AutoAssignBatchSize observes how many leads each auto-assign pass distributed.
	AutoAssignBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lapublica_auto_assign_batch_size",
			Help:    "Number of leads assigned per auto-assign batch",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	// Requests counts request lifecycle operations by kind (connection|group_join|group_invite) and action.
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lapublica_requests_total",
			Help: "Total number of request lifecycle operations",
		},
		[]string{"kind", "action"},
	)

	// PendingExpirations counts PENDING requests flipped to EXPIRED, by trigger (lazy|sweep).
	PendingExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lapublica_request_expirations_total",
			Help: "Total number of pending requests expired",
		},
		[]string{"trigger"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lapublica_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
