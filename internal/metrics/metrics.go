// Package metrics exposes the hub's Prometheus instrumentation. Collectors
// are package-level and registered on the default registry at init, so any
// package can count without threading a handle through.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Capture pipeline
	EventsCaptured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orcsync_events_captured_total",
			Help: "Total number of change events captured from local mutations",
		},
	)

	// Ingestion pipeline
	ChangesApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orcsync_changes_applied_total",
			Help: "Total number of pushed changes applied by action",
		},
		[]string{"action"},
	)

	ChangesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orcsync_changes_failed_total",
			Help: "Total number of pushed changes that failed to apply",
		},
	)

	IngestBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orcsync_ingest_batch_duration_seconds",
			Help:    "Time taken to apply one pushed batch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Delivery API
	PushBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orcsync_push_batches_total",
			Help: "Total number of accepted push batches",
		},
	)

	PushChanges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orcsync_push_changes_total",
			Help: "Total number of changes received across push batches",
		},
	)

	PendingPolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orcsync_pending_polls_total",
			Help: "Total number of /get-pending polls served",
		},
	)

	PendingEventsServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orcsync_pending_events_served_total",
			Help: "Total number of pending change events handed to stations",
		},
	)

	EventsAcknowledged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orcsync_events_acknowledged_total",
			Help: "Total number of acknowledgements flipped to acknowledged",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(EventsCaptured)
	prometheus.MustRegister(ChangesApplied)
	prometheus.MustRegister(ChangesFailed)
	prometheus.MustRegister(IngestBatchDuration)
	prometheus.MustRegister(PushBatches)
	prometheus.MustRegister(PushChanges)
	prometheus.MustRegister(PendingPolls)
	prometheus.MustRegister(PendingEventsServed)
	prometheus.MustRegister(EventsAcknowledged)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
