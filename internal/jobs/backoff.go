// Package jobs defines the River workers behind the two asynchronous
// pipelines: capture (a local mutation becomes a change event fanned out to
// every station) and ingest (a pushed batch is applied and re-fanned out to
// everyone but the pusher).
package jobs

import "time"

// Queue names. Separate queues keep a flood of pushed batches from starving
// local capture jobs, and let worker counts be tuned per pipeline.
const (
	QueueCapture = "capture"
	QueueIngest  = "ingest"
)

// MaxAttempts allows three retries after the first failure.
const MaxAttempts = 4

// Retry schedule defaults. Capture retries sooner than ingest: a capture
// job is one small insert, an ingest job replays a whole batch.
const (
	DefaultCaptureRetryBase = 5 * time.Second
	DefaultIngestRetryBase  = 10 * time.Second
	DefaultIngestTimeout    = 5 * time.Minute

	retryCap = 60 * time.Second
)

// retryDelay returns the wait before the next attempt: the base doubled
// per completed attempt, capped at a minute.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base << (attempt - 1)
	if d <= 0 || d > retryCap {
		return retryCap
	}
	return d
}
