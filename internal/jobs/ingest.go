package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"orcsync.io/hub/internal/pipeline"
	"orcsync.io/hub/internal/pkg/logger"
)

// ---------------------------------------------------------------------------
// Job Args
// ---------------------------------------------------------------------------

// IngestArgs carries one validated push batch. The whole batch travels in
// the job so a retry replays exactly what the station sent.
type IngestArgs struct {
	SourceStationID int                      `json:"source_station_id"`
	Changes         []pipeline.InboundChange `json:"changes"`
}

// Kind returns the job kind identifier for ingest jobs.
func (IngestArgs) Kind() string { return "sync_ingest" }

// InsertOpts routes ingest jobs onto their own queue.
func (IngestArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueIngest,
		MaxAttempts: MaxAttempts,
	}
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

// IngestWorker applies pushed batches through the ingestion pipeline.
// Applying is idempotent, so a batch interrupted by the timeout or a crash
// is safe to run again.
type IngestWorker struct {
	river.WorkerDefaults[IngestArgs]
	ingestor  *pipeline.Ingestor
	retryBase time.Duration
	timeout   time.Duration
}

// NewIngestWorker creates an ingest worker. Non-positive durations fall
// back to the default schedule and deadline.
func NewIngestWorker(ingestor *pipeline.Ingestor, retryBase, timeout time.Duration) *IngestWorker {
	if retryBase <= 0 {
		retryBase = DefaultIngestRetryBase
	}
	if timeout <= 0 {
		timeout = DefaultIngestTimeout
	}
	return &IngestWorker{ingestor: ingestor, retryBase: retryBase, timeout: timeout}
}

// Timeout bounds one batch application; the context is cancelled past it.
func (w *IngestWorker) Timeout(*river.Job[IngestArgs]) time.Duration {
	return w.timeout
}

// NextRetry doubles the delay per attempt: 10s, 20s, 40s with the defaults.
func (w *IngestWorker) NextRetry(job *river.Job[IngestArgs]) time.Time {
	return time.Now().Add(retryDelay(w.retryBase, job.Attempt))
}

// Work applies the pushed batch.
func (w *IngestWorker) Work(ctx context.Context, job *river.Job[IngestArgs]) error {
	args := job.Args
	if args.SourceStationID <= 0 {
		return river.JobCancel(fmt.Errorf("push batch without a source station"))
	}
	if len(args.Changes) == 0 {
		return nil
	}

	logger.Info("processing pushed batch",
		zap.Int("source_station_id", args.SourceStationID),
		zap.Int("changes", len(args.Changes)),
		zap.Int("attempt", job.Attempt),
	)

	res, err := w.ingestor.ApplyBatch(ctx, args.SourceStationID, args.Changes)
	if err != nil {
		return fmt.Errorf("apply pushed batch from station %d: %w", args.SourceStationID, err)
	}

	logger.Info("pushed batch applied",
		zap.Int("source_station_id", args.SourceStationID),
		zap.Int("applied", res.Applied),
		zap.Int("failed", res.Failed),
	)
	return nil
}
