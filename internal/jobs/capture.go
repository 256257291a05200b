package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/ledger"
	"orcsync.io/hub/internal/metrics"
	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/pkg/logger"
	"orcsync.io/hub/internal/registry"
)

// ---------------------------------------------------------------------------
// Job Args
// ---------------------------------------------------------------------------

// CaptureArgs carries one locally captured mutation: the snapshot was taken
// synchronously at write time, the event and its fan-out are recorded here.
type CaptureArgs struct {
	Model    string          `json:"model"`
	ObjectID string          `json:"object_id"`
	Action   string          `json:"action"`
	Payload  json.RawMessage `json:"payload"`
}

// Kind returns the job kind identifier for capture jobs.
func (CaptureArgs) Kind() string { return "sync_capture" }

// InsertOpts routes capture jobs onto their own queue. No uniqueness: two
// identical rapid saves are two changes and must become two events.
func (CaptureArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueCapture,
		MaxAttempts: MaxAttempts,
	}
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

// CaptureWorker appends the change event for a captured local mutation and
// fans it out to every station. Local changes have no source, so nobody is
// excluded from the checklist.
type CaptureWorker struct {
	river.WorkerDefaults[CaptureArgs]
	db        *gorm.DB
	led       *ledger.Ledger
	reg       *registry.Registry
	retryBase time.Duration
}

// NewCaptureWorker creates a capture worker. A non-positive retryBase falls
// back to the default schedule.
func NewCaptureWorker(db *gorm.DB, led *ledger.Ledger, reg *registry.Registry, retryBase time.Duration) *CaptureWorker {
	if retryBase <= 0 {
		retryBase = DefaultCaptureRetryBase
	}
	return &CaptureWorker{db: db, led: led, reg: reg, retryBase: retryBase}
}

// NextRetry doubles the delay per attempt: 5s, 10s, 20s with the defaults.
func (w *CaptureWorker) NextRetry(job *river.Job[CaptureArgs]) time.Time {
	return time.Now().Add(retryDelay(w.retryBase, job.Attempt))
}

// Work records the event and its acknowledgement fan-out in one transaction.
func (w *CaptureWorker) Work(ctx context.Context, job *river.Job[CaptureArgs]) error {
	logger.Info("processing capture job",
		zap.String("model", job.Args.Model),
		zap.String("object_id", job.Args.ObjectID),
		zap.String("action", job.Args.Action),
		zap.Int("attempt", job.Attempt),
	)
	return w.capture(ctx, job.Args)
}

func (w *CaptureWorker) capture(ctx context.Context, args CaptureArgs) error {
	// Stale jobs surviving a registry reconfiguration are dropped, not
	// retried into the dead queue.
	if _, ok := w.reg.Lookup(args.Model); !ok {
		return river.JobCancel(fmt.Errorf("model %q is not registered", args.Model))
	}
	if !model.Action(args.Action).Valid() {
		return river.JobCancel(fmt.Errorf("%q is not a valid action", args.Action))
	}

	stations, err := w.led.StationIDs(ctx)
	if err != nil {
		return err
	}

	ev := &model.ChangeEvent{
		EntityTag: args.Model,
		ObjectID:  args.ObjectID,
		Action:    model.Action(args.Action),
		Payload:   datatypes.JSON(args.Payload),
	}
	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return w.led.AppendEvent(ctx, tx, ev, stations)
	})
	if err != nil {
		return fmt.Errorf("record captured change %s %s: %w", args.Model, args.ObjectID, err)
	}

	metrics.EventsCaptured.Inc()
	logger.Info("change event recorded",
		zap.String("event_id", ev.ID.String()),
		zap.String("model", args.Model),
		zap.String("object_id", args.ObjectID),
		zap.Int("destinations", len(stations)),
	)
	return nil
}
