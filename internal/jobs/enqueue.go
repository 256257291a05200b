package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/pipeline"
)

// RiverEnqueuer schedules sync jobs on the shared River client. It is the
// write side's door into the queue: the repository enqueues captures, the
// push endpoint enqueues ingests.
type RiverEnqueuer struct {
	client *river.Client[pgx.Tx]
}

// NewRiverEnqueuer wraps the shared River client.
func NewRiverEnqueuer(client *river.Client[pgx.Tx]) *RiverEnqueuer {
	return &RiverEnqueuer{client: client}
}

// EnqueueCapture schedules distribution of one captured local mutation.
func (e *RiverEnqueuer) EnqueueCapture(ctx context.Context, tag, objectID string, action model.Action, payload json.RawMessage) error {
	_, err := e.client.Insert(ctx, CaptureArgs{
		Model:    tag,
		ObjectID: objectID,
		Action:   string(action),
		Payload:  payload,
	}, nil)
	if err != nil {
		return fmt.Errorf("insert capture job: %w", err)
	}
	return nil
}

// EnqueueIngest schedules application of a validated push batch and returns
// the queued job id, surfaced to the pusher as the task id.
func (e *RiverEnqueuer) EnqueueIngest(ctx context.Context, sourceStationID int, changes []pipeline.InboundChange) (int64, error) {
	res, err := e.client.Insert(ctx, IngestArgs{
		SourceStationID: sourceStationID,
		Changes:         changes,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("insert ingest job: %w", err)
	}
	return res.Job.ID, nil
}
