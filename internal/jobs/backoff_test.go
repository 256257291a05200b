package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelay_DoublesPerAttemptUpToCap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Second}, // treated as the first attempt
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 60 * time.Second},
		{6, 60 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryDelay(5*time.Second, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryDelay_ShiftOverflowHitsCap(t *testing.T) {
	t.Parallel()

	// Enough doublings to overflow the duration; the cap must still hold.
	assert.Equal(t, retryCap, retryDelay(10*time.Second, 64))
}

func TestInsertOpts_QueueRouting(t *testing.T) {
	t.Parallel()

	capOpts := CaptureArgs{}.InsertOpts()
	assert.Equal(t, QueueCapture, capOpts.Queue)
	assert.Equal(t, MaxAttempts, capOpts.MaxAttempts)

	ingOpts := IngestArgs{}.InsertOpts()
	assert.Equal(t, QueueIngest, ingOpts.Queue)
	assert.Equal(t, MaxAttempts, ingOpts.MaxAttempts)
}

func TestJobKinds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sync_capture", CaptureArgs{}.Kind())
	assert.Equal(t, "sync_ingest", IngestArgs{}.Kind())
}

func TestWorkerConstructors_DefaultSchedules(t *testing.T) {
	t.Parallel()

	w := NewCaptureWorker(nil, nil, nil, 0)
	assert.Equal(t, DefaultCaptureRetryBase, w.retryBase)

	w = NewCaptureWorker(nil, nil, nil, 2*time.Second)
	assert.Equal(t, 2*time.Second, w.retryBase)

	iw := NewIngestWorker(nil, 0, 0)
	assert.Equal(t, DefaultIngestRetryBase, iw.retryBase)
	assert.Equal(t, DefaultIngestTimeout, iw.timeout)
	assert.Equal(t, DefaultIngestTimeout, iw.Timeout(nil))
}
