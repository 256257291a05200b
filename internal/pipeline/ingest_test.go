package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/ledger"
	"orcsync.io/hub/internal/media"
	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/pkg/logger"
	"orcsync.io/hub/internal/registry"
	"orcsync.io/hub/internal/testutil"
)

func init() {
	_ = logger.Init("error", "json")
}

type ingestHarness struct {
	db        *gorm.DB
	ingestor  *Ingestor
	mediaRoot string
}

func newIngestHarness(t *testing.T, prefix string) *ingestHarness {
	t.Helper()
	db := testutil.OpenGorm(t, prefix)
	stations := []model.Station{
		{ID: 1, Name: "Station A"},
		{ID: 2, Name: "Station B"},
		{ID: 3, Name: "Station C"},
	}
	require.NoError(t, db.Create(&stations).Error)

	root := t.TempDir()
	store := media.NewDiskStore(root, "http://hub.local/media")
	return &ingestHarness{
		db:        db,
		ingestor:  NewIngestor(db, registry.Default(), ledger.New(db), store),
		mediaRoot: root,
	}
}

func (h *ingestHarness) events(t *testing.T, tag, objectID string) []model.ChangeEvent {
	t.Helper()
	var events []model.ChangeEvent
	require.NoError(t, h.db.
		Where("entity_tag = ? AND object_id = ?", tag, objectID).
		Order("timestamp").
		Find(&events).Error)
	return events
}

func TestApplyBatch_CreateUpdateDelete(t *testing.T) {
	t.Parallel()
	h := newIngestHarness(t, "ingest-cud")
	ctx := context.Background()

	res, err := h.ingestor.ApplyBatch(ctx, 1, []InboundChange{{
		EventUUID: "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10001",
		Model:     model.TagDriver,
		Action:    "C",
		ObjectID:  "12",
		DataPayload: map[string]any{
			"first_name":        "Abebe",
			"last_name":         "Tadesse",
			"license_number":    "DL-0012",
			"license_issued_at": "2024-03-01T08:30:00Z",
			"salary":            "1500.50",
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1}, res)

	var d model.Driver
	require.NoError(t, h.db.First(&d, 12).Error)
	assert.Equal(t, "Abebe", d.FirstName)
	assert.Equal(t, "DL-0012", d.LicenseNumber)
	require.NotNil(t, d.LicenseIssuedAt)
	assert.True(t, d.LicenseIssuedAt.Equal(time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)))
	assert.Equal(t, "1500.5", d.Salary.String())

	// One fan-out event, excluding the pusher from the checklist.
	events := h.events(t, model.TagDriver, "12")
	require.Len(t, events, 1)
	require.NotNil(t, events[0].SourceStationID)
	assert.Equal(t, 1, *events[0].SourceStationID)

	var acks []model.Acknowledgement
	require.NoError(t, h.db.Where("change_event_id = ?", events[0].ID).Order("station_id").Find(&acks).Error)
	require.Len(t, acks, 2)
	assert.Equal(t, 2, acks[0].StationID)
	assert.Equal(t, 3, acks[1].StationID)

	res, err = h.ingestor.ApplyBatch(ctx, 2, []InboundChange{{
		EventUUID:   "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10002",
		Model:       model.TagDriver,
		Action:      "U",
		ObjectID:    "12",
		DataPayload: map[string]any{"first_name": "Kebede", "license_number": "DL-0012"},
	}})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1}, res)

	require.NoError(t, h.db.First(&d, 12).Error)
	assert.Equal(t, "Kebede", d.FirstName)
	assert.Equal(t, "Tadesse", d.LastName, "update must not clear fields it does not carry")

	res, err = h.ingestor.ApplyBatch(ctx, 1, []InboundChange{{
		EventUUID:   "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10003",
		Model:       model.TagDriver,
		Action:      "D",
		ObjectID:    "12",
		DataPayload: map[string]any{},
	}})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1}, res)

	err = h.db.First(&d, 12).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Len(t, h.events(t, model.TagDriver, "12"), 3)
}

func TestApplyBatch_ReplayConvergesOnSameRow(t *testing.T) {
	t.Parallel()
	h := newIngestHarness(t, "ingest-replay")
	ctx := context.Background()

	batch := []InboundChange{{
		EventUUID: "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10010",
		Model:     model.TagDriver,
		Action:    "C",
		ObjectID:  "5",
		DataPayload: map[string]any{
			"first_name":     "Abebe",
			"last_name":      "Tadesse",
			"license_number": "DL-replay",
		},
	}}

	for i := 0; i < 2; i++ {
		res, err := h.ingestor.ApplyBatch(ctx, 1, batch)
		require.NoError(t, err)
		assert.Equal(t, Result{Applied: 1}, res, "apply %d", i)
	}

	var count int64
	require.NoError(t, h.db.Model(&model.Driver{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestApplyBatch_UniqueFieldFallback(t *testing.T) {
	t.Parallel()
	h := newIngestHarness(t, "ingest-unique")
	ctx := context.Background()

	local := model.Driver{
		ID:            5,
		FirstName:     "Abebe",
		LastName:      "Tadesse",
		LicenseNumber: "DL-0099",
	}
	require.NoError(t, h.db.Create(&local).Error)

	// Another station invented the same driver under its own key; the
	// license number must fold both onto the existing row.
	res, err := h.ingestor.ApplyBatch(ctx, 2, []InboundChange{{
		EventUUID: "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10020",
		Model:     model.TagDriver,
		Action:    "C",
		ObjectID:  "77",
		DataPayload: map[string]any{
			"first_name":     "Abebe",
			"last_name":      "T.",
			"license_number": "DL-0099",
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1}, res)

	var count int64
	require.NoError(t, h.db.Model(&model.Driver{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var d model.Driver
	require.NoError(t, h.db.First(&d, 5).Error)
	assert.Equal(t, "T.", d.LastName)
}

func TestApplyBatch_ForeignKeyFixUpAcrossBatch(t *testing.T) {
	t.Parallel()
	h := newIngestHarness(t, "ingest-fk")
	ctx := context.Background()

	// The truck arrives before its owner; the second pass runs after the
	// whole batch so the reference still lands.
	res, err := h.ingestor.ApplyBatch(ctx, 1, []InboundChange{
		{
			EventUUID: "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10030",
			Model:     model.TagTruck,
			Action:    "C",
			ObjectID:  "9",
			DataPayload: map[string]any{
				"plate_number":   "ET-3-A99999",
				"chassis_number": "CH-9",
				"owner":          float64(3),
			},
		},
		{
			EventUUID: "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10031",
			Model:     model.TagTruckOwner,
			Action:    "C",
			ObjectID:  "3",
			DataPayload: map[string]any{
				"name":       "Abdi Logistics PLC",
				"tin_number": "0023456789",
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 2}, res)

	var truck model.Truck
	require.NoError(t, h.db.First(&truck, 9).Error)
	require.NotNil(t, truck.OwnerID)
	assert.Equal(t, 3, *truck.OwnerID)
}

func TestApplyBatch_MissingRelationTargetSkipped(t *testing.T) {
	t.Parallel()
	h := newIngestHarness(t, "ingest-fkmiss")
	ctx := context.Background()

	res, err := h.ingestor.ApplyBatch(ctx, 1, []InboundChange{{
		EventUUID: "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10040",
		Model:     model.TagTruck,
		Action:    "C",
		ObjectID:  "4",
		DataPayload: map[string]any{
			"plate_number":   "ET-3-B11111",
			"chassis_number": "CH-4",
			"owner":          float64(999),
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1}, res)

	var truck model.Truck
	require.NoError(t, h.db.First(&truck, 4).Error)
	assert.Nil(t, truck.OwnerID)
}

func TestApplyBatch_FailedChangeDoesNotBlockBatch(t *testing.T) {
	t.Parallel()
	h := newIngestHarness(t, "ingest-partial")
	ctx := context.Background()

	res, err := h.ingestor.ApplyBatch(ctx, 1, []InboundChange{
		{
			EventUUID:   "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10050",
			Model:       model.TagDriver,
			Action:      "C",
			ObjectID:    "1",
			DataPayload: map[string]any{"license_number": "DL-1", "salary": "not-a-number"},
		},
		{
			EventUUID:   "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10051",
			Model:       model.TagDriver,
			Action:      "C",
			ObjectID:    "2",
			DataPayload: map[string]any{"first_name": "Worku", "last_name": "Bekele", "license_number": "DL-2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1, Failed: 1}, res)

	// The failed change left no row and no event behind.
	var count int64
	require.NoError(t, h.db.Model(&model.Driver{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Empty(t, h.events(t, model.TagDriver, "1"))
	assert.Len(t, h.events(t, model.TagDriver, "2"), 1)
}

func TestApplyBatch_DeleteMissingRowStillRecordsEvent(t *testing.T) {
	t.Parallel()
	h := newIngestHarness(t, "ingest-delmiss")
	ctx := context.Background()

	res, err := h.ingestor.ApplyBatch(ctx, 1, []InboundChange{{
		EventUUID:   "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10060",
		Model:       model.TagDriver,
		Action:      "D",
		ObjectID:    "404",
		DataPayload: map[string]any{},
	}})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1}, res)
	assert.Len(t, h.events(t, model.TagDriver, "404"), 1)
}

func TestApplyBatch_FileLifecycle(t *testing.T) {
	t.Parallel()
	h := newIngestHarness(t, "ingest-files")
	ctx := context.Background()

	content := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))
	res, err := h.ingestor.ApplyBatch(ctx, 1, []InboundChange{{
		EventUUID: "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10070",
		Model:     model.TagDriver,
		Action:    "C",
		ObjectID:  "21",
		DataPayload: map[string]any{
			"first_name":     "Abebe",
			"last_name":      "Tadesse",
			"license_number": "DL-0021",
			"photo":          map[string]any{"filename": "badge.jpg", "content": content},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1}, res)

	var d model.Driver
	require.NoError(t, h.db.First(&d, 21).Error)
	wantKey := "drivers/driver/photo/21/badge.jpg"
	assert.Equal(t, wantKey, d.Photo)

	blob, err := os.ReadFile(filepath.Join(h.mediaRoot, filepath.FromSlash(wantKey)))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), blob)

	// A content-less file dict removes the stored blob.
	res, err = h.ingestor.ApplyBatch(ctx, 2, []InboundChange{{
		EventUUID: "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10071",
		Model:     model.TagDriver,
		Action:    "U",
		ObjectID:  "21",
		DataPayload: map[string]any{
			"license_number": "DL-0021",
			"photo":          map[string]any{"filename": ""},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1}, res)

	require.NoError(t, h.db.First(&d, 21).Error)
	assert.Empty(t, d.Photo)
	_, err = os.Stat(filepath.Join(h.mediaRoot, filepath.FromSlash(wantKey)))
	assert.True(t, os.IsNotExist(err))
}

func TestApplyBatch_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	h := newIngestHarness(t, "ingest-roundtrip")
	ctx := context.Background()

	// The origin side of the wire: the snapshot a peer captured for a local
	// driver write.
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	origin := &model.Driver{
		ID:              31,
		FirstName:       "Ábébé",
		LastName:        "Bíkílá",
		LicenseNumber:   "DL-RT-0031",
		PhoneNumber:     "+251911222333",
		LicenseIssuedAt: &issued,
		Salary:          decimal.RequireFromString("1234.56"),
	}
	desc, ok := registry.Default().Lookup(model.TagDriver)
	require.True(t, ok)
	snap, err := desc.Ops.Snapshot(origin, media.Resolver{
		Store: media.NewDiskStore(t.TempDir(), "http://peer.local/media"),
	})
	require.NoError(t, err)

	// Over the wire and back: numbers arrive as float64, everything else as
	// strings, like a real pushed batch.
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))

	res, err := h.ingestor.ApplyBatch(ctx, 1, []InboundChange{{
		EventUUID:   "7f8a1c9e-4a31-4be0-9a0e-2f3d58a10031",
		Model:       model.TagDriver,
		Action:      "C",
		ObjectID:    "31",
		DataPayload: payload,
	}})
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1}, res)

	var got model.Driver
	require.NoError(t, h.db.First(&got, 31).Error)
	assert.Equal(t, "Ábébé", got.FirstName)
	assert.Equal(t, "Bíkílá", got.LastName)
	assert.Equal(t, "DL-RT-0031", got.LicenseNumber)
	assert.Equal(t, "+251911222333", got.PhoneNumber)
	require.NotNil(t, got.LicenseIssuedAt)
	assert.True(t, got.LicenseIssuedAt.Equal(issued))
	assert.True(t, got.Salary.Equal(origin.Salary),
		"salary %s arrived as %s", origin.Salary, got.Salary)
	assert.Empty(t, got.Photo)
}
