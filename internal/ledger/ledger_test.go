package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/testutil"
)

func seedStations(t *testing.T, db *gorm.DB, names ...string) []model.Station {
	t.Helper()
	stations := make([]model.Station, len(names))
	for i, name := range names {
		stations[i] = model.Station{ID: i + 1, Name: name}
	}
	require.NoError(t, db.Create(&stations).Error)
	return stations
}

func appendEvent(t *testing.T, db *gorm.DB, led *Ledger, ev *model.ChangeEvent, destinations []int) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		return led.AppendEvent(context.Background(), tx, ev, destinations)
	})
	require.NoError(t, err)
}

func TestAppendEvent_FansOutAcknowledgements(t *testing.T) {
	t.Parallel()
	db := testutil.OpenGorm(t, "ledger-append")
	led := New(db)
	seedStations(t, db, "Station A", "Station B", "Station C")

	source := 1
	ev := &model.ChangeEvent{
		EntityTag:       model.TagDriver,
		ObjectID:        "12",
		Action:          model.ActionCreate,
		Payload:         datatypes.JSON(`{"first_name": "Abebe"}`),
		SourceStationID: &source,
	}
	appendEvent(t, db, led, ev, []int{2, 3})

	// Identity and capture time are minted on insert.
	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())

	var acks []model.Acknowledgement
	require.NoError(t, db.Where("change_event_id = ?", ev.ID).Order("station_id").Find(&acks).Error)
	require.Len(t, acks, 2)
	for i, wantStation := range []int{2, 3} {
		assert.Equal(t, wantStation, acks[i].StationID)
		assert.Equal(t, model.AckPending, acks[i].Status)
		assert.Nil(t, acks[i].AcknowledgedAt)
	}
}

func TestAppendEvent_NoDestinations(t *testing.T) {
	t.Parallel()
	db := testutil.OpenGorm(t, "ledger-nodest")
	led := New(db)
	seedStations(t, db, "Station A")

	ev := &model.ChangeEvent{
		EntityTag: model.TagStation,
		ObjectID:  "1",
		Action:    model.ActionUpdate,
		Payload:   datatypes.JSON(`{"name": "Station A"}`),
	}
	appendEvent(t, db, led, ev, nil)

	var count int64
	require.NoError(t, db.Model(&model.Acknowledgement{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStationIDs(t *testing.T) {
	t.Parallel()
	db := testutil.OpenGorm(t, "ledger-stations")
	led := New(db)
	seedStations(t, db, "Station A", "Station B", "Station C")
	ctx := context.Background()

	ids, err := led.StationIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)

	ids, err = led.StationIDsExcept(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ids)
}

func TestPendingEventsFor_OldestFirst(t *testing.T) {
	t.Parallel()
	db := testutil.OpenGorm(t, "ledger-pending")
	led := New(db)
	seedStations(t, db, "Station A", "Station B")
	ctx := context.Background()

	older := &model.ChangeEvent{
		EntityTag: model.TagDriver,
		ObjectID:  "1",
		Action:    model.ActionCreate,
		Payload:   datatypes.JSON(`{"first_name": "Abebe"}`),
		Timestamp: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
	}
	newer := &model.ChangeEvent{
		EntityTag: model.TagDriver,
		ObjectID:  "1",
		Action:    model.ActionUpdate,
		Payload:   datatypes.JSON(`{"first_name": "Kebede"}`),
		Timestamp: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	// Inserted newest first; the poll must still return oldest first.
	appendEvent(t, db, led, newer, []int{2})
	appendEvent(t, db, led, older, []int{2})

	events, err := led.PendingEventsFor(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, older.ID, events[0].ID)
	assert.Equal(t, newer.ID, events[1].ID)

	// Station 1 has no checklist rows.
	events, err = led.PendingEventsFor(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAcknowledge_FlipsOnlyOwnPendingRows(t *testing.T) {
	t.Parallel()
	db := testutil.OpenGorm(t, "ledger-ack")
	led := New(db)
	seedStations(t, db, "Station A", "Station B", "Station C")
	ctx := context.Background()

	source := 1
	ev := &model.ChangeEvent{
		EntityTag:       model.TagDriver,
		ObjectID:        "1",
		Action:          model.ActionCreate,
		Payload:         datatypes.JSON(`{}`),
		SourceStationID: &source,
	}
	appendEvent(t, db, led, ev, []int{2, 3})

	updated, err := led.Acknowledge(ctx, 2, []uuid.UUID{ev.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	// Already acknowledged: nothing left to flip.
	updated, err = led.Acknowledge(ctx, 2, []uuid.UUID{ev.ID})
	require.NoError(t, err)
	assert.Zero(t, updated)

	// The other station's row is untouched.
	var ack model.Acknowledgement
	require.NoError(t, db.Where("change_event_id = ? AND station_id = ?", ev.ID, 3).First(&ack).Error)
	assert.Equal(t, model.AckPending, ack.Status)

	require.NoError(t, db.Where("change_event_id = ? AND station_id = ?", ev.ID, 2).First(&ack).Error)
	assert.Equal(t, model.AckAcknowledged, ack.Status)
	require.NotNil(t, ack.AcknowledgedAt)
	assert.WithinDuration(t, time.Now(), *ack.AcknowledgedAt, time.Minute)

	updated, err = led.Acknowledge(ctx, 2, nil)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestFullyAcknowledgedEventIDs(t *testing.T) {
	t.Parallel()
	db := testutil.OpenGorm(t, "ledger-fullack")
	led := New(db)
	seedStations(t, db, "Station A", "Station B", "Station C")
	ctx := context.Background()

	source := 1
	ev1 := &model.ChangeEvent{
		EntityTag:       model.TagDriver,
		ObjectID:        "1",
		Action:          model.ActionCreate,
		Payload:         datatypes.JSON(`{}`),
		Timestamp:       time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		SourceStationID: &source,
	}
	ev2 := &model.ChangeEvent{
		EntityTag:       model.TagDriver,
		ObjectID:        "2",
		Action:          model.ActionCreate,
		Payload:         datatypes.JSON(`{}`),
		Timestamp:       time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		SourceStationID: &source,
	}
	appendEvent(t, db, led, ev1, []int{2, 3})
	appendEvent(t, db, led, ev2, []int{2, 3})

	// Nothing acknowledged yet.
	ids, err := led.FullyAcknowledgedEventIDs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = led.Acknowledge(ctx, 2, []uuid.UUID{ev1.ID, ev2.ID})
	require.NoError(t, err)
	_, err = led.Acknowledge(ctx, 3, []uuid.UUID{ev1.ID})
	require.NoError(t, err)

	ids, err = led.FullyAcknowledgedEventIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ev1.ID}, ids)

	// Another station sees nothing: it originated neither event.
	ids, err = led.FullyAcknowledgedEventIDs(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTouchLastSeen(t *testing.T) {
	t.Parallel()
	db := testutil.OpenGorm(t, "ledger-lastseen")
	led := New(db)
	seedStations(t, db, "Station A")
	ctx := context.Background()

	var before model.Station
	require.NoError(t, db.First(&before, 1).Error)
	assert.Nil(t, before.LastSeen)

	require.NoError(t, led.TouchLastSeen(ctx, 1))

	var after model.Station
	require.NoError(t, db.First(&after, 1).Error)
	require.NotNil(t, after.LastSeen)
	assert.WithinDuration(t, time.Now(), *after.LastSeen, time.Minute)
}
