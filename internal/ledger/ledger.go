// Package ledger persists the change log and its delivery checklist: every
// mutation becomes an immutable ChangeEvent, fanned out as one pending
// Acknowledgement per destination station.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
)

// Ledger reads and appends change events and acknowledgements.
type Ledger struct {
	db *gorm.DB
}

// New creates a Ledger on the shared database handle.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// AppendEvent inserts ev and one pending acknowledgement per destination
// station inside the caller's transaction, so an applied change, its event
// and its fan-out commit or roll back together.
func (l *Ledger) AppendEvent(ctx context.Context, tx *gorm.DB, ev *model.ChangeEvent, stationIDs []int) error {
	if err := tx.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("append change event: %w", err)
	}
	if len(stationIDs) == 0 {
		return nil
	}
	acks := make([]model.Acknowledgement, 0, len(stationIDs))
	for _, id := range stationIDs {
		acks = append(acks, model.Acknowledgement{ChangeEventID: ev.ID, StationID: id})
	}
	if err := tx.WithContext(ctx).Create(&acks).Error; err != nil {
		return fmt.Errorf("fan out acknowledgements for event %s: %w", ev.ID, err)
	}
	return nil
}

// StationIDs returns the ids of every registered station.
func (l *Ledger) StationIDs(ctx context.Context) ([]int, error) {
	var ids []int
	err := l.db.WithContext(ctx).
		Model(&model.Station{}).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list station ids: %w", err)
	}
	return ids, nil
}

// StationIDsExcept returns every station id but the given one. A pushed
// change never fans out back to its own source.
func (l *Ledger) StationIDsExcept(ctx context.Context, stationID int) ([]int, error) {
	var ids []int
	err := l.db.WithContext(ctx).
		Model(&model.Station{}).
		Where("id <> ?", stationID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list station ids except %d: %w", stationID, err)
	}
	return ids, nil
}

// PendingEventsFor returns the change events the station has not yet
// acknowledged, oldest first.
func (l *Ledger) PendingEventsFor(ctx context.Context, stationID int) ([]model.ChangeEvent, error) {
	var events []model.ChangeEvent
	err := l.db.WithContext(ctx).
		Joins("JOIN acknowledgements ON acknowledgements.change_event_id = change_events.id").
		Where("acknowledgements.station_id = ? AND acknowledgements.status = ?", stationID, model.AckPending).
		Order("change_events.timestamp").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("pending events for station %d: %w", stationID, err)
	}
	return events, nil
}

// FullyAcknowledgedEventIDs returns the ids of events originated by the
// station that no longer have any pending acknowledgement. The pusher polls
// these to learn its changes have reached every peer.
func (l *Ledger) FullyAcknowledgedEventIDs(ctx context.Context, stationID int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := l.db.WithContext(ctx).
		Model(&model.ChangeEvent{}).
		Where("source_station_id = ?", stationID).
		Where("NOT EXISTS (SELECT 1 FROM acknowledgements WHERE acknowledgements.change_event_id = change_events.id AND acknowledgements.status = ?)", model.AckPending).
		Order("timestamp").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("fully acknowledged events for station %d: %w", stationID, err)
	}
	return ids, nil
}

// Acknowledge flips the station's pending acknowledgements for the given
// events to acknowledged and stamps the confirmation time. Rows already
// acknowledged, owned by other stations, or naming unknown events are left
// untouched; the returned count is the number of rows actually flipped.
func (l *Ledger) Acknowledge(ctx context.Context, stationID int, eventIDs []uuid.UUID) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	res := l.db.WithContext(ctx).
		Model(&model.Acknowledgement{}).
		Where("station_id = ? AND change_event_id IN ? AND status = ?", stationID, eventIDs, model.AckPending).
		Updates(map[string]any{"status": model.AckAcknowledged, "acknowledged_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("acknowledge events for station %d: %w", stationID, res.Error)
	}
	return res.RowsAffected, nil
}

// TouchLastSeen records that the station just polled the hub.
func (l *Ledger) TouchLastSeen(ctx context.Context, stationID int) error {
	err := l.db.WithContext(ctx).
		Model(&model.Station{}).
		Where("id = ?", stationID).
		Update("last_seen", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("touch last_seen for station %d: %w", stationID, err)
	}
	return nil
}
