package pipeline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/pkg/logger"
	"orcsync.io/hub/internal/registry"
)

// Serializer renders pending change events into wire payloads. Creates and
// updates re-serialize the object's current state so a station that polls
// late still receives the newest data; deletes and events whose object no
// longer exists fall back to the payload stored with the event.
type Serializer struct {
	db    *gorm.DB
	reg   *registry.Registry
	files registry.FileResolver
}

// NewSerializer creates a Serializer over the shared database handle.
func NewSerializer(db *gorm.DB, reg *registry.Registry, files registry.FileResolver) *Serializer {
	return &Serializer{db: db, reg: reg, files: files}
}

// Serialize renders one event. It never fails: any problem reading current
// state degrades to the stored payload so a poll always gets a full batch.
func (s *Serializer) Serialize(ctx context.Context, ev *model.ChangeEvent) OutboundChange {
	return OutboundChange{
		ID:          ev.ID.String(),
		Model:       ev.EntityTag,
		Action:      string(ev.Action),
		ObjectID:    ev.ObjectID,
		DataPayload: s.payload(ctx, ev),
		Timestamp:   registry.FormatTimestamp(ev.Timestamp),
	}
}

func (s *Serializer) payload(ctx context.Context, ev *model.ChangeEvent) map[string]any {
	if ev.Action == model.ActionDelete {
		return s.stored(ev)
	}
	d, ok := s.reg.Lookup(ev.EntityTag)
	if !ok {
		// Type disabled since the event was written; the snapshot taken at
		// capture time is still the best answer.
		return s.stored(ev)
	}
	row, err := d.Ops.LoadByPK(ctx, s.db, ev.ObjectID)
	if err != nil {
		logger.Warn("pending event: load current state failed",
			zap.String("event_id", ev.ID.String()),
			zap.String("model", ev.EntityTag),
			zap.String("object_id", ev.ObjectID),
			zap.Error(err))
		return s.stored(ev)
	}
	if row == nil {
		return s.stored(ev)
	}
	snap, err := d.Ops.Snapshot(row, s.files)
	if err != nil {
		logger.Warn("pending event: snapshot failed",
			zap.String("event_id", ev.ID.String()),
			zap.String("model", ev.EntityTag),
			zap.String("object_id", ev.ObjectID),
			zap.Error(err))
		return s.stored(ev)
	}
	return snap
}

func (s *Serializer) stored(ev *model.ChangeEvent) map[string]any {
	var m map[string]any
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &m); err != nil {
			logger.Warn("pending event: stored payload unreadable",
				zap.String("event_id", ev.ID.String()),
				zap.Error(err))
		}
	}
	if m == nil {
		m = map[string]any{}
	}
	return m
}
