// Package repository is the write-through persistence adapter for local
// domain mutations: each create, update or delete persists the row and,
// when the type is registered for synchronization, captures the change for
// asynchronous distribution to every station.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/pkg/logger"
	"orcsync.io/hub/internal/registry"
)

// CaptureEnqueuer schedules the asynchronous distribution of one captured
// change. The jobs package implements it on River.
type CaptureEnqueuer interface {
	EnqueueCapture(ctx context.Context, tag, objectID string, action model.Action, payload json.RawMessage) error
}

// Repository persists domain entities and captures their changes. Types not
// enabled for synchronization are persisted without capture, as are writes
// flagged with the in-flight sync marker: the ingestion pipeline must never
// re-capture the very change it is applying.
type Repository struct {
	db      *gorm.DB
	reg     *registry.Registry
	files   registry.FileResolver
	capture CaptureEnqueuer
}

// New creates a Repository on the shared database handle.
func New(db *gorm.DB, reg *registry.Registry, files registry.FileResolver, capture CaptureEnqueuer) *Repository {
	return &Repository{db: db, reg: reg, files: files, capture: capture}
}

// Create persists a new entity and captures it.
func (r *Repository) Create(ctx context.Context, e model.Entity) error {
	return r.mutate(ctx, e, model.ActionCreate)
}

// Update persists an existing entity and captures the new state.
func (r *Repository) Update(ctx context.Context, e model.Entity) error {
	return r.mutate(ctx, e, model.ActionUpdate)
}

// Delete removes an entity and captures the deletion. The payload is the
// last serialized state before the row disappears, so stations can still
// identify what was removed.
func (r *Repository) Delete(ctx context.Context, e model.Entity) error {
	return r.mutate(ctx, e, model.ActionDelete)
}

func (r *Repository) mutate(ctx context.Context, e model.Entity, action model.Action) error {
	d, registered := r.reg.Lookup(e.EntityTag())
	capture := registered && !e.InSyncOperation()

	var payload json.RawMessage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if action == model.ActionDelete {
			if capture {
				var err error
				if payload, err = r.snapshot(d, e); err != nil {
					return err
				}
			}
			return tx.Delete(e).Error
		}
		if err := tx.Omit(clause.Associations).Save(e).Error; err != nil {
			return err
		}
		if capture {
			// Snapshot after the save so a fresh serial key is included.
			var err error
			if payload, err = r.snapshot(d, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", verb(action), e.EntityTag(), err)
	}
	if !capture {
		return nil
	}

	// The row is committed either way; a failed enqueue means the change
	// will not propagate, which the caller has to hear about.
	if err := r.capture.EnqueueCapture(ctx, e.EntityTag(), e.EntityPK(), action, payload); err != nil {
		logger.Error("capture enqueue failed, change will not propagate",
			zap.String("model", e.EntityTag()),
			zap.String("object_id", e.EntityPK()),
			zap.String("action", string(action)),
			zap.Error(err))
		return fmt.Errorf("enqueue capture for %s %s: %w", e.EntityTag(), e.EntityPK(), err)
	}
	return nil
}

func (r *Repository) snapshot(d *registry.Descriptor, e model.Entity) (json.RawMessage, error) {
	snap, err := d.Ops.Snapshot(e, r.files)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s %s: %w", d.Tag, e.EntityPK(), err)
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return raw, nil
}

func verb(a model.Action) string {
	switch a {
	case model.ActionCreate:
		return "create"
	case model.ActionUpdate:
		return "update"
	default:
		return "delete"
	}
}
