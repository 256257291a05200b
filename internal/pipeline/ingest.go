package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/ledger"
	"orcsync.io/hub/internal/media"
	"orcsync.io/hub/internal/metrics"
	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/pkg/logger"
	"orcsync.io/hub/internal/registry"
)

// Ingestor applies pushed change batches. The first pass materializes each
// change's scalars and files and appends its fan-out event; the second pass
// resolves foreign keys and many-to-many sets once every referenced object
// has had its chance to be created.
type Ingestor struct {
	db    *gorm.DB
	reg   *registry.Registry
	led   *ledger.Ledger
	blobs media.Store
}

// NewIngestor creates an Ingestor over the shared database handle.
func NewIngestor(db *gorm.DB, reg *registry.Registry, led *ledger.Ledger, blobs media.Store) *Ingestor {
	return &Ingestor{db: db, reg: reg, led: led, blobs: blobs}
}

// Result sums up one applied batch.
type Result struct {
	Applied int
	Failed  int
}

// pendingRelations is the second-pass work queued for one applied object.
// Only the local primary key is kept; the instance is reloaded fresh so a
// retry after a crash picks up where it left off.
type pendingRelations struct {
	desc    *registry.Descriptor
	pk      string
	foreign map[string]string
	m2m     map[string][]string
}

// ApplyBatch applies every change pushed by the source station. A change
// that fails is logged and skipped, never blocking the rest of the batch,
// and produces no fan-out event. Re-running a batch is idempotent: applies
// converge on the same rows and re-appended events replace nothing.
func (in *Ingestor) ApplyBatch(ctx context.Context, sourceStationID int, changes []InboundChange) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.IngestBatchDuration.Observe(time.Since(start).Seconds())
	}()

	destinations, err := in.led.StationIDsExcept(ctx, sourceStationID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	var pending []pendingRelations
	for i := range changes {
		ch := &changes[i]
		pend, err := in.applyChange(ctx, sourceStationID, destinations, ch)
		if err != nil {
			res.Failed++
			metrics.ChangesFailed.Inc()
			logger.Error("change failed to apply",
				zap.String("model", ch.Model),
				zap.String("object_id", ch.ObjectID.String()),
				zap.String("action", ch.Action),
				zap.Int("source_station_id", sourceStationID),
				zap.Error(err))
			continue
		}
		res.Applied++
		metrics.ChangesApplied.WithLabelValues(ch.Action).Inc()
		if pend != nil {
			pending = append(pending, *pend)
		}
	}

	in.resolvePending(ctx, pending)
	return res, nil
}

// applyChange runs the first pass for one change. The applied rows, the
// fan-out event and its acknowledgements commit in a single transaction so
// an event can never exist without its change or its checklist.
func (in *Ingestor) applyChange(ctx context.Context, sourceID int, destinations []int, ch *InboundChange) (*pendingRelations, error) {
	d, ok := in.reg.Lookup(ch.Model)
	if !ok {
		return nil, fmt.Errorf("model %q is not registered", ch.Model)
	}
	pk := ch.ObjectID.String()
	if err := d.ValidatePK(pk); err != nil {
		return nil, err
	}

	var pend *pendingRelations
	err := in.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if model.Action(ch.Action) == model.ActionDelete {
			if _, err := d.Ops.DeleteByPK(ctx, tx, pk); err != nil {
				return err
			}
			return in.appendEvent(ctx, tx, sourceID, destinations, ch)
		}

		b, err := d.Classify(ch.DataPayload)
		if err != nil {
			return err
		}

		row, err := d.Ops.LoadByPK(ctx, tx, pk)
		if err != nil {
			return err
		}
		if row == nil {
			// The pushed key is unknown here; match on unique business
			// fields before creating, so two stations inventing the same
			// driver converge on one row.
			row, err = d.Ops.LookupByUnique(ctx, tx, b.Scalars)
			if err != nil {
				return err
			}
		}
		if row == nil {
			row, err = d.Ops.New(pk)
			if err != nil {
				return err
			}
		}
		row.MarkSyncOperation()
		if err := d.Ops.ApplyScalars(row, b.Scalars); err != nil {
			return err
		}
		if err := d.Ops.Save(ctx, tx, row); err != nil {
			return err
		}
		if err := in.applyFiles(ctx, tx, d, row, b.Files); err != nil {
			return err
		}

		if len(b.Foreign) > 0 || len(b.M2M) > 0 {
			pend = &pendingRelations{desc: d, pk: row.EntityPK(), foreign: b.Foreign, m2m: b.M2M}
		}
		return in.appendEvent(ctx, tx, sourceID, destinations, ch)
	})
	if err != nil {
		return nil, err
	}
	return pend, nil
}

// appendEvent records the fan-out event for an applied change: a fresh
// server-side id, the pushed payload verbatim, and one pending
// acknowledgement per destination.
func (in *Ingestor) appendEvent(ctx context.Context, tx *gorm.DB, sourceID int, destinations []int, ch *InboundChange) error {
	raw, err := json.Marshal(ch.DataPayload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	ev := &model.ChangeEvent{
		EntityTag:       ch.Model,
		ObjectID:        ch.ObjectID.String(),
		Action:          model.Action(ch.Action),
		Payload:         datatypes.JSON(raw),
		SourceStationID: &sourceID,
	}
	return in.led.AppendEvent(ctx, tx, ev, destinations)
}

// applyFiles stores pushed blobs and updates the row's media keys. A nil
// payload removes the stored blob; a replacement deletes the one it
// displaces. The row is saved once more to persist the key changes.
func (in *Ingestor) applyFiles(ctx context.Context, tx *gorm.DB, d *registry.Descriptor, row model.Entity, files map[string]*registry.FilePayload) error {
	if len(files) == 0 {
		return nil
	}
	for field, fp := range files {
		old, err := d.Ops.FileKey(row, field)
		if err != nil {
			return err
		}
		if fp == nil {
			if old == "" {
				continue
			}
			if err := in.blobs.Delete(ctx, old); err != nil {
				return err
			}
			if err := d.Ops.ApplyFile(row, field, ""); err != nil {
				return err
			}
			continue
		}
		key := media.Key(d.Tag, field, row.EntityPK(), fp.Filename)
		if err := in.blobs.Save(ctx, key, fp.Content); err != nil {
			return err
		}
		if old != "" && old != key {
			if err := in.blobs.Delete(ctx, old); err != nil {
				return err
			}
		}
		if err := d.Ops.ApplyFile(row, field, key); err != nil {
			return err
		}
	}
	return d.Ops.Save(ctx, tx, row)
}

// resolvePending runs the second pass. Each object's fix-up commits on its
// own; a missing relation target is skipped silently (the referencing side
// keeps its previous value) and a failed fix-up never takes the batch down.
func (in *Ingestor) resolvePending(ctx context.Context, pending []pendingRelations) {
	for i := range pending {
		p := &pending[i]
		if err := in.resolveOne(ctx, p); err != nil {
			logger.Warn("relation fix-up failed",
				zap.String("model", p.desc.Tag),
				zap.String("object_id", p.pk),
				zap.Error(err))
		}
	}
}

func (in *Ingestor) resolveOne(ctx context.Context, p *pendingRelations) error {
	return in.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := p.desc.Ops.LoadByPK(ctx, tx, p.pk)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("object vanished before relation fix-up")
		}
		row.MarkSyncOperation()
		for field, fkPK := range p.foreign {
			ok, err := p.desc.Ops.ResolveForeign(ctx, tx, row, field, fkPK)
			if err != nil {
				return err
			}
			if !ok {
				logger.Debug("relation target not found",
					zap.String("model", p.desc.Tag),
					zap.String("object_id", p.pk),
					zap.String("field", field),
					zap.String("target_pk", fkPK))
			}
		}
		if err := p.desc.Ops.Save(ctx, tx, row); err != nil {
			return err
		}
		for field, pks := range p.m2m {
			if err := p.desc.Ops.SetManyToMany(ctx, tx, row, field, pks); err != nil {
				return err
			}
		}
		return nil
	})
}
