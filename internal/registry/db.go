package registry

// Shared storage plumbing for the per-entity Ops implementations. The
// generic helpers keep each ops type down to its genuinely per-field code:
// scalar application, snapshots, and relation wiring.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"orcsync.io/hub/internal/model"
)

// pkValue parses a wire primary key into its column value.
func pkValue(kind PKKind, pk string) (any, error) {
	switch kind {
	case PKUUID:
		id, err := uuid.Parse(pk)
		if err != nil {
			return nil, fmt.Errorf("parse uuid key %q: %w", pk, err)
		}
		return id, nil
	default:
		n, err := strconv.Atoi(pk)
		if err != nil {
			return nil, fmt.Errorf("parse integer key %q: %w", pk, err)
		}
		return n, nil
	}
}

func loadByPK[T any](ctx context.Context, db *gorm.DB, kind PKKind, pk string) (*T, error) {
	key, err := pkValue(kind, pk)
	if err != nil {
		return nil, err
	}
	var row T
	err = db.WithContext(ctx).Where("id = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func lookupUnique[T any](ctx context.Context, db *gorm.DB, conds map[string]any) (*T, error) {
	var rows []T
	if err := db.WithContext(ctx).Where(conds).Limit(2).Find(&rows).Error; err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, ErrAmbiguousUnique
	}
}

// uniqueConds picks the unique columns present in scalars. Returns nil when
// none were sent, which callers treat as "nothing to look up".
func uniqueConds(scalars map[string]any, columns ...string) map[string]any {
	var conds map[string]any
	for _, c := range columns {
		if v, ok := scalars[c]; ok && v != nil {
			if conds == nil {
				conds = make(map[string]any)
			}
			conds[c] = v
		}
	}
	return conds
}

// saveEntity upserts through GORM's Save: update first, create when the
// row does not exist yet. Associations never piggyback on a save; relation
// writes go through ResolveForeign and SetManyToMany explicitly.
func saveEntity(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return db.WithContext(ctx).Omit(clause.Associations).Save(e).Error
}

func deleteByPK[T any](ctx context.Context, db *gorm.DB, kind PKKind, pk string) (bool, error) {
	key, err := pkValue(kind, pk)
	if err != nil {
		return false, err
	}
	res := db.WithContext(ctx).Where("id = ?", key).Delete(new(T))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// fieldErr wraps a per-field coercion failure.
func fieldErr(name string, err error) error {
	return fmt.Errorf("field %s: %w", name, err)
}

// cast narrows the Entity interface back to the concrete type an ops
// implementation owns.
func cast[T model.Entity](e model.Entity) (T, error) {
	v, ok := e.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("expected %T, got %T", zero, e)
	}
	return v, nil
}

// Snapshot value helpers.

// timeValue renders an optional timestamp.
func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

// fkInt renders an optional integer foreign key in wire form.
func fkInt(id *int) any {
	if id == nil {
		return nil
	}
	return strconv.Itoa(*id)
}

// fkUUID renders an optional UUID foreign key in wire form.
func fkUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// Embeddable defaults for entity types without fields of the given kind.

type noFileFields struct{}

func (noFileFields) ApplyFile(_ model.Entity, field, _ string) error {
	return fmt.Errorf("no file field %q", field)
}

func (noFileFields) FileKey(_ model.Entity, field string) (string, error) {
	return "", fmt.Errorf("no file field %q", field)
}

type noForeignFields struct{}

func (noForeignFields) ResolveForeign(_ context.Context, _ *gorm.DB, _ model.Entity, field, _ string) (bool, error) {
	return false, fmt.Errorf("no foreign field %q", field)
}

type noManyToMany struct{}

func (noManyToMany) SetManyToMany(_ context.Context, _ *gorm.DB, _ model.Entity, field string, _ []string) error {
	return fmt.Errorf("no many-to-many field %q", field)
}
