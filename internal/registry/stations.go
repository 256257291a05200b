package registry

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
)

// The station roster replicates everywhere so every site knows its peers.

func stationDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Tag: model.TagStation,
			PK:  PKInt,
			Fields: []Field{
				{Name: "name", Kind: KindScalar},
				{Name: "last_seen", Kind: KindDateTime},
			},
			Ops: stationOps{},
		},
	}
}

type stationOps struct {
	noFileFields
	noForeignFields
	noManyToMany
}

func (stationOps) New(pk string) (model.Entity, error) {
	id, err := strconv.Atoi(pk)
	if err != nil {
		return nil, err
	}
	return &model.Station{ID: id}, nil
}

func (stationOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.Station](ctx, db, PKInt, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (stationOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	return nil, nil // stations have no unique business fields
}

func (stationOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	s, err := cast[*model.Station](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "name":
			s.Name, err = AsString(v)
		case "last_seen":
			s.LastSeen, err = AsTimePtr(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (stationOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (stationOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.Station](ctx, db, PKInt, pk)
}

func (stationOps) Snapshot(e model.Entity, _ FileResolver) (map[string]any, error) {
	s, err := cast[*model.Station](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":        s.ID,
		"name":      s.Name,
		"last_seen": timeValue(s.LastSeen),
	}, nil
}
