package registry

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
)

func routeDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Tag: model.TagPath,
			PK:  PKInt,
			Fields: []Field{
				{Name: "name", Kind: KindScalar},
			},
			Ops: pathOps{},
		},
		{
			Tag: model.TagPathStation,
			PK:  PKInt,
			Fields: []Field{
				{Name: "path", Kind: KindForeign, Ref: model.TagPath},
				{Name: "station", Kind: KindForeign, Ref: model.TagStation},
				{Name: "position", Kind: KindScalar},
			},
			Ops: pathStationOps{},
		},
	}
}

type pathOps struct {
	noFileFields
	noForeignFields
	noManyToMany
}

func (pathOps) New(pk string) (model.Entity, error) {
	id, err := strconv.Atoi(pk)
	if err != nil {
		return nil, err
	}
	return &model.Path{ID: id}, nil
}

func (pathOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.Path](ctx, db, PKInt, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (pathOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	return nil, nil // path names repeat across corridors
}

func (pathOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	p, err := cast[*model.Path](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "name":
			p.Name, err = AsString(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (pathOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (pathOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.Path](ctx, db, PKInt, pk)
}

func (pathOps) Snapshot(e model.Entity, _ FileResolver) (map[string]any, error) {
	p, err := cast[*model.Path](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":   p.ID,
		"name": p.Name,
	}, nil
}

type pathStationOps struct {
	noFileFields
	noManyToMany
}

func (pathStationOps) New(pk string) (model.Entity, error) {
	id, err := strconv.Atoi(pk)
	if err != nil {
		return nil, err
	}
	return &model.PathStation{ID: id}, nil
}

func (pathStationOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.PathStation](ctx, db, PKInt, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (pathStationOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	return nil, nil // identity is the (path, station) pair, resolved by pk only
}

func (pathStationOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	ps, err := cast[*model.PathStation](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		switch name {
		case "position":
			n, err := AsInt(v)
			if err != nil {
				return fieldErr(name, err)
			}
			ps.Position = int64(n)
		}
	}
	return nil
}

func (pathStationOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (pathStationOps) ResolveForeign(ctx context.Context, db *gorm.DB, e model.Entity, field, pk string) (bool, error) {
	ps, err := cast[*model.PathStation](e)
	if err != nil {
		return false, err
	}
	switch field {
	case "path":
		row, err := loadByPK[model.Path](ctx, db, PKInt, pk)
		if err != nil || row == nil {
			return false, err
		}
		ps.PathID = row.ID
		return true, nil
	case "station":
		row, err := loadByPK[model.Station](ctx, db, PKInt, pk)
		if err != nil || row == nil {
			return false, err
		}
		ps.StationID = row.ID
		return true, nil
	}
	return false, fmt.Errorf("no foreign field %q", field)
}

func (pathStationOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.PathStation](ctx, db, PKInt, pk)
}

func (pathStationOps) Snapshot(e model.Entity, _ FileResolver) (map[string]any, error) {
	ps, err := cast[*model.PathStation](e)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"id":       ps.ID,
		"position": ps.Position,
	}
	if ps.PathID != 0 {
		payload["path_id"] = strconv.Itoa(ps.PathID)
	} else {
		payload["path_id"] = nil
	}
	if ps.StationID != 0 {
		payload["station_id"] = strconv.Itoa(ps.StationID)
	} else {
		payload["station_id"] = nil
	}
	return payload, nil
}
