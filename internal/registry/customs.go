package registry

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
)

func customsDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Tag: model.TagCommodity,
			PK:  PKInt,
			Fields: []Field{
				{Name: "name", Kind: KindScalar, Unique: true},
				{Name: "hs_code", Kind: KindScalar},
				{Name: "unit", Kind: KindScalar},
			},
			Ops: commodityOps{},
		},
		{
			Tag: model.TagPaymentMethod,
			PK:  PKInt,
			Fields: []Field{
				{Name: "name", Kind: KindScalar, Unique: true},
				{Name: "code", Kind: KindScalar, Unique: true},
			},
			Ops: paymentMethodOps{},
		},
		{
			Tag: model.TagDeclaration,
			PK:  PKUUID,
			Fields: []Field{
				{Name: "number", Kind: KindScalar, Unique: true},
				{Name: "declared_at", Kind: KindDateTime},
				{Name: "total_value", Kind: KindDecimal},
				{Name: "exporter_name", Kind: KindScalar},
				{Name: "commodity", Kind: KindForeign, Ref: model.TagCommodity},
				{Name: "payment_method", Kind: KindForeign, Ref: model.TagPaymentMethod},
				{Name: "truck", Kind: KindForeign, Ref: model.TagTruck},
			},
			Ops: declarationOps{},
		},
		{
			Tag: model.TagCheckIn,
			PK:  PKUUID,
			Fields: []Field{
				{Name: "declaration", Kind: KindForeign, Ref: model.TagDeclaration},
				{Name: "station", Kind: KindForeign, Ref: model.TagStation},
				{Name: "checked_in_at", Kind: KindDateTime},
				{Name: "note", Kind: KindScalar},
			},
			Ops: checkInOps{},
		},
	}
}

type commodityOps struct {
	noFileFields
	noForeignFields
	noManyToMany
}

func (commodityOps) New(pk string) (model.Entity, error) {
	id, err := strconv.Atoi(pk)
	if err != nil {
		return nil, err
	}
	return &model.Commodity{ID: id}, nil
}

func (commodityOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.Commodity](ctx, db, PKInt, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (commodityOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	conds := uniqueConds(scalars, "name")
	if conds == nil {
		return nil, nil
	}
	row, err := lookupUnique[model.Commodity](ctx, db, conds)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (commodityOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	c, err := cast[*model.Commodity](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "name":
			c.Name, err = AsString(v)
		case "hs_code":
			c.HSCode, err = AsString(v)
		case "unit":
			c.Unit, err = AsString(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (commodityOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (commodityOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.Commodity](ctx, db, PKInt, pk)
}

func (commodityOps) Snapshot(e model.Entity, _ FileResolver) (map[string]any, error) {
	c, err := cast[*model.Commodity](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":      c.ID,
		"name":    c.Name,
		"hs_code": c.HSCode,
		"unit":    c.Unit,
	}, nil
}

type paymentMethodOps struct {
	noFileFields
	noForeignFields
	noManyToMany
}

func (paymentMethodOps) New(pk string) (model.Entity, error) {
	id, err := strconv.Atoi(pk)
	if err != nil {
		return nil, err
	}
	return &model.PaymentMethod{ID: id}, nil
}

func (paymentMethodOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.PaymentMethod](ctx, db, PKInt, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (paymentMethodOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	conds := uniqueConds(scalars, "name", "code")
	if conds == nil {
		return nil, nil
	}
	row, err := lookupUnique[model.PaymentMethod](ctx, db, conds)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (paymentMethodOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	p, err := cast[*model.PaymentMethod](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "name":
			p.Name, err = AsString(v)
		case "code":
			p.Code, err = AsString(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (paymentMethodOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (paymentMethodOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.PaymentMethod](ctx, db, PKInt, pk)
}

func (paymentMethodOps) Snapshot(e model.Entity, _ FileResolver) (map[string]any, error) {
	p, err := cast[*model.PaymentMethod](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":   p.ID,
		"name": p.Name,
		"code": p.Code,
	}, nil
}

type declarationOps struct {
	noFileFields
	noManyToMany
}

func (declarationOps) New(pk string) (model.Entity, error) {
	id, err := uuid.Parse(pk)
	if err != nil {
		return nil, err
	}
	return &model.Declaration{ID: id}, nil
}

func (declarationOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.Declaration](ctx, db, PKUUID, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (declarationOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	conds := uniqueConds(scalars, "number")
	if conds == nil {
		return nil, nil
	}
	row, err := lookupUnique[model.Declaration](ctx, db, conds)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (declarationOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	d, err := cast[*model.Declaration](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "number":
			d.Number, err = AsString(v)
		case "declared_at":
			d.DeclaredAt, err = AsTime(v)
		case "total_value":
			d.TotalValue, err = AsDecimal(v)
		case "exporter_name":
			d.ExporterName, err = AsString(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (declarationOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (declarationOps) ResolveForeign(ctx context.Context, db *gorm.DB, e model.Entity, field, pk string) (bool, error) {
	d, err := cast[*model.Declaration](e)
	if err != nil {
		return false, err
	}
	switch field {
	case "commodity":
		row, err := loadByPK[model.Commodity](ctx, db, PKInt, pk)
		if err != nil || row == nil {
			return false, err
		}
		d.CommodityID = &row.ID
		return true, nil
	case "payment_method":
		row, err := loadByPK[model.PaymentMethod](ctx, db, PKInt, pk)
		if err != nil || row == nil {
			return false, err
		}
		d.PaymentMethodID = &row.ID
		return true, nil
	case "truck":
		row, err := loadByPK[model.Truck](ctx, db, PKInt, pk)
		if err != nil || row == nil {
			return false, err
		}
		d.TruckID = &row.ID
		return true, nil
	}
	return false, fmt.Errorf("no foreign field %q", field)
}

func (declarationOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.Declaration](ctx, db, PKUUID, pk)
}

func (declarationOps) Snapshot(e model.Entity, _ FileResolver) (map[string]any, error) {
	d, err := cast[*model.Declaration](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":                d.ID.String(),
		"number":            d.Number,
		"declared_at":       FormatTime(d.DeclaredAt),
		"total_value":       d.TotalValue.String(),
		"exporter_name":     d.ExporterName,
		"commodity_id":      fkInt(d.CommodityID),
		"payment_method_id": fkInt(d.PaymentMethodID),
		"truck_id":          fkInt(d.TruckID),
	}, nil
}

type checkInOps struct {
	noFileFields
	noManyToMany
}

func (checkInOps) New(pk string) (model.Entity, error) {
	id, err := uuid.Parse(pk)
	if err != nil {
		return nil, err
	}
	return &model.CheckIn{ID: id}, nil
}

func (checkInOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.CheckIn](ctx, db, PKUUID, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (checkInOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	return nil, nil // check-ins carry no unique business fields
}

func (checkInOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	c, err := cast[*model.CheckIn](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "checked_in_at":
			c.CheckedInAt, err = AsTime(v)
		case "note":
			c.Note, err = AsString(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (checkInOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (checkInOps) ResolveForeign(ctx context.Context, db *gorm.DB, e model.Entity, field, pk string) (bool, error) {
	c, err := cast[*model.CheckIn](e)
	if err != nil {
		return false, err
	}
	switch field {
	case "declaration":
		row, err := loadByPK[model.Declaration](ctx, db, PKUUID, pk)
		if err != nil || row == nil {
			return false, err
		}
		c.DeclarationID = &row.ID
		return true, nil
	case "station":
		row, err := loadByPK[model.Station](ctx, db, PKInt, pk)
		if err != nil || row == nil {
			return false, err
		}
		c.StationID = &row.ID
		return true, nil
	}
	return false, fmt.Errorf("no foreign field %q", field)
}

func (checkInOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.CheckIn](ctx, db, PKUUID, pk)
}

func (checkInOps) Snapshot(e model.Entity, _ FileResolver) (map[string]any, error) {
	c, err := cast[*model.CheckIn](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":             c.ID.String(),
		"declaration_id": fkUUID(c.DeclarationID),
		"station_id":     fkInt(c.StationID),
		"checked_in_at":  FormatTime(c.CheckedInAt),
		"note":           c.Note,
	}, nil
}
