package registry

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
)

func fleetDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Tag: model.TagDriver,
			PK:  PKInt,
			Fields: []Field{
				{Name: "first_name", Kind: KindScalar},
				{Name: "last_name", Kind: KindScalar},
				{Name: "license_number", Kind: KindScalar, Unique: true},
				{Name: "phone_number", Kind: KindScalar},
				{Name: "license_issued_at", Kind: KindDateTime},
				{Name: "salary", Kind: KindDecimal},
				{Name: "photo", Kind: KindFile},
			},
			Ops: driverOps{},
		},
		{
			Tag: model.TagTruckOwner,
			PK:  PKInt,
			Fields: []Field{
				{Name: "name", Kind: KindScalar},
				{Name: "tin_number", Kind: KindScalar, Unique: true},
				{Name: "phone_number", Kind: KindScalar},
			},
			Ops: truckOwnerOps{},
		},
		{
			Tag: model.TagTruck,
			PK:  PKInt,
			Fields: []Field{
				{Name: "plate_number", Kind: KindScalar, Unique: true},
				{Name: "chassis_number", Kind: KindScalar, Unique: true},
				{Name: "model_name", Kind: KindScalar},
				{Name: "owner", Kind: KindForeign, Ref: model.TagTruckOwner},
			},
			Ops: truckOps{},
		},
	}
}

type driverOps struct {
	noForeignFields
	noManyToMany
}

func (driverOps) New(pk string) (model.Entity, error) {
	id, err := strconv.Atoi(pk)
	if err != nil {
		return nil, err
	}
	return &model.Driver{ID: id}, nil
}

func (driverOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.Driver](ctx, db, PKInt, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (driverOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	conds := uniqueConds(scalars, "license_number")
	if conds == nil {
		return nil, nil
	}
	row, err := lookupUnique[model.Driver](ctx, db, conds)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (driverOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	d, err := cast[*model.Driver](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "first_name":
			d.FirstName, err = AsString(v)
		case "last_name":
			d.LastName, err = AsString(v)
		case "license_number":
			d.LicenseNumber, err = AsString(v)
		case "phone_number":
			d.PhoneNumber, err = AsString(v)
		case "license_issued_at":
			d.LicenseIssuedAt, err = AsTimePtr(v)
		case "salary":
			d.Salary, err = AsDecimal(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (driverOps) ApplyFile(e model.Entity, field, key string) error {
	d, err := cast[*model.Driver](e)
	if err != nil {
		return err
	}
	if field != "photo" {
		return fmt.Errorf("no file field %q", field)
	}
	d.Photo = key
	return nil
}

func (driverOps) FileKey(e model.Entity, field string) (string, error) {
	d, err := cast[*model.Driver](e)
	if err != nil {
		return "", err
	}
	if field != "photo" {
		return "", fmt.Errorf("no file field %q", field)
	}
	return d.Photo, nil
}

func (driverOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (driverOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.Driver](ctx, db, PKInt, pk)
}

func (driverOps) Snapshot(e model.Entity, files FileResolver) (map[string]any, error) {
	d, err := cast[*model.Driver](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":                d.ID,
		"first_name":        d.FirstName,
		"last_name":         d.LastName,
		"license_number":    d.LicenseNumber,
		"phone_number":      d.PhoneNumber,
		"license_issued_at": timeValue(d.LicenseIssuedAt),
		"salary":            d.Salary.String(),
		"photo":             files.Resolve(d.Photo),
	}, nil
}

type truckOwnerOps struct {
	noFileFields
	noForeignFields
	noManyToMany
}

func (truckOwnerOps) New(pk string) (model.Entity, error) {
	id, err := strconv.Atoi(pk)
	if err != nil {
		return nil, err
	}
	return &model.TruckOwner{ID: id}, nil
}

func (truckOwnerOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.TruckOwner](ctx, db, PKInt, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (truckOwnerOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	conds := uniqueConds(scalars, "tin_number")
	if conds == nil {
		return nil, nil
	}
	row, err := lookupUnique[model.TruckOwner](ctx, db, conds)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (truckOwnerOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	o, err := cast[*model.TruckOwner](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "name":
			o.Name, err = AsString(v)
		case "tin_number":
			o.TINNumber, err = AsString(v)
		case "phone_number":
			o.PhoneNumber, err = AsString(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (truckOwnerOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (truckOwnerOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.TruckOwner](ctx, db, PKInt, pk)
}

func (truckOwnerOps) Snapshot(e model.Entity, _ FileResolver) (map[string]any, error) {
	o, err := cast[*model.TruckOwner](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":           o.ID,
		"name":         o.Name,
		"tin_number":   o.TINNumber,
		"phone_number": o.PhoneNumber,
	}, nil
}

type truckOps struct {
	noFileFields
	noManyToMany
}

func (truckOps) New(pk string) (model.Entity, error) {
	id, err := strconv.Atoi(pk)
	if err != nil {
		return nil, err
	}
	return &model.Truck{ID: id}, nil
}

func (truckOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.Truck](ctx, db, PKInt, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

// LookupByUnique matches on whichever of plate and chassis number were
// pushed; when both are present they must agree on the row.
func (truckOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	conds := uniqueConds(scalars, "plate_number", "chassis_number")
	if conds == nil {
		return nil, nil
	}
	row, err := lookupUnique[model.Truck](ctx, db, conds)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (truckOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	t, err := cast[*model.Truck](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "plate_number":
			t.PlateNumber, err = AsString(v)
		case "chassis_number":
			t.ChassisNumber, err = AsString(v)
		case "model_name":
			t.ModelName, err = AsString(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (truckOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (truckOps) ResolveForeign(ctx context.Context, db *gorm.DB, e model.Entity, field, pk string) (bool, error) {
	t, err := cast[*model.Truck](e)
	if err != nil {
		return false, err
	}
	switch field {
	case "owner":
		owner, err := loadByPK[model.TruckOwner](ctx, db, PKInt, pk)
		if err != nil {
			return false, err
		}
		if owner == nil {
			return false, nil
		}
		t.OwnerID = &owner.ID
		return true, nil
	}
	return false, fmt.Errorf("no foreign field %q", field)
}

func (truckOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.Truck](ctx, db, PKInt, pk)
}

func (truckOps) Snapshot(e model.Entity, _ FileResolver) (map[string]any, error) {
	t, err := cast[*model.Truck](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":             t.ID,
		"plate_number":   t.PlateNumber,
		"chassis_number": t.ChassisNumber,
		"model_name":     t.ModelName,
		"owner_id":       fkInt(t.OwnerID),
	}, nil
}
