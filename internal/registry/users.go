package registry

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
)

func userDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Tag: model.TagGroup,
			PK:  PKInt,
			Fields: []Field{
				{Name: "name", Kind: KindScalar, Unique: true},
			},
			Ops: groupOps{},
		},
		{
			Tag: model.TagUser,
			PK:  PKInt,
			Fields: []Field{
				{Name: "username", Kind: KindScalar, Unique: true},
				{Name: "email", Kind: KindScalar},
				{Name: "first_name", Kind: KindScalar},
				{Name: "last_name", Kind: KindScalar},
				{Name: "is_active", Kind: KindScalar},
				{Name: "profile_image", Kind: KindFile},
				{Name: "groups", Kind: KindManyToMany, Ref: model.TagGroup},
			},
			Ops: userOps{},
		},
	}
}

type groupOps struct {
	noFileFields
	noForeignFields
	noManyToMany
}

func (groupOps) New(pk string) (model.Entity, error) {
	id, err := strconv.Atoi(pk)
	if err != nil {
		return nil, err
	}
	return &model.Group{ID: id}, nil
}

func (groupOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.Group](ctx, db, PKInt, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (groupOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	conds := uniqueConds(scalars, "name")
	if conds == nil {
		return nil, nil
	}
	row, err := lookupUnique[model.Group](ctx, db, conds)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (groupOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	g, err := cast[*model.Group](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "name":
			g.Name, err = AsString(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (groupOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

func (groupOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.Group](ctx, db, PKInt, pk)
}

func (groupOps) Snapshot(e model.Entity, _ FileResolver) (map[string]any, error) {
	g, err := cast[*model.Group](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":   g.ID,
		"name": g.Name,
	}, nil
}

type userOps struct {
	noForeignFields
}

func (userOps) New(pk string) (model.Entity, error) {
	id, err := strconv.Atoi(pk)
	if err != nil {
		return nil, err
	}
	return &model.User{ID: id, IsActive: true}, nil
}

func (userOps) LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error) {
	row, err := loadByPK[model.User](ctx, db, PKInt, pk)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (userOps) LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error) {
	conds := uniqueConds(scalars, "username")
	if conds == nil {
		return nil, nil
	}
	row, err := lookupUnique[model.User](ctx, db, conds)
	if err != nil || row == nil {
		return nil, err
	}
	return row, nil
}

func (userOps) ApplyScalars(e model.Entity, scalars map[string]any) error {
	u, err := cast[*model.User](e)
	if err != nil {
		return err
	}
	for name, v := range scalars {
		var err error
		switch name {
		case "username":
			u.Username, err = AsString(v)
		case "email":
			u.Email, err = AsString(v)
		case "first_name":
			u.FirstName, err = AsString(v)
		case "last_name":
			u.LastName, err = AsString(v)
		case "is_active":
			u.IsActive, err = AsBool(v)
		}
		if err != nil {
			return fieldErr(name, err)
		}
	}
	return nil
}

func (userOps) ApplyFile(e model.Entity, field, key string) error {
	u, err := cast[*model.User](e)
	if err != nil {
		return err
	}
	if field != "profile_image" {
		return fmt.Errorf("no file field %q", field)
	}
	u.ProfileImage = key
	return nil
}

func (userOps) FileKey(e model.Entity, field string) (string, error) {
	u, err := cast[*model.User](e)
	if err != nil {
		return "", err
	}
	if field != "profile_image" {
		return "", fmt.Errorf("no file field %q", field)
	}
	return u.ProfileImage, nil
}

func (userOps) Save(ctx context.Context, db *gorm.DB, e model.Entity) error {
	return saveEntity(ctx, db, e)
}

// SetManyToMany replaces the user's group memberships. Group keys that do
// not resolve locally are dropped; a later push of the missing group will
// carry the memberships again.
func (userOps) SetManyToMany(ctx context.Context, db *gorm.DB, e model.Entity, field string, pks []string) error {
	u, err := cast[*model.User](e)
	if err != nil {
		return err
	}
	if field != "groups" {
		return fmt.Errorf("no many-to-many field %q", field)
	}
	ids := make([]int, 0, len(pks))
	for _, pk := range pks {
		id, err := strconv.Atoi(pk)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	var groups []model.Group
	if len(ids) > 0 {
		if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&groups).Error; err != nil {
			return err
		}
	}
	return db.WithContext(ctx).Model(u).Association("Groups").Replace(&groups)
}

func (userOps) DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error) {
	return deleteByPK[model.User](ctx, db, PKInt, pk)
}

func (userOps) Snapshot(e model.Entity, files FileResolver) (map[string]any, error) {
	u, err := cast[*model.User](e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.Email,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"is_active":     u.IsActive,
		"profile_image": files.Resolve(u.ProfileImage),
	}, nil
}
