// Package registry holds the explicit descriptor table for every entity
// type the hub synchronizes. A descriptor names the wire schema of a type
// (field kinds, unique fields, foreign targets) and carries a hand-written
// Ops implementation; the sync engine works exclusively through these.
// Nothing in the hot path walks struct fields at runtime.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
)

// ErrAmbiguousUnique reports that unique-field fallback matched several rows.
var ErrAmbiguousUnique = errors.New("unique field lookup matched multiple rows")

// PKKind is the primary key family of an entity type.
type PKKind int

const (
	PKInt PKKind = iota
	PKUUID
)

// FieldKind is the wire classification of one entity attribute.
type FieldKind int

const (
	// KindScalar covers strings, booleans and integers applied verbatim.
	KindScalar FieldKind = iota
	// KindDateTime values travel as ISO-8601 strings.
	KindDateTime
	// KindDecimal values travel as strings to keep precision.
	KindDecimal
	// KindForeign values travel as the target's primary key under
	// "<name>_id" and are fixed up in the second ingestion pass.
	KindForeign
	// KindManyToMany values travel as a list of target primary keys on
	// inbound changes only; snapshots omit them.
	KindManyToMany
	// KindFile values travel as {filename, content} inline blobs on push
	// and as absolute URLs on pull.
	KindFile
)

// Field describes one synchronized attribute of an entity type.
type Field struct {
	Name string
	Kind FieldKind
	// Unique marks fields used for fallback resolution when a pushed
	// primary key is unknown locally.
	Unique bool
	// Ref is the registry tag of the target type for Foreign and
	// ManyToMany fields.
	Ref string
}

// FileResolver renders a stored media key into its payload form. The hub
// always serializes files as absolute URLs; an empty key resolves to nil.
type FileResolver interface {
	Resolve(key string) any
}

// Ops is the capability surface the sync engine uses to manipulate one
// entity type. Implementations are hand-written per type.
type Ops interface {
	// New returns a fresh instance with the primary key applied.
	New(pk string) (model.Entity, error)
	// LoadByPK fetches by primary key, returning (nil, nil) when absent.
	LoadByPK(ctx context.Context, db *gorm.DB, pk string) (model.Entity, error)
	// LookupByUnique resolves an instance through whichever unique fields
	// are present in scalars, returning (nil, nil) when none match or no
	// unique fields were sent. Matching more than one row is an error
	// (ErrAmbiguousUnique).
	LookupByUnique(ctx context.Context, db *gorm.DB, scalars map[string]any) (model.Entity, error)
	// ApplyScalars copies decoded scalar values onto the instance.
	ApplyScalars(e model.Entity, scalars map[string]any) error
	// ApplyFile stores the media key for a file field; an empty key clears it.
	ApplyFile(e model.Entity, field, key string) error
	// FileKey returns the currently stored media key for a file field.
	FileKey(e model.Entity, field string) (string, error)
	// Save persists the instance, inserting or updating as needed.
	Save(ctx context.Context, db *gorm.DB, e model.Entity) error
	// ResolveForeign points a foreign key field at the row with the given
	// primary key. Returns false without error when the target is absent.
	ResolveForeign(ctx context.Context, db *gorm.DB, e model.Entity, field, pk string) (bool, error)
	// SetManyToMany replaces a many-to-many collection with the rows named
	// by pks; unknown targets are dropped.
	SetManyToMany(ctx context.Context, db *gorm.DB, e model.Entity, field string, pks []string) error
	// DeleteByPK removes the row, reporting whether it existed.
	DeleteByPK(ctx context.Context, db *gorm.DB, pk string) (bool, error)
	// Snapshot serializes the instance into a wire payload.
	Snapshot(e model.Entity, files FileResolver) (map[string]any, error)
}

// Descriptor binds an entity tag to its wire schema and capability ops.
type Descriptor struct {
	Tag    string
	PK     PKKind
	Fields []Field
	Ops    Ops
}

// Field returns the descriptor field matching a payload key. A key with an
// "_id" suffix matches the foreign field of the bare name, mirroring how
// snapshots encode foreign keys. An exact field name always wins.
func (d *Descriptor) Field(key string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == key {
			return f, true
		}
	}
	if name, ok := strings.CutSuffix(key, "_id"); ok {
		for _, f := range d.Fields {
			if f.Name == name && f.Kind == KindForeign {
				return f, true
			}
		}
	}
	return Field{}, false
}

// ValidatePK checks that a wire primary key parses for the descriptor's
// key kind.
func (d *Descriptor) ValidatePK(objectID string) error {
	switch d.PK {
	case PKUUID:
		if _, err := uuid.Parse(objectID); err != nil {
			return fmt.Errorf("object_id %q is not a valid UUID", objectID)
		}
	default:
		if _, err := strconv.ParseInt(objectID, 10, 64); err != nil {
			return fmt.Errorf("object_id %q is not a valid integer key", objectID)
		}
	}
	return nil
}

// Registry is the set of entity types enabled for synchronization, usually
// a configured subset of the built-in catalog.
type Registry struct {
	descriptors map[string]*Descriptor
	tags        []string
}

// New builds a registry from configured tags. Unknown tags are rejected so
// a typo in SYNCHRONIZABLE_MODELS fails startup instead of silently
// dropping a type.
func New(tags []string) (*Registry, error) {
	catalog := builtin()
	r := &Registry{descriptors: make(map[string]*Descriptor, len(tags))}
	for _, tag := range tags {
		d, ok := catalog[tag]
		if !ok {
			return nil, fmt.Errorf("unknown synchronizable model %q", tag)
		}
		if _, dup := r.descriptors[tag]; dup {
			continue
		}
		r.descriptors[tag] = d
		r.tags = append(r.tags, tag)
	}
	if len(r.tags) == 0 {
		return nil, errors.New("no synchronizable models configured")
	}
	return r, nil
}

// Default returns a registry containing every built-in entity type.
func Default() *Registry {
	r, err := New(AllTags())
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the descriptor for a tag.
func (r *Registry) Lookup(tag string) (*Descriptor, bool) {
	d, ok := r.descriptors[tag]
	return d, ok
}

// Tags returns the enabled tags in registration order.
func (r *Registry) Tags() []string {
	out := make([]string, len(r.tags))
	copy(out, r.tags)
	return out
}
