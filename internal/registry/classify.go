package registry

import "fmt"

// Buckets is a payload split by how each value is applied: scalars and
// files in the first ingestion pass, relations in the second.
type Buckets struct {
	Scalars map[string]any
	// Files maps field name to decoded content; a nil entry means the
	// stored file must be removed.
	Files   map[string]*FilePayload
	Foreign map[string]string
	M2M     map[string][]string
}

// Classify splits a payload according to the descriptor. Unknown keys and
// null values are dropped: a null never clears an attribute, and keys a
// newer station sends that this hub does not know yet must not break the
// change. The identity keys "id" and "pk" are ignored; identity comes from
// the change's object_id.
func (d *Descriptor) Classify(payload map[string]any) (*Buckets, error) {
	b := &Buckets{
		Scalars: make(map[string]any),
		Files:   make(map[string]*FilePayload),
		Foreign: make(map[string]string),
		M2M:     make(map[string][]string),
	}
	for key, value := range payload {
		if key == "id" || key == "pk" {
			continue
		}
		f, ok := d.Field(key)
		if !ok {
			continue
		}
		if value == nil {
			continue
		}
		switch f.Kind {
		case KindForeign:
			pk, err := AsPK(value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", key, err)
			}
			b.Foreign[f.Name] = pk
		case KindManyToMany:
			list, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("field %s: expected list, got %T", key, value)
			}
			pks := make([]string, 0, len(list))
			for _, item := range list {
				pk, err := AsPK(item)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", key, err)
				}
				pks = append(pks, pk)
			}
			b.M2M[f.Name] = pks
		case KindFile:
			switch fv := value.(type) {
			case string:
				// A URL echoed back from an earlier pull; the blob it
				// names lives here already, leave the stored file alone.
			case map[string]any:
				fp, err := decodeInlineFile(fv)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", key, err)
				}
				b.Files[f.Name] = fp
			default:
				return nil, fmt.Errorf("field %s: unsupported file value %T", key, value)
			}
		case KindDateTime:
			t, err := AsTime(value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", key, err)
			}
			b.Scalars[f.Name] = t
		case KindDecimal:
			dec, err := AsDecimal(value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", key, err)
			}
			b.Scalars[f.Name] = dec
		default:
			b.Scalars[f.Name] = value
		}
	}
	return b, nil
}
