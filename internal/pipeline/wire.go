// Package pipeline implements both halves of the synchronization engine:
// applying pushed batches to the database with fan-out events (ingest) and
// rendering pending events back into wire payloads (outbound). The wire
// types and batch validation shared by the API and the workers live here.
package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/registry"
)

// ObjectID is a wire primary key. Stations serialize integer keys as JSON
// numbers or strings interchangeably; both decode to the canonical string
// form the change log stores.
type ObjectID string

func (o *ObjectID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = ObjectID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*o = ObjectID(n.String())
		return nil
	}
	return fmt.Errorf("object_id must be a string or a number")
}

func (o ObjectID) String() string { return string(o) }

// InboundChange is one change item in a pushed batch.
type InboundChange struct {
	EventUUID   string         `json:"event_uuid"`
	Model       string         `json:"model"`
	Action      string         `json:"action"`
	ObjectID    ObjectID       `json:"object_id"`
	DataPayload map[string]any `json:"data_payload"`
}

// OutboundChange is one pending change event rendered for /get-pending.
type OutboundChange struct {
	ID          string         `json:"id"`
	Model       string         `json:"model"`
	Action      string         `json:"action"`
	ObjectID    string         `json:"object_id"`
	DataPayload map[string]any `json:"data_payload"`
	Timestamp   string         `json:"timestamp"`
}

// FieldErrors maps a field name to its validation messages, the error body
// shape station clients already parse.
type FieldErrors map[string][]string

func (e FieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// ValidateBatch checks every change against the enabled registry. The
// returned slice holds one entry per change, empty for valid items, and ok
// reports whether the whole batch passed. The pushed event_uuid is only
// validated here; fan-out events mint their own ids.
func ValidateBatch(reg *registry.Registry, changes []InboundChange) (perChange []FieldErrors, ok bool) {
	perChange = make([]FieldErrors, len(changes))
	ok = true
	for i, ch := range changes {
		e := FieldErrors{}
		switch {
		case ch.EventUUID == "":
			e.add("event_uuid", "This field is required.")
		default:
			if _, err := uuid.Parse(ch.EventUUID); err != nil {
				e.add("event_uuid", "Must be a valid UUID.")
			}
		}

		var desc *registry.Descriptor
		if ch.Model == "" {
			e.add("model", "This field is required.")
		} else if d, found := reg.Lookup(ch.Model); found {
			desc = d
		} else {
			e.add("model", fmt.Sprintf("Model '%s' not found or is not allowed to be synchronized.", ch.Model))
		}

		if !model.Action(ch.Action).Valid() {
			e.add("action", fmt.Sprintf("%q is not a valid choice.", ch.Action))
		}

		if ch.ObjectID == "" {
			e.add("object_id", "This field is required.")
		} else if desc != nil {
			if err := desc.ValidatePK(ch.ObjectID.String()); err != nil {
				e.add("object_id", err.Error())
			}
		}

		if ch.DataPayload == nil {
			e.add("data_payload", "This field is required.")
		}

		if len(e) > 0 {
			ok = false
		}
		perChange[i] = e
	}
	return perChange, ok
}
