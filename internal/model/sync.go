package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Action enumerates the mutation kinds recorded in the change log.
type Action string

const (
	ActionCreate Action = "C"
	ActionUpdate Action = "U"
	ActionDelete Action = "D"
)

// Valid reports whether a is one of the three recorded mutation kinds.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// AckStatus enumerates the per-station delivery states of a change event.
type AckStatus string

const (
	AckPending      AckStatus = "P"
	AckAcknowledged AckStatus = "A"
)

// Station is a registered workstation that exchanges changes with the hub.
// Stations are themselves synchronized so every site knows the full roster.
type Station struct {
	SyncState
	ID        int        `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	LastSeen  *time.Time `json:"last_seen"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (s *Station) EntityTag() string { return TagStation }
func (s *Station) EntityPK() string  { return strconv.Itoa(s.ID) }

// StationCredential holds the API key a station presents on the sync
// endpoints plus the base address the hub would use to reach the station.
// One credential per station.
type StationCredential struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	StationID int       `gorm:"not null;uniqueIndex" json:"station_id"`
	Station   *Station  `gorm:"constraint:OnDelete:CASCADE" json:"station,omitempty"`
	APIKey    string    `gorm:"size:128;not null;uniqueIndex" json:"api_key"`
	BaseURL   string    `gorm:"size:512" json:"base_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChangeEvent is one immutable row in the change log. Payloads are stored
// verbatim as JSON; the event is the unit of distribution and is never
// updated after insert.
type ChangeEvent struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EntityTag       string         `gorm:"size:100;not null" json:"model"`
	ObjectID        string         `gorm:"size:64;not null" json:"object_id"`
	Action          Action         `gorm:"type:varchar(1);not null" json:"action"`
	Payload         datatypes.JSON `gorm:"type:jsonb" json:"data_payload"`
	Timestamp       time.Time      `gorm:"index;not null" json:"timestamp"`
	SourceStationID *int           `json:"source_station_id"`
	SourceStation   *Station       `gorm:"constraint:OnDelete:SET NULL" json:"-"`

	Acknowledgements []Acknowledgement `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the event identity and capture time when the caller
// left them unset.
func (e *ChangeEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}

// Acknowledgement tracks delivery of one change event to one station.
// Exactly one row exists per (event, station) destination; the only legal
// transition is pending to acknowledged.
type Acknowledgement struct {
	ID            int64        `gorm:"primaryKey" json:"id"`
	ChangeEventID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:ux_ack_event_station,priority:1" json:"change_event_id"`
	ChangeEvent   *ChangeEvent `json:"-"`
	StationID     int          `gorm:"not null;uniqueIndex:ux_ack_event_station,priority:2;index:idx_ack_station_status,priority:1" json:"station_id"`
	Station       *Station     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Status        AckStatus    `gorm:"type:varchar(1);not null;default:P;index:idx_ack_station_status,priority:2" json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	// AcknowledgedAt is set exactly once, when the station confirms receipt.
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
}
