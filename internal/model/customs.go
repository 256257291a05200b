package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Commodity is a customs commodity classification.
type Commodity struct {
	SyncState
	ID        int       `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	HSCode    string    `gorm:"size:32" json:"hs_code"`
	Unit      string    `gorm:"size:32" json:"unit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Commodity) EntityTag() string { return TagCommodity }
func (c *Commodity) EntityPK() string  { return strconv.Itoa(c.ID) }

// PaymentMethod is a customs duty payment channel.
type PaymentMethod struct {
	SyncState
	ID        int       `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Code      string    `gorm:"size:32;not null;uniqueIndex" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *PaymentMethod) EntityTag() string { return TagPaymentMethod }
func (p *PaymentMethod) EntityPK() string  { return strconv.Itoa(p.ID) }

// Declaration is a customs declaration. Declarations are created at any
// station, so the primary key is a UUID minted at the origin. The foreign
// keys are nullable: a declaration may arrive before the rows it references
// and gets fixed up once they do.
type Declaration struct {
	SyncState
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Number          string          `gorm:"size:64;not null;uniqueIndex" json:"number"`
	DeclaredAt      time.Time       `json:"declared_at"`
	TotalValue      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_value"`
	ExporterName    string          `gorm:"size:255" json:"exporter_name"`
	CommodityID     *int            `json:"commodity_id"`
	Commodity       *Commodity      `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	PaymentMethodID *int            `json:"payment_method_id"`
	PaymentMethod   *PaymentMethod  `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	TruckID         *int            `json:"truck_id"`
	Truck           *Truck          `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (d *Declaration) EntityTag() string { return TagDeclaration }
func (d *Declaration) EntityPK() string  { return d.ID.String() }

// BeforeCreate mints the origin UUID for locally created declarations.
func (d *Declaration) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// CheckIn records a truck presenting a declaration at a station.
type CheckIn struct {
	SyncState
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	DeclarationID *uuid.UUID   `gorm:"type:uuid" json:"declaration_id"`
	Declaration   *Declaration `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	StationID     *int         `json:"station_id"`
	Station       *Station     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CheckedInAt   time.Time    `json:"checked_in_at"`
	Note          string       `gorm:"size:512" json:"note"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (c *CheckIn) EntityTag() string { return TagCheckIn }
func (c *CheckIn) EntityPK() string  { return c.ID.String() }

// BeforeCreate mints the origin UUID for locally created check-ins.
func (c *CheckIn) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
