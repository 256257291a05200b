package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Driver is licensed driving personnel. Any station may register drivers;
// the license number is the cross-station identity.
type Driver struct {
	SyncState
	ID              int             `gorm:"primaryKey" json:"id"`
	FirstName       string          `gorm:"size:150;not null" json:"first_name"`
	LastName        string          `gorm:"size:150;not null" json:"last_name"`
	LicenseNumber   string          `gorm:"size:64;not null;uniqueIndex" json:"license_number"`
	PhoneNumber     string          `gorm:"size:32" json:"phone_number"`
	LicenseIssuedAt *time.Time      `json:"license_issued_at"`
	Salary          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"salary"`
	// Photo holds the media store key of the driver photo, empty when unset.
	Photo     string    `gorm:"size:512" json:"photo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Driver) EntityTag() string { return TagDriver }
func (d *Driver) EntityPK() string  { return strconv.Itoa(d.ID) }

// TruckOwner is the registered owner of one or more trucks. The tax
// identification number is the cross-station identity.
type TruckOwner struct {
	SyncState
	ID          int       `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	TINNumber   string    `gorm:"size:64;not null;uniqueIndex" json:"tin_number"`
	PhoneNumber string    `gorm:"size:32" json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (o *TruckOwner) EntityTag() string { return TagTruckOwner }
func (o *TruckOwner) EntityPK() string  { return strconv.Itoa(o.ID) }

// Truck is a registered vehicle. Both the plate and the chassis number are
// unique; either one resolves the truck when a pushed primary key is
// unknown locally.
type Truck struct {
	SyncState
	ID            int         `gorm:"primaryKey" json:"id"`
	PlateNumber   string      `gorm:"size:32;not null;uniqueIndex" json:"plate_number"`
	ChassisNumber string      `gorm:"size:64;not null;uniqueIndex" json:"chassis_number"`
	ModelName     string      `gorm:"size:128" json:"model_name"`
	OwnerID       *int        `json:"owner_id"`
	Owner         *TruckOwner `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (t *Truck) EntityTag() string { return TagTruck }
func (t *Truck) EntityPK() string  { return strconv.Itoa(t.ID) }
