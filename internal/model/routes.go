package model

import (
	"database/sql"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// Path is a named corridor of stations trucks travel along.
type Path struct {
	SyncState
	ID        int       `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Path) EntityTag() string { return TagPath }
func (p *Path) EntityPK() string  { return strconv.Itoa(p.ID) }

// PathStation places a station on a path at an ordered position. A station
// appears at most once per path and each position is taken at most once.
type PathStation struct {
	SyncState
	ID        int       `gorm:"primaryKey" json:"id"`
	PathID    int       `gorm:"not null;uniqueIndex:ux_path_station,priority:1;uniqueIndex:ux_path_position,priority:1" json:"path_id"`
	Path      *Path     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	StationID int       `gorm:"not null;uniqueIndex:ux_path_station,priority:2" json:"station_id"`
	Station   *Station  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Position  int64     `gorm:"not null;uniqueIndex:ux_path_position,priority:2" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ps *PathStation) EntityTag() string { return TagPathStation }
func (ps *PathStation) EntityPK() string  { return strconv.Itoa(ps.ID) }

// BeforeCreate appends the station to the end of the path when no explicit
// position was chosen.
func (ps *PathStation) BeforeCreate(tx *gorm.DB) error {
	if ps.Position != 0 {
		return nil
	}
	var max sql.NullInt64
	err := tx.Model(&PathStation{}).
		Where("path_id = ?", ps.PathID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return err
	}
	ps.Position = max.Int64 + 1
	return nil
}
