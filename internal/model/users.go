package model

import (
	"strconv"
	"time"
)

// Group is a named permission group replicated across stations.
type Group struct {
	SyncState
	ID        int       `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (g *Group) EntityTag() string { return TagGroup }
func (g *Group) EntityPK() string  { return strconv.Itoa(g.ID) }

// User is an operator account replicated across stations. Passwords never
// travel through the sync channel; each site manages credentials locally.
type User struct {
	SyncState
	ID        int    `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email     string `gorm:"size:254" json:"email"`
	FirstName string `gorm:"size:150" json:"first_name"`
	LastName  string `gorm:"size:150" json:"last_name"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
	// ProfileImage holds the media store key of the avatar, empty when unset.
	ProfileImage string    `gorm:"size:512" json:"profile_image"`
	Groups       []Group   `gorm:"many2many:user_groups;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) EntityTag() string { return TagUser }
func (u *User) EntityPK() string  { return strconv.Itoa(u.ID) }
