package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultMaxMembers = 100
	MaxMembersLimit   = 1000
)

type Room struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:255;not null"`
	Slug        string    `gorm:"size:64;uniqueIndex;not null"`
	Description string    `gorm:"type:text"`
	IsPrivate   bool      `gorm:"not null;default:false"`
	MaxMembers  int       `gorm:"not null;default:100;check:max_members > 0"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time

	Creator User   `gorm:"foreignKey:CreatedBy"`
	Members []User `gorm:"many2many:room_members"`

	// MemberCount is filled by listing queries, it is not a column.
	MemberCount int64 `gorm:"->;-:migration"`
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	return assignID(&r.ID)
}

// HasMember reports whether userID is in the loaded member set.
func (r *Room) HasMember(userID uuid.UUID) bool {
	for _, member := range r.Members {
		if member.ID == userID {
			return true
		}
	}
	return false
}

// RoomMember is the join table behind Room.Members.
type RoomMember struct {
	RoomID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
}
