package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is provisioned by the external identity provider; this service only references it.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username   string    `gorm:"uniqueIndex;not null"`
	Email      string    `gorm:"uniqueIndex;not null"`
	FirstName  string
	LastName   string
	AvatarURL  string
	LastSeenAt time.Time
	CreatedAt  time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error {
	return assignID(&u.ID)
}

// assignID fills a zero id with a time-ordered UUID so that id order follows insertion order.
func assignID(id *uuid.UUID) error {
	if *id != uuid.Nil {
		return nil
	}
	v7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = v7
	return nil
}
