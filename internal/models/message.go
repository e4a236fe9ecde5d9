package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message carries no plaintext. Its body lives in exactly one EncryptedRecord.
type Message struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_room_sent_at,priority:1"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Timestamp time.Time  `gorm:"column:sent_at;not null;index:idx_messages_room_sent_at,priority:2"`
	Edited    bool       `gorm:"not null;default:false"`
	EditedAt  *time.Time

	User            User             `gorm:"foreignKey:UserID"`
	EncryptedRecord *EncryptedRecord `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	return assignID(&m.ID)
}

type EncryptedRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	MessageID  uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Ciphertext string    `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r *EncryptedRecord) BeforeCreate(*gorm.DB) error {
	return assignID(&r.ID)
}
