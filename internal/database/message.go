package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thereayou/cipherchat/internal/models"
)

// MessageQuery selects a page of room history. Pages are cut from the newest
// end: Before excludes everything at or after the given instant. With BeforeID
// set, messages at exactly Before are kept when their id sorts below BeforeID,
// so a page boundary inside one instant loses nothing.
type MessageQuery struct {
	Limit     int
	Before    *time.Time
	BeforeID  *uuid.UUID
	Ascending bool
}

// CreateMessage stores the message and its ciphertext in one transaction.
// Neither row is visible unless both are committed.
func (d *Database) CreateMessage(ctx context.Context, message *models.Message, ciphertext string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if message.Timestamp.IsZero() {
			message.Timestamp = time.Now().UTC()
		}
		if err := tx.Omit(clause.Associations).Create(message).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		record := &models.EncryptedRecord{MessageID: message.ID, Ciphertext: ciphertext}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("insert encrypted record: %w", err)
		}
		message.EncryptedRecord = record
		return nil
	})
}

// UpdateMessageContent rewrites the existing encrypted record in place and marks
// the message edited. Exactly one record must exist for the message.
func (d *Database) UpdateMessageContent(ctx context.Context, message *models.Message, ciphertext string, editedAt time.Time) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.EncryptedRecord{}).
			Where("message_id = ?", message.ID).
			Updates(map[string]interface{}{"ciphertext": ciphertext, "updated_at": editedAt})
		if res.Error != nil {
			return fmt.Errorf("update encrypted record: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("encrypted record for message %s: %w", message.ID, ErrRecordNotFound)
		}

		res = tx.Model(&models.Message{}).
			Where("id = ?", message.ID).
			Updates(map[string]interface{}{"edited": true, "edited_at": editedAt})
		if res.Error != nil {
			return fmt.Errorf("update message: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("message %s: %w", message.ID, ErrRecordNotFound)
		}

		message.Edited = true
		message.EditedAt = &editedAt
		if message.EncryptedRecord != nil {
			message.EncryptedRecord.Ciphertext = ciphertext
			message.EncryptedRecord.UpdatedAt = editedAt
		}
		return nil
	})
}

// DeleteMessage removes the record and the message together.
func (d *Database) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.EncryptedRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Message{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
}

func (d *Database) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := d.db.WithContext(ctx).
		Preload("User").
		Preload("EncryptedRecord").
		First(&message, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &message, nil
}

// GetRoomMessages returns the newest q.Limit messages of the room (older than
// q.Before when set) and whether more history exists beyond them. Messages are
// ordered by (timestamp, id), newest first unless q.Ascending is set.
func (d *Database) GetRoomMessages(ctx context.Context, roomID uuid.UUID, q MessageQuery) ([]models.Message, bool, error) {
	var messages []models.Message

	query := d.db.WithContext(ctx).Where("room_id = ?", roomID)
	switch {
	case q.Before != nil && q.BeforeID != nil:
		before := q.Before.UTC()
		query = query.Where("(sent_at < ? OR (sent_at = ? AND id < ?))", before, before, *q.BeforeID)
	case q.Before != nil:
		query = query.Where("sent_at < ?", q.Before.UTC())
	}

	err := query.
		Order("sent_at DESC").
		Order("id DESC").
		Limit(q.Limit + 1).
		Preload("User").
		Preload("EncryptedRecord").
		Find(&messages).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(messages) > q.Limit
	if hasMore {
		messages = messages[:q.Limit]
	}

	if q.Ascending {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}
	return messages, hasMore, nil
}
