package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thereayou/cipherchat/internal/models"
)

// MembershipCheck runs inside the join transaction while the room row is locked.
// A non-nil error aborts the join and is returned to the caller unchanged.
type MembershipCheck func(room *models.Room, memberCount int64, isMember bool) error

// CreateRoom inserts the room and its creator membership in one transaction.
// A slug collision is reported as ErrDuplicateSlug.
func (d *Database) CreateRoom(ctx context.Context, room *models.Room) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(room).Error; err != nil {
			return err
		}
		return tx.Create(&models.RoomMember{RoomID: room.ID, UserID: room.CreatedBy}).Error
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateSlug, room.Slug)
	}
	return err
}

// TakenSlugs returns base itself and every "base-N" style slug already in use.
func (d *Database) TakenSlugs(ctx context.Context, base string) ([]string, error) {
	var slugs []string
	err := d.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("slug = ? OR slug LIKE ? ESCAPE '\\'", base, escapeLike(base)+"-%").
		Pluck("slug", &slugs).Error
	return slugs, err
}

func (d *Database) GetRoomBySlug(ctx context.Context, slug string) (*models.Room, error) {
	var room models.Room
	err := d.db.WithContext(ctx).
		Preload("Members").
		Preload("Creator").
		First(&room, "slug = ?", slug).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (d *Database) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := d.db.WithContext(ctx).Preload("Members").First(&room, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

// ListVisibleRooms returns public rooms plus the private rooms userID belongs to or created,
// newest first, with MemberCount filled in.
func (d *Database) ListVisibleRooms(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Room, int64, error) {
	visible := func() *gorm.DB {
		return d.db.WithContext(ctx).
			Model(&models.Room{}).
			Where("rooms.is_private = ? OR rooms.created_by = ? OR EXISTS (SELECT 1 FROM room_members rm WHERE rm.room_id = rooms.id AND rm.user_id = ?)",
				false, userID, userID)
	}

	var total int64
	if err := visible().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []models.Room
	err := visible().
		Select("rooms.*, (SELECT COUNT(*) FROM room_members rm WHERE rm.room_id = rooms.id) AS member_count").
		Preload("Creator").
		Order("rooms.created_at DESC").
		Order("rooms.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

// ListRoomMembers returns the room's members in the order they joined.
func (d *Database) ListRoomMembers(ctx context.Context, roomID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := d.db.WithContext(ctx).
		Joins("JOIN room_members rm ON rm.user_id = users.id").
		Where("rm.room_id = ?", roomID).
		Order("rm.created_at ASC").
		Order("users.id ASC").
		Find(&users).Error
	return users, err
}

// AddRoomMember locks the room row, lets check decide on the current state and
// inserts the membership if check allows it. Capacity checks are therefore
// atomic with the insert.
func (d *Database) AddRoomMember(ctx context.Context, roomID, userID uuid.UUID, check MembershipCheck) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, "id = ?", roomID).Error
		if err != nil {
			return notFound(err)
		}

		var count int64
		if err := tx.Model(&models.RoomMember{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
			return err
		}
		var mine int64
		if err := tx.Model(&models.RoomMember{}).Where("room_id = ? AND user_id = ?", roomID, userID).Count(&mine).Error; err != nil {
			return err
		}

		if err := check(&room, count, mine > 0); err != nil {
			return err
		}
		return tx.Create(&models.RoomMember{RoomID: roomID, UserID: userID}).Error
	})
}

// RemoveRoomMember deletes the membership; ErrRecordNotFound if there was none.
func (d *Database) RemoveRoomMember(ctx context.Context, roomID, userID uuid.UUID) error {
	res := d.db.WithContext(ctx).Where("room_id = ? AND user_id = ?", roomID, userID).Delete(&models.RoomMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
