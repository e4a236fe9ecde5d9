package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/models"
)

// RoomRepository is the slice of *database.Database the room directory uses.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	TakenSlugs(ctx context.Context, base string) ([]string, error)
	GetRoomBySlug(ctx context.Context, slug string) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListVisibleRooms(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Room, int64, error)
	AddRoomMember(ctx context.Context, roomID, userID uuid.UUID, check database.MembershipCheck) error
	RemoveRoomMember(ctx context.Context, roomID, userID uuid.UUID) error
	ListRoomMembers(ctx context.Context, roomID uuid.UUID) ([]models.User, error)
}

// MessageRepository is the slice of *database.Database the message store uses.
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *models.Message, ciphertext string) error
	UpdateMessageContent(ctx context.Context, message *models.Message, ciphertext string, editedAt time.Time) error
	DeleteMessage(ctx context.Context, id uuid.UUID) error
	GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error)
	GetRoomMessages(ctx context.Context, roomID uuid.UUID, q database.MessageQuery) ([]models.Message, bool, error)
	UpdateLastSeen(ctx context.Context, id uuid.UUID) error
}

var (
	_ RoomRepository    = (*database.Database)(nil)
	_ MessageRepository = (*database.Database)(nil)
)
