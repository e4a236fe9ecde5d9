package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/models"
)

const (
	maxRoomNameLength = 255
	maxSlugAttempts   = 5
)

// JoinResult is the non-error outcome of a join.
type JoinResult string

const (
	Joined        JoinResult = "joined"
	AlreadyMember JoinResult = "already-member"
)

type CreateRoomInput struct {
	Name        string
	Description string
	IsPrivate   bool
	MaxMembers  int
}

type RoomPage struct {
	Rooms    []models.Room
	Total    int64
	Page     int
	PageSize int
}

// RoomDirectory owns room identity, slugs and the membership set.
type RoomDirectory struct {
	repo RoomRepository
	log  *logrus.Logger
}

func NewRoomDirectory(repo RoomRepository, log *logrus.Logger) *RoomDirectory {
	if repo == nil {
		panic("RoomRepository cannot be nil for RoomDirectory")
	}
	return &RoomDirectory{repo: repo, log: log}
}

// Create stores a new room with a server-generated slug; the creator becomes a
// member in the same transaction. Slug collisions lost to a concurrent create
// are retried with a freshly computed suffix.
func (d *RoomDirectory) Create(ctx context.Context, in CreateRoomInput, creator uuid.UUID) (*models.Room, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRoom)
	}
	if utf8.RuneCountInString(name) > maxRoomNameLength {
		return nil, fmt.Errorf("%w: name is longer than %d characters", ErrInvalidRoom, maxRoomNameLength)
	}

	maxMembers := in.MaxMembers
	if maxMembers == 0 {
		maxMembers = models.DefaultMaxMembers
	}
	if maxMembers < 1 || maxMembers > models.MaxMembersLimit {
		return nil, fmt.Errorf("%w: max_members must be between 1 and %d", ErrInvalidRoom, models.MaxMembersLimit)
	}

	logCtx := d.log.WithFields(logrus.Fields{"creator_id": creator, "room_name": name})
	base := Slugify(name)

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		slug, err := d.nextFreeSlug(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("allocate slug: %w", err)
		}

		room := &models.Room{
			Name:        name,
			Slug:        slug,
			Description: strings.TrimSpace(in.Description),
			IsPrivate:   in.IsPrivate,
			MaxMembers:  maxMembers,
			CreatedBy:   creator,
		}
		err = d.repo.CreateRoom(ctx, room)
		if errors.Is(err, database.ErrDuplicateSlug) {
			logCtx.WithField("slug", slug).Warnf("Slug taken concurrently, retrying (attempt %d)", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}

		logCtx.WithField("slug", slug).Info("Room created")
		return d.Resolve(ctx, slug)
	}

	logCtx.Errorf("Failed to allocate a unique slug after %d attempts", maxSlugAttempts)
	return nil, ErrSlugConflict
}

func (d *RoomDirectory) nextFreeSlug(ctx context.Context, base string) (string, error) {
	taken, err := d.repo.TakenSlugs(ctx, base)
	if err != nil {
		return "", err
	}
	used := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		used[s] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base, nil
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if _, ok := used[candidate]; !ok {
			return candidate, nil
		}
	}
}

// Resolve loads a room with its members and creator.
func (d *RoomDirectory) Resolve(ctx context.Context, slug string) (*models.Room, error) {
	room, err := d.repo.GetRoomBySlug(ctx, slug)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve room %q: %w", slug, err)
	}
	return room, nil
}

// Get loads a room by id, with its members.
func (d *RoomDirectory) Get(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := d.repo.GetRoom(ctx, id)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", id, err)
	}
	return room, nil
}

// Join adds userID to the room. Private rooms are never self-joinable and a room
// at capacity rejects further joins. The checks run under the room row lock.
func (d *RoomDirectory) Join(ctx context.Context, room *models.Room, userID uuid.UUID) (JoinResult, error) {
	logCtx := d.log.WithFields(logrus.Fields{"room_slug": room.Slug, "user_id": userID})

	err := d.repo.AddRoomMember(ctx, room.ID, userID, func(locked *models.Room, members int64, isMember bool) error {
		switch {
		case isMember:
			return ErrAlreadyMember
		case locked.IsPrivate:
			return ErrPrivateRoom
		case members >= int64(locked.MaxMembers):
			return ErrRoomFull
		}
		return nil
	})

	switch {
	case err == nil:
		logCtx.Info("User joined room")
		return Joined, nil
	case errors.Is(err, ErrAlreadyMember):
		return AlreadyMember, nil
	case errors.Is(err, ErrPrivateRoom), errors.Is(err, ErrRoomFull):
		logCtx.WithError(err).Info("Join rejected")
		return "", err
	case errors.Is(err, database.ErrRecordNotFound):
		return "", ErrRoomNotFound
	default:
		return "", fmt.Errorf("join room %q: %w", room.Slug, err)
	}
}

// Leave removes userID from the room; leaving a room you are not in is an error.
func (d *RoomDirectory) Leave(ctx context.Context, room *models.Room, userID uuid.UUID) error {
	err := d.repo.RemoveRoomMember(ctx, room.ID, userID)
	if errors.Is(err, database.ErrRecordNotFound) {
		return ErrNotMember
	}
	if err != nil {
		return fmt.Errorf("leave room %q: %w", room.Slug, err)
	}
	d.log.WithFields(logrus.Fields{"room_slug": room.Slug, "user_id": userID}).Info("User left room")
	return nil
}

// Members lists the room's members, earliest joiner first.
func (d *RoomDirectory) Members(ctx context.Context, room *models.Room) ([]models.User, error) {
	members, err := d.repo.ListRoomMembers(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list members of %q: %w", room.Slug, err)
	}
	return members, nil
}

// ListVisible pages through rooms userID may see: public ones, plus private ones
// the user belongs to or created.
func (d *RoomDirectory) ListVisible(ctx context.Context, userID uuid.UUID, page, pageSize int) (*RoomPage, error) {
	if page < 1 {
		page = 1
	}
	pageSize = ClampPageSize(pageSize)

	rooms, total, err := d.repo.ListVisibleRooms(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return &RoomPage{Rooms: rooms, Total: total, Page: page, PageSize: pageSize}, nil
}
