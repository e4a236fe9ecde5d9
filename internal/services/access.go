package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/thereayou/cipherchat/internal/models"
)

// AccessControl is the single place room visibility and message access are decided.
// Rooms passed in must have Members loaded.
type AccessControl struct{}

func NewAccessControl() *AccessControl {
	return &AccessControl{}
}

// CanView: public rooms, members and the creator.
func (a *AccessControl) CanView(room *models.Room, userID uuid.UUID) bool {
	return !room.IsPrivate || a.CanReadWrite(room, userID)
}

// CanReadWrite: membership is the unit of authorization, public rooms included.
func (a *AccessControl) CanReadWrite(room *models.Room, userID uuid.UUID) bool {
	return room.CreatedBy == userID || room.HasMember(userID)
}

// CanModify: only the author, and only while still allowed to write in the room.
func (a *AccessControl) CanModify(room *models.Room, message *models.Message, userID uuid.UUID) bool {
	return message.RoomID == room.ID && message.UserID == userID && a.CanReadWrite(room, userID)
}

func (a *AccessControl) AuthorizeView(room *models.Room, userID uuid.UUID) error {
	if !a.CanView(room, userID) {
		return fmt.Errorf("%w: you do not have permission to access this private room", ErrForbidden)
	}
	return nil
}

func (a *AccessControl) AuthorizeReadWrite(room *models.Room, userID uuid.UUID) error {
	if !a.CanReadWrite(room, userID) {
		return fmt.Errorf("%w: you must be a member of the room to view or send messages", ErrForbidden)
	}
	return nil
}

func (a *AccessControl) AuthorizeModify(room *models.Room, message *models.Message, userID uuid.UUID) error {
	if !a.CanModify(room, message, userID) {
		return fmt.Errorf("%w: you can only change your own messages", ErrForbidden)
	}
	return nil
}
