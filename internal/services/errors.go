package services

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrForbidden       = errors.New("forbidden")
	ErrPrivateRoom     = errors.New("cannot join a private room directly")
	ErrRoomFull        = errors.New("this room is full")
	ErrAlreadyMember   = errors.New("you are already a member of this room")
	ErrNotMember       = errors.New("you are not a member of this room")
	ErrSlugConflict    = errors.New("could not allocate a unique room slug")
	ErrInvalidRoom     = errors.New("invalid room")
	ErrEmptyContent    = errors.New("message content is required")
	ErrContentTooLong  = errors.New("message content is too long")
)
