package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/thereayou/cipherchat/internal/models"
)

func TestAccessControl(t *testing.T) {
	creator, member, outsider := uuid.New(), uuid.New(), uuid.New()

	room := func(private bool) *models.Room {
		return &models.Room{
			ID:        uuid.New(),
			IsPrivate: private,
			CreatedBy: creator,
			Members:   []models.User{{ID: member}},
		}
	}

	cases := []struct {
		name      string
		private   bool
		user      uuid.UUID
		view      bool
		readWrite bool
	}{
		{"public outsider", false, outsider, true, false},
		{"public member", false, member, true, true},
		{"public creator", false, creator, true, true},
		{"private outsider", true, outsider, false, false},
		{"private member", true, member, true, true},
		{"private creator not in members", true, creator, true, true},
	}

	ac := NewAccessControl()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := room(tc.private)
			assert.Equal(t, tc.view, ac.CanView(r, tc.user))
			assert.Equal(t, tc.readWrite, ac.CanReadWrite(r, tc.user))

			if tc.view {
				assert.NoError(t, ac.AuthorizeView(r, tc.user))
			} else {
				assert.ErrorIs(t, ac.AuthorizeView(r, tc.user), ErrForbidden)
			}
			if tc.readWrite {
				assert.NoError(t, ac.AuthorizeReadWrite(r, tc.user))
			} else {
				assert.ErrorIs(t, ac.AuthorizeReadWrite(r, tc.user), ErrForbidden)
			}
		})
	}
}

func TestCanModify(t *testing.T) {
	author, other := uuid.New(), uuid.New()
	room := &models.Room{ID: uuid.New(), CreatedBy: uuid.New(), Members: []models.User{{ID: author}, {ID: other}}}
	message := &models.Message{ID: uuid.New(), RoomID: room.ID, UserID: author}

	ac := NewAccessControl()
	assert.True(t, ac.CanModify(room, message, author))
	assert.False(t, ac.CanModify(room, message, other), "only the author may modify")
	assert.ErrorIs(t, ac.AuthorizeModify(room, message, other), ErrForbidden)

	elsewhere := &models.Room{ID: uuid.New(), Members: room.Members}
	assert.False(t, ac.CanModify(elsewhere, message, author), "message must belong to the room")

	left := &models.Room{ID: room.ID, Members: []models.User{{ID: other}}}
	assert.False(t, ac.CanModify(left, message, author), "authors who left lose modify rights")
}
