package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/services"
)

// MessagePayload тело запроса на отправку и редактирование
type MessagePayload struct {
	Content string `json:"content" binding:"required"`
}

// MessageQuery параметры истории сообщений
type MessageQuery struct {
	PageSize int    `form:"page_size" binding:"omitempty,min=1"`
	Before   string `form:"before"`
	BeforeID string `form:"before_id"`
	Order    string `form:"order" binding:"omitempty,oneof=asc desc"`
}

// MessageResponse структура для исходящих сообщений
type MessageResponse struct {
	ID            uuid.UUID  `json:"id"`
	RoomID        uuid.UUID  `json:"room_id"`
	User          UserInfo   `json:"user"`
	Content       string     `json:"content"`
	Timestamp     time.Time  `json:"timestamp"`
	Edited        bool       `json:"edited"`
	EditedAt      *time.Time `json:"edited_at,omitempty"`
	Undecryptable bool       `json:"undecryptable,omitempty"`
}

type MessageListResponse struct {
	Results      []MessageResponse `json:"results"`
	HasMore      bool              `json:"has_more"`
	NextBefore   *time.Time        `json:"next_before,omitempty"`
	NextBeforeID *uuid.UUID        `json:"next_before_id,omitempty"`
}

type UserInfo struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

func NewUserInfo(u models.User) UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

func NewMessageResponse(v services.MessageView) MessageResponse {
	return MessageResponse{
		ID:            v.ID,
		RoomID:        v.RoomID,
		User:          NewUserInfo(v.Author),
		Content:       v.Content,
		Timestamp:     v.Timestamp,
		Edited:        v.Edited,
		EditedAt:      v.EditedAt,
		Undecryptable: v.Undecryptable,
	}
}

// NewMessageListResponse also carries the cursor for the next, older page.
func NewMessageListResponse(page *services.MessagePage) MessageListResponse {
	resp := MessageListResponse{
		Results: make([]MessageResponse, len(page.Messages)),
		HasMore: page.HasMore,
	}
	for i, v := range page.Messages {
		resp.Results[i] = NewMessageResponse(v)
	}
	if page.Next != nil {
		before, id := page.Next.Before, page.Next.BeforeID
		resp.NextBefore = &before
		resp.NextBeforeID = &id
	}
	return resp
}
