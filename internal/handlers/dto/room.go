package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/services"
)

type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
	MaxMembers  int    `json:"max_members" binding:"omitempty,min=1,max=1000"`
}

type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1"`
}

type RoomSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	CreatedBy   UserInfo  `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	MemberCount int64     `json:"member_count"`
}

type RoomDetail struct {
	RoomSummary
	MaxMembers int        `json:"max_members"`
	Members    []UserInfo `json:"members"`
}

type RoomListResponse struct {
	Count    int64         `json:"count"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Results  []RoomSummary `json:"results"`
}

type MemberResponse struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at"`
	IsCreator  bool      `json:"is_creator"`
}

// StatusResponse ответ на join/leave
type StatusResponse struct {
	Status string `json:"status"`
	Room   string `json:"room"`
}

func NewRoomSummary(r *models.Room) RoomSummary {
	count := r.MemberCount
	if count == 0 && len(r.Members) > 0 {
		count = int64(len(r.Members))
	}
	return RoomSummary{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		IsPrivate:   r.IsPrivate,
		CreatedBy:   NewUserInfo(r.Creator),
		CreatedAt:   r.CreatedAt,
		MemberCount: count,
	}
}

func NewRoomDetail(r *models.Room) RoomDetail {
	members := make([]UserInfo, len(r.Members))
	for i, m := range r.Members {
		members[i] = NewUserInfo(m)
	}
	return RoomDetail{RoomSummary: NewRoomSummary(r), MaxMembers: r.MaxMembers, Members: members}
}

func NewRoomListResponse(p *services.RoomPage) RoomListResponse {
	results := make([]RoomSummary, len(p.Rooms))
	for i := range p.Rooms {
		results[i] = NewRoomSummary(&p.Rooms[i])
	}
	return RoomListResponse{Count: p.Total, Page: p.Page, PageSize: p.PageSize, Results: results}
}

func NewMemberResponses(room *models.Room, members []models.User) []MemberResponse {
	out := make([]MemberResponse, len(members))
	for i, m := range members {
		out[i] = MemberResponse{
			ID:         m.ID,
			Username:   m.Username,
			AvatarURL:  m.AvatarURL,
			LastSeenAt: m.LastSeenAt,
			IsCreator:  m.ID == room.CreatedBy,
		}
	}
	return out
}
