package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thereayou/cipherchat/internal/handlers/dto"
	"github.com/thereayou/cipherchat/internal/middleware"
	"github.com/thereayou/cipherchat/internal/services"
)

type RoomHandler struct {
	rooms  *services.RoomDirectory
	access *services.AccessControl
	log    *logrus.Logger
}

func NewRoomHandler(rooms *services.RoomDirectory, access *services.AccessControl, log *logrus.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, access: access, log: log}
}

// ListRooms получает список видимых пользователю комнат
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	page, err := h.rooms.ListVisible(c.Request.Context(), userID, q.Page, q.PageSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRoomListResponse(page))
}

// CreateRoom создает новую комнату
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	room, err := h.rooms.Create(c.Request.Context(), services.CreateRoomInput{
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		MaxMembers:  req.MaxMembers,
	}, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewRoomDetail(room))
}

// GetRoom получает информацию о конкретной комнате
func (h *RoomHandler) GetRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	room, err := h.rooms.Resolve(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.access.AuthorizeView(room, userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRoomDetail(room))
}

// GetRoomMembers получает список участников комнаты
func (h *RoomHandler) GetRoomMembers(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	room, err := h.rooms.Resolve(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.access.AuthorizeView(room, userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	members, err := h.rooms.Members(c.Request.Context(), room)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": dto.NewMemberResponses(room, members)})
}

// JoinRoom добавляет пользователя в комнату
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	room, err := h.rooms.Resolve(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	result, err := h.rooms.Join(c.Request.Context(), room, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: string(result), Room: room.Slug})
}

// LeaveRoom удаляет пользователя из комнаты
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	room, err := h.rooms.Resolve(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.rooms.Leave(c.Request.Context(), room, userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "left", Room: room.Slug})
}
