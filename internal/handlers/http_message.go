package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thereayou/cipherchat/internal/handlers/dto"
	"github.com/thereayou/cipherchat/internal/middleware"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/services"
)

type HTTPMessageHandler struct {
	rooms    *services.RoomDirectory
	messages *services.MessageStore
	access   *services.AccessControl
	log      *logrus.Logger
}

func NewHTTPMessageHandler(rooms *services.RoomDirectory, messages *services.MessageStore, access *services.AccessControl, log *logrus.Logger) *HTTPMessageHandler {
	return &HTTPMessageHandler{rooms: rooms, messages: messages, access: access, log: log}
}

// GetRoomMessages получает историю сообщений комнаты
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	room, ok := h.memberRoom(c, userID)
	if !ok {
		return
	}

	var q dto.MessageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	opts := services.ListOptions{Limit: q.PageSize, Order: services.ParseOrder(q.Order)}
	if q.Before != "" {
		before, err := time.Parse(time.RFC3339Nano, q.Before)
		if err != nil {
			badRequest(c, "before must be an RFC 3339 timestamp")
			return
		}
		opts.Before = &before
	}
	if q.BeforeID != "" {
		if opts.Before == nil {
			badRequest(c, "before_id requires before")
			return
		}
		id, err := uuid.Parse(q.BeforeID)
		if err != nil {
			badRequest(c, "before_id must be a message id")
			return
		}
		opts.BeforeID = &id
	}

	page, err := h.messages.ListByRoom(c.Request.Context(), room, opts)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewMessageListResponse(page))
}

// SendMessage отправляет сообщение в комнату
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	room, ok := h.memberRoom(c, userID)
	if !ok {
		return
	}

	var req dto.MessagePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}

	view, err := h.messages.Send(c.Request.Context(), room, userID, req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewMessageResponse(*view))
}

// UpdateMessage обновляет сообщение
func (h *HTTPMessageHandler) UpdateMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	message, ok := h.ownMessage(c, userID)
	if !ok {
		return
	}

	var req dto.MessagePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}

	view, err := h.messages.Edit(c.Request.Context(), message, req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewMessageResponse(*view))
}

// DeleteMessage удаляет сообщение
func (h *HTTPMessageHandler) DeleteMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	message, ok := h.ownMessage(c, userID)
	if !ok {
		return
	}

	if err := h.messages.Delete(c.Request.Context(), message); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message deleted successfully"})
}

// memberRoom находит комнату по slug и проверяет членство
func (h *HTTPMessageHandler) memberRoom(c *gin.Context, userID uuid.UUID) (*models.Room, bool) {
	room, err := h.rooms.Resolve(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	if err := h.access.AuthorizeReadWrite(room, userID); err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	return room, true
}

// ownMessage загружает сообщение и проверяет, что его автор userID и он всё ещё в комнате
func (h *HTTPMessageHandler) ownMessage(c *gin.Context, userID uuid.UUID) (*models.Message, bool) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid message id")
		return nil, false
	}

	message, err := h.messages.Get(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}

	room, err := h.rooms.Get(c.Request.Context(), message.RoomID)
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	if err := h.access.AuthorizeModify(room, message, userID); err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	return message, true
}
