package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/handlers/dto"
	"github.com/thereayou/cipherchat/internal/middleware"
)

type UserHandler struct {
	db  *database.Database
	log *logrus.Logger
}

func NewUserHandler(db *database.Database, log *logrus.Logger) *UserHandler {
	return &UserHandler{db: db, log: log}
}

// GetMe возвращает информацию о текущем пользователе
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	user, err := h.db.GetUser(c.Request.Context(), userID)
	if errors.Is(err, database.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "code": CodeNotFound})
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserProfile(user))
}
