package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/thereayou/cipherchat/internal/services"
)

const (
	CodeInvalidRequest   = "invalid-request"
	CodeNotFound         = "not-found"
	CodeForbidden        = "forbidden"
	CodeForbiddenPrivate = "forbidden-private"
	CodeRoomFull         = "room-full"
	CodeNotMember        = "not-member"
	CodeSlugConflict     = "slug-conflict"
	CodeTimeout          = "timeout"
	CodeInternal         = "internal"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var serviceErrors = []errorMapping{
	{services.ErrRoomNotFound, http.StatusNotFound, CodeNotFound},
	{services.ErrMessageNotFound, http.StatusNotFound, CodeNotFound},
	{services.ErrPrivateRoom, http.StatusForbidden, CodeForbiddenPrivate},
	{services.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{services.ErrRoomFull, http.StatusConflict, CodeRoomFull},
	{services.ErrNotMember, http.StatusBadRequest, CodeNotMember},
	{services.ErrSlugConflict, http.StatusConflict, CodeSlugConflict},
	{services.ErrInvalidRoom, http.StatusBadRequest, CodeInvalidRequest},
	{services.ErrEmptyContent, http.StatusBadRequest, CodeInvalidRequest},
	{services.ErrContentTooLong, http.StatusBadRequest, CodeInvalidRequest},
}

// respondError переводит ошибку сервиса в HTTP-ответ {"error", "code"}
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			c.JSON(m.status, gin.H{"error": err.Error(), "code": m.code})
			return
		}
	}

	_ = c.Error(err)
	if errors.Is(err, context.DeadlineExceeded) {
		log.WithError(err).Warn("Request timed out")
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out", "code": CodeTimeout})
		return
	}

	log.WithError(err).Error("Unhandled service error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": CodeInternal})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": CodeInvalidRequest})
}
