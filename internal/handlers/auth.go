package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/thereayou/cipherchat/internal/middleware"
	"github.com/thereayou/cipherchat/pkg/auth"
)

type AuthHandler struct {
	jwtManager *auth.JWTManager
	blacklist  *auth.Blacklist
	log        *logrus.Logger
}

func NewAuthHandler(jwtMgr *auth.JWTManager, blacklist *auth.Blacklist, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{jwtManager: jwtMgr, blacklist: blacklist, log: log}
}

// Logout ставит токен в черный список в Redis до истечения
func (h *AuthHandler) Logout(c *gin.Context) {
	rawToken := c.MustGet(middleware.TokenKey).(string)

	exp, err := h.jwtManager.Expiry(rawToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
		return
	}

	if err := h.blacklist.Revoke(c.Request.Context(), rawToken, exp); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
