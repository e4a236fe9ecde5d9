package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/pkg/auth"
)

const (
	UserIDKey = "userID"
	TokenKey  = "token"
)

// AuthMiddleware проверяет JWT токен и черный список
func AuthMiddleware(jwtManager *auth.JWTManager, blacklist *auth.Blacklist, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			abortUnauthorized(c, "missing or invalid token")
			return
		}

		userID, _, err := jwtManager.UserID(token)
		if err != nil {
			log.WithError(err).Debug("Token rejected")
			abortUnauthorized(c, "invalid token")
			return
		}

		// Если Redis недоступен, считаем токен отозванным
		revoked, err := blacklist.IsRevoked(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).Error("Failed to check token blacklist")
			abortUnauthorized(c, "token could not be checked")
			return
		}
		if revoked {
			abortUnauthorized(c, "token is blacklisted")
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// UserLookup находит пользователя по id
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireUser пропускает только пользователей, уже заведённых в базе.
// Ставится после AuthMiddleware.
func RequireUser(users UserLookup, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet(UserIDKey).(uuid.UUID)

		_, err := users.GetUser(c.Request.Context(), userID)
		if errors.Is(err, database.ErrRecordNotFound) {
			log.WithField("user_id", userID).Warn("Token subject has no user record")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user is not registered", "code": "unknown-user"})
			return
		}
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Failed to load user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "unauthorized"})
}
