package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/thereayou/cipherchat/internal/handlers"
	"github.com/thereayou/cipherchat/internal/middleware"
	"github.com/thereayou/cipherchat/pkg/auth"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Rooms   *handlers.RoomHandler
	Message *handlers.HTTPMessageHandler
	Users   *handlers.UserHandler
	Health  *handlers.HealthHandler
}

type RouterDeps struct {
	JWT            *auth.JWTManager
	Blacklist      *auth.Blacklist
	Users          middleware.UserLookup
	Redis          *redis.Client
	SendRateLimit  int
	SendRateWindow time.Duration
	Log            *logrus.Logger
}

func APIEndpoints(r *gin.Engine, h Handlers, deps RouterDeps) {
	r.GET("/healthz", h.Health.Health)

	api := r.Group("/api/chat")
	api.Use(
		middleware.AuthMiddleware(deps.JWT, deps.Blacklist, deps.Log),
		middleware.RequireUser(deps.Users, deps.Log),
	)

	// Auth endpoints
	api.POST("/auth/logout", h.Auth.Logout)

	api.GET("/users/me", h.Users.GetMe)

	rooms := api.Group("/rooms")
	{
		rooms.GET("", h.Rooms.ListRooms)
		rooms.POST("", h.Rooms.CreateRoom)
		rooms.GET("/:slug", h.Rooms.GetRoom)
		rooms.GET("/:slug/members", h.Rooms.GetRoomMembers)
		rooms.POST("/:slug/join", h.Rooms.JoinRoom)
		rooms.POST("/:slug/leave", h.Rooms.LeaveRoom)

		rooms.GET("/:slug/messages", h.Message.GetRoomMessages)
		rooms.POST("/:slug/messages",
			middleware.SendRateLimit(deps.Redis, deps.SendRateLimit, deps.SendRateWindow, deps.Log),
			h.Message.SendMessage,
		)
	}

	messages := api.Group("/messages")
	{
		messages.PATCH("/:id", h.Message.UpdateMessage)
		messages.DELETE("/:id", h.Message.DeleteMessage)
	}
}
