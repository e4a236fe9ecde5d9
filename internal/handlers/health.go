package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const healthTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	redis *redis.Client
	log   *logrus.Logger
}

func NewHealthHandler(db Pinger, rdb *redis.Client, log *logrus.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb, log: log}
}

// Health проверяет Postgres и Redis
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{"database": "ok", "redis": "ok"}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("Database health check failed")
		checks["database"] = err.Error()
		healthy = false
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		h.log.WithError(err).Warn("Redis health check failed")
		checks["redis"] = err.Error()
		healthy = false
	}

	if !healthy {
		checks["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, checks)
		return
	}
	checks["status"] = "ok"
	c.JSON(http.StatusOK, checks)
}
