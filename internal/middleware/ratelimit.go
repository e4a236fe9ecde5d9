package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SendRateLimit ограничивает число сообщений пользователя за окно window.
// Счётчик живёт в Redis, поэтому лимит общий для всех инстансов.
func SendRateLimit(rdb *redis.Client, limit int, window time.Duration, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		userID := c.MustGet(UserIDKey).(uuid.UUID)
		key := fmt.Sprintf("ratelimit:send:%s", userID)
		ctx := c.Request.Context()

		var (
			incr *redis.IntCmd
			ttl  *redis.DurationCmd
		)
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		count := incr.Val()
		// Новый ключ или ключ, потерявший TTL, получает окно заново
		if ttl.Val() < 0 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				log.WithError(err).WithField("user_id", userID).Warn("Failed to set rate limit window")
			}
		}

		if count > int64(limit) {
			retry := window
			if left := ttl.Val(); left > 0 {
				retry = left
			}
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many messages, slow down",
				"code":  "rate-limited",
			})
			return
		}
		c.Next()
	}
}
