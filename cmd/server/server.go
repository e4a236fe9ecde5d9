package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/thereayou/cipherchat/internal/config"
	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/handlers"
	"github.com/thereayou/cipherchat/internal/middleware"
	"github.com/thereayou/cipherchat/internal/services"
	"github.com/thereayou/cipherchat/pkg/auth"
	"github.com/thereayou/cipherchat/pkg/encryption"
)

// tokenDuration applies only to tokens minted by Generate; verified tokens carry their own expiry.
const tokenDuration = 24 * time.Hour

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager

	cfg *config.Config
	log *logrus.Logger
}

// NewServer подключает Postgres и Redis и собирает роутер.
// Невалидный ключ шифрования останавливает запуск до любых подключений.
func NewServer(cfg *config.Config, log *logrus.Logger) (*Server, error) {
	provider, err := encryption.NewProvider(cfg.MessageEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("MESSAGE_ENCRYPTION_KEY: %w", err)
	}

	dbConn, err := database.Connect(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("postgres connect failed: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}

	log.Info("Connected to Postgres and Redis")
	return New(cfg, log, dbConn, rdb, provider), nil
}

// New собирает сервер из готовых зависимостей
func New(cfg *config.Config, log *logrus.Logger, db *database.Database, rdb *redis.Client, cipher encryption.Cipher) *Server {
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, tokenDuration)
	blacklist := auth.NewBlacklist(rdb)

	access := services.NewAccessControl()
	rooms := services.NewRoomDirectory(db, log)
	messages := services.NewMessageStore(db, cipher, log, cfg.MaxMessageLength)

	router := gin.New()
	router.Use(middleware.Recovery(log), middleware.RequestLogger(log), middleware.Timeout(cfg.RequestTimeout))

	APIEndpoints(router, Handlers{
		Auth:    handlers.NewAuthHandler(jwtMgr, blacklist, log),
		Rooms:   handlers.NewRoomHandler(rooms, access, log),
		Message: handlers.NewHTTPMessageHandler(rooms, messages, access, log),
		Users:   handlers.NewUserHandler(db, log),
		Health:  handlers.NewHealthHandler(db, rdb, log),
	}, RouterDeps{
		JWT:            jwtMgr,
		Blacklist:      blacklist,
		Users:          db,
		Redis:          rdb,
		SendRateLimit:  cfg.SendRateLimit,
		SendRateWindow: cfg.SendRateWindow,
		Log:            log,
	})

	return &Server{
		Router:     router,
		DB:         db,
		Redis:      rdb,
		JWTManager: jwtMgr,
		cfg:        cfg,
		log:        log,
	}
}

// Run обслуживает HTTP до отмены ctx, затем корректно завершает работу
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.RequestTimeout + 5*time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server run error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func (s *Server) Close() error {
	return errors.Join(s.Redis.Close(), s.DB.Close())
}
