package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL          string        `env:"DATABASE_URL,required=true"`
	RedisURL             string        `env:"REDIS_URL,required=true"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	MessageEncryptionKey string        `env:"MESSAGE_ENCRYPTION_KEY,required=true"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=info"`
	LogFormat            string        `env:"LOG_FORMAT,default=text"`
	GinMode              string        `env:"GIN_MODE,default=release"`
	DBMaxOpenConns       int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBMaxIdleConns       int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	DBConnMaxLifetime    time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT,default=10s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`
	SendRateLimit        int           `env:"SEND_RATE_LIMIT,default=30"`
	SendRateWindow       time.Duration `env:"SEND_RATE_WINDOW,default=1m"`
	MaxMessageLength     int           `env:"MAX_MESSAGE_LENGTH,default=4000"`
}

// LoadEnvFiles loads envFile when given, otherwise .env.local and then .env.
// Variables already present in the environment win.
func LoadEnvFiles(envFile string, log *logrus.Logger) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		return nil
	}

	for _, name := range []string{".env.local", ".env"} {
		err := godotenv.Load(name)
		if err == nil {
			log.WithField("file", name).Debug("Loaded env file")
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load decodes and validates the process environment.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d is out of range", c.Port))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL: %v", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if c.SendRateLimit < 0 {
		problems = append(problems, "SEND_RATE_LIMIT cannot be negative")
	}
	if c.SendRateLimit > 0 && c.SendRateWindow <= 0 {
		problems = append(problems, "SEND_RATE_WINDOW must be positive when SEND_RATE_LIMIT is set")
	}
	if c.MaxMessageLength <= 0 {
		problems = append(problems, "MAX_MESSAGE_LENGTH must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config error: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(c *Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
