// Package config reads engine settings from the environment.
package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup
type Config struct {
	Port        string
	DatabaseURL string
	DataPath    string
	RedisAddr   string
	GinMode     string
	LogLevel    string
	LogFormat   string

	AllowSiblingPairs bool
	RunLockTTL        time.Duration
}

// LoadEnv loads the first .env file found in the working directory or its parents
func LoadEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load reads the configuration from environment variables
func Load() Config {
	return Config{
		Port:              getenv("PORT", "8000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DataPath:          getenv("DATA_PATH", "assignments.db"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		GinMode:           os.Getenv("GIN_MODE"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "text"),
		AllowSiblingPairs: getbool("PAIRING_ALLOW_SIBLINGS", false),
		RunLockTTL:        getduration("RUN_LOCK_TTL", 2*time.Minute),
	}
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getduration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
