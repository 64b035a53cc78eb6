package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/arnavshah/assignment-engine-go/pkg/auth"
	"github.com/arnavshah/assignment-engine-go/pkg/config"
	"github.com/arnavshah/assignment-engine-go/pkg/database"
	"github.com/arnavshah/assignment-engine-go/pkg/generator"
	"github.com/arnavshah/assignment-engine-go/pkg/handlers"
	"github.com/arnavshah/assignment-engine-go/pkg/metrics"
	"github.com/arnavshah/assignment-engine-go/pkg/runlock"
	"github.com/arnavshah/assignment-engine-go/pkg/scheduler"
	"github.com/arnavshah/assignment-engine-go/pkg/store"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(database.Options{DatabaseURL: cfg.DatabaseURL, DataPath: cfg.DataPath})
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	if err := auth.EnsureAdminExists(db, logger); err != nil {
		logger.Error("ensure admin user", "error", err)
	}

	st := store.New(db)
	svc := generator.New(st, newLocker(cfg, logger), metrics.NewPrometheus(prometheus.DefaultRegisterer, ""), logger,
		scheduler.PairingPolicy{AllowSiblings: cfg.AllowSiblingPairs})
	h := &handlers.Handler{DB: db, Store: st, Generator: svc, Logger: logger}

	r := handlers.NewRouter(h, prometheus.DefaultGatherer)

	logger.Info("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("could not run server", "error", err)
		os.Exit(1)
	}
}

// newLocker uses Redis when configured so that every instance shares run locks
func newLocker(cfg config.Config, logger *slog.Logger) runlock.Locker {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR is not set, run locks are local to this process")
		return runlock.NewLocal()
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Error("could not connect to redis, falling back to local run locks", "error", err)
		_ = client.Close()
		return runlock.NewLocal()
	}
	logger.Info("connected to redis", "addr", cfg.RedisAddr)
	return runlock.NewRedis(client, cfg.RunLockTTL, logger)
}
