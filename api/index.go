package handler

import (
	"context"
	"net/http"
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

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	config.LoadEnv()
	cfg := config.Load()
	logger := cfg.NewLogger(os.Stderr)

	// Serverless instances share nothing, so run locks need Redis
	var locker runlock.Locker = runlock.NewLocal()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err == nil {
			locker = runlock.NewRedis(client, cfg.RunLockTTL, logger)
		} else {
			logger.Error("could not connect to redis", "error", err)
		}
	}

	db, err := database.Open(database.Options{DatabaseURL: cfg.DatabaseURL, DataPath: cfg.DataPath})
	if err != nil {
		logger.Error("open database", "error", err)
		panic(err)
	}
	_ = auth.EnsureAdminExists(db, logger)

	st := store.New(db)
	svc := generator.New(st, locker, metrics.NewPrometheus(prometheus.DefaultRegisterer, ""), logger,
		scheduler.PairingPolicy{AllowSiblings: cfg.AllowSiblingPairs})

	gin.SetMode(gin.ReleaseMode)
	r = handlers.NewRouter(&handlers.Handler{DB: db, Store: st, Generator: svc, Logger: logger}, prometheus.DefaultGatherer)
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
