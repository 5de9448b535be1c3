package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/config"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	srv, mux := jobs.NewServer(redisOpt, 5, jobs.LogMailer{Logger: slog.Default()})

	slog.Info("worker starting", "redis", cfg.RedisAddr)
	// Run blocks until SIGINT or SIGTERM and then drains in-flight tasks.
	if err := srv.Run(mux); err != nil {
		slog.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
