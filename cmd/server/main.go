package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/hibiken/asynq"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/config"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/database"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/logging"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/notify"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/routes"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/services"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/store"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// ERROR records are also batched into system_logs.
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewJSONHandler(os.Stdout),
		pgLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetention, cleanupDone)

	var (
		notifier    services.Notifier
		queueClient *asynq.Client
	)
	switch cfg.Notifier {
	case "queue":
		queueClient = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		notifier = notify.NewQueueNotifier(queueClient, cfg.OTPTTL)
		slog.Info("otp delivery via queue", "redis", cfg.RedisAddr)
	default:
		notifier = notify.NewLogNotifier()
		slog.Warn("otp delivery is log-only", "notifier", cfg.Notifier)
	}

	authService := services.NewAuthService(store.NewUserStore(database.DB), notifier, cfg)

	authHandler := handlers.NewAuthHandler(authService, !cfg.IsProduction())
	healthHandler := handlers.NewHealthHandler(database.Ping)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler(!cfg.IsProduction()),
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, cfg, authHandler, healthHandler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if queueClient != nil {
		if err := queueClient.Close(); err != nil {
			slog.Error("queue client close error", "error", err)
		}
	}
	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}
