package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/config"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	api.Get("/health", healthHandler.Check)

	users := api.Group("/users")
	if cfg.AuthRateLimit > 0 {
		users.Use(limiter.New(limiter.Config{
			Max:               cfg.AuthRateLimit,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
					Error: true, Code: "rate_limited", Message: "Too many requests",
				})
			},
		}))
	}

	users.Post("/create", authHandler.CreateUser)
	users.Post("/send-otp", authHandler.SendOTP)
	users.Post("/verify-otp", authHandler.VerifyOTP)
	users.Post("/login", authHandler.Login)
	users.Get("/me", middleware.JWTProtected(cfg), authHandler.Me)
}
