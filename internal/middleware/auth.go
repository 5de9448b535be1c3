package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/config"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/dto"
)

const tokenContextKey = "user"

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		ContextKey: tokenContextKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Code:    "unauthorized",
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// Identity is the authenticated caller as asserted by the session token.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// GetIdentity extracts the caller identity from JWT claims in context.
func GetIdentity(c *fiber.Ctx) (Identity, error) {
	token, ok := c.Locals(tokenContextKey).(*jwt.Token)
	if !ok {
		return Identity{}, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}

	sub, ok := claims["userId"].(string)
	if !ok {
		return Identity{}, errors.New("missing userId claim")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, err
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return Identity{}, errors.New("missing email claim")
	}

	return Identity{UserID: id, Email: email}, nil
}
