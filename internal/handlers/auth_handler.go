package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/services"
)

type AuthHandler struct {
	authService  *services.AuthService
	exposeDetail bool
}

func NewAuthHandler(authService *services.AuthService, exposeDetail bool) *AuthHandler {
	return &AuthHandler{authService: authService, exposeDetail: exposeDetail}
}

// CreateUser registers an account directly, without an OTP.
func (h *AuthHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		return h.respondError(c, "create", err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CreateUserResponse{
		Message: "User created successfully.",
		User:    *user,
	})
}

func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.authService.SendOTP(c.UserContext(), &req); err != nil {
		return h.respondError(c, "send-otp", err)
	}

	return c.JSON(dto.MessageResponse{Message: "OTP sent to your email."})
}

func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req dto.VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.authService.VerifyOTP(c.UserContext(), &req); err != nil {
		return h.respondError(c, "verify-otp", err)
	}

	return c.JSON(dto.MessageResponse{Message: "Account verified successfully."})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return h.respondError(c, "login", err)
	}

	return c.JSON(resp)
}

// Me returns the profile of the caller identified by the session token.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Code: "unauthorized", Message: "Unauthorized",
		})
	}

	user, err := h.authService.Profile(c.UserContext(), identity.Email)
	if err != nil {
		return h.respondError(c, "me", err)
	}
	if user.ID != identity.UserID {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Code: "unauthorized", Message: "Unauthorized",
		})
	}

	return c.JSON(user)
}
