package handlers

import (
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/services"
)

// Category codes returned in the "code" field of error responses.
const (
	CodeInvalidBody          = "invalid_body"
	CodeMissingField         = "missing_field"
	CodeInvalidEmail         = "invalid_email"
	CodeWeakPassword         = "weak_password"
	CodePasswordTooLong      = "password_too_long"
	CodeInvalidEnum          = "invalid_enum"
	CodeInvalidDate          = "invalid_date"
	CodeEmailExists          = "email_exists"
	CodeEmailAlreadyVerified = "email_already_verified"
	CodeNotFound             = "not_found"
	CodeAlreadyVerified      = "already_verified"
	CodeInvalidOrExpiredOTP  = "invalid_or_expired_otp"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeNotVerified          = "not_verified"
	CodeUnexpected           = "unexpected"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Messages shown to callers. Wrong and expired codes share one message, as
// do unknown emails and wrong passwords.
var errorMappings = []errorMapping{
	{services.ErrMissingField, fiber.StatusBadRequest, CodeMissingField, "All fields are required."},
	{services.ErrInvalidEmail, fiber.StatusBadRequest, CodeInvalidEmail, "Invalid email format."},
	{services.ErrWeakPassword, fiber.StatusBadRequest, CodeWeakPassword, "Password must be at least 6 characters."},
	{services.ErrPasswordTooLong, fiber.StatusBadRequest, CodePasswordTooLong, "Password must be at most 72 bytes."},
	{services.ErrInvalidGender, fiber.StatusBadRequest, CodeInvalidEnum, "Invalid gender preference."},
	{services.ErrInvalidDate, fiber.StatusBadRequest, CodeInvalidDate, "Invalid date of birth."},
	{services.ErrEmailTaken, fiber.StatusConflict, CodeEmailExists, "Email already exists."},
	{services.ErrEmailAlreadyVerified, fiber.StatusConflict, CodeEmailAlreadyVerified, "Email already exists and is verified."},
	{services.ErrUserNotFound, fiber.StatusNotFound, CodeNotFound, "User not found."},
	{services.ErrAlreadyVerified, fiber.StatusConflict, CodeAlreadyVerified, "User already verified."},
	{services.ErrInvalidOrExpiredOTP, fiber.StatusBadRequest, CodeInvalidOrExpiredOTP, "Invalid or expired OTP."},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password."},
	{services.ErrNotVerified, fiber.StatusForbidden, CodeNotVerified, "Please verify your email with OTP before logging in."},
}

// missingFieldMessages overrides the generic missing-field text per operation.
var missingFieldMessages = map[string]string{
	"verify-otp": "Email and OTP are required.",
	"login":      "Email and password are required.",
}

// classify maps a service error to its status, category and message. ok is
// false for errors that are not part of the business taxonomy.
func classify(err error) (status int, code, message string, ok bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.message, true
		}
	}
	return fiber.StatusInternalServerError, CodeUnexpected, "Server error", false
}

func (h *AuthHandler) respondError(c *fiber.Ctx, op string, err error) error {
	status, code, message, ok := classify(err)
	if ok {
		if code == CodeMissingField {
			if msg, found := missingFieldMessages[op]; found {
				message = msg
			}
		}
		return c.Status(status).JSON(dto.ErrorResponse{Error: true, Code: code, Message: message})
	}

	slog.Error("unexpected error", "action", op, "method", c.Method(), "path", c.Path(),
		"request_id", requestID(c), "error", err.Error())
	captureException(c, err)

	resp := dto.ErrorResponse{Error: true, Code: CodeUnexpected, Message: message}
	if !h.exposeDetail {
		return c.Status(status).JSON(resp)
	}
	resp.Detail = err.Error()
	return c.Status(status).JSON(resp)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Code: CodeInvalidBody, Message: "Invalid request body",
	})
}

// ErrorHandler renders errors that escape route handlers, such as fiber
// routing errors and recovered panics. Details of 5xx errors are only
// exposed outside production.
func ErrorHandler(exposeDetail bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		}

		resp := dto.ErrorResponse{Error: true, Code: codeForStatus(code), Message: message}
		if code >= fiber.StatusInternalServerError {
			slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(),
				"request_id", requestID(c), "error", err.Error())
			captureException(c, err)
			resp.Message = "Internal server error"
			if exposeDetail {
				resp.Detail = err.Error()
			}
		}

		return c.Status(code).JSON(resp)
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusTooManyRequests:
		return "rate_limited"
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
		return CodeInvalidBody
	}
	if status >= fiber.StatusInternalServerError {
		return CodeUnexpected
	}
	return "error"
}

func captureException(c *fiber.Ctx, err error) {
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
		return
	}
	if sentry.CurrentHub().Client() != nil {
		sentry.CaptureException(err)
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
