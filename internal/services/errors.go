package services

import "errors"

var (
	ErrMissingField    = errors.New("all fields are required")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrWeakPassword    = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
	ErrInvalidGender   = errors.New("invalid gender preference")
	ErrInvalidDate     = errors.New("invalid date of birth")

	ErrEmailTaken           = errors.New("email already exists")
	ErrEmailAlreadyVerified = errors.New("email already exists and is verified")
	ErrUserNotFound         = errors.New("user not found")
	ErrAlreadyVerified      = errors.New("user already verified")
	ErrInvalidOrExpiredOTP  = errors.New("invalid or expired OTP")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrNotVerified          = errors.New("please verify your email with OTP before logging in")
)

// missingFieldError carries an operation-specific message but still matches
// ErrMissingField.
type missingFieldError struct {
	msg string
}

func missingField(msg string) error {
	return &missingFieldError{msg: msg}
}

func (e *missingFieldError) Error() string { return e.msg }

func (e *missingFieldError) Is(target error) bool { return target == ErrMissingField }
