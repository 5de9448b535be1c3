package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/models"
)

const minPasswordLength = 6

// Dates of birth are submitted as calendar days in Indian Standard Time.
var birthDateZone = time.FixedZone("IST", 5*60*60+30*60)

var validate = validator.New()

// ValidateSignup checks a signup payload rule by rule and returns the first
// violation. On success it returns the normalized date of birth.
func ValidateSignup(req *dto.SignupRequest) (time.Time, error) {
	if err := validate.Struct(req); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			return time.Time{}, ErrMissingField
		}
		return time.Time{}, err
	}
	if err := validate.Var(req.Email, "email"); err != nil {
		return time.Time{}, ErrInvalidEmail
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return time.Time{}, ErrWeakPassword
	}
	if !models.Gender(req.GenderPreference).Valid() {
		return time.Time{}, ErrInvalidGender
	}
	return NormalizeDateOfBirth(req.DateOfBirth)
}

// NormalizeDateOfBirth converts a YYYY-MM-DD day, taken as local midnight at
// UTC+05:30, into a UTC instant. An RFC 3339 instant is accepted as well and
// returned in UTC unchanged, so normalizing a normalized value is a no-op.
func NormalizeDateOfBirth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, birthDateZone); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidDate
}
