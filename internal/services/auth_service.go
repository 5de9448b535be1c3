package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/config"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/models"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// UserStore is the persistence boundary for user records.
//
// FindByEmail returns ErrUserNotFound when no record matches. Save inserts
// or updates and returns ErrEmailTaken when the email uniqueness constraint
// rejects the write.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, user *models.User) (*models.User, error)
}

// Notifier delivers a verification code out of band.
type Notifier interface {
	SendOTP(ctx context.Context, email string, otp int) error
}

type AuthService struct {
	store    UserStore
	notifier Notifier
	cfg      *config.Config

	now         func() time.Time
	generateOTP func() (int, error)
}

func NewAuthService(store UserStore, notifier Notifier, cfg *config.Config) *AuthService {
	return &AuthService{
		store:       store,
		notifier:    notifier,
		cfg:         cfg,
		now:         time.Now,
		generateOTP: randomOTP,
	}
}

// Register creates an unverified account without issuing a code. Any
// existing record for the email is a conflict, verified or not.
func (s *AuthService) Register(ctx context.Context, req *dto.SignupRequest) (*dto.UserResponse, error) {
	dob, err := ValidateSignup(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user := &models.User{IsVerified: false}
	if err := applyProfile(user, req, dob); err != nil {
		return nil, err
	}

	saved, err := s.save(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("user created", "action", "register", "email", saved.Email, "user_id", saved.ID.String())
	resp := dto.NewUserResponse(saved)
	return &resp, nil
}

// SendOTP starts or restarts a verification-gated signup. An unverified
// record for the same email is overwritten with the new details and a fresh
// code.
func (s *AuthService) SendOTP(ctx context.Context, req *dto.SignupRequest) error {
	dob, err := ValidateSignup(req)
	if err != nil {
		return err
	}

	user, err := s.store.FindByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		user = &models.User{}
	case err != nil:
		return fmt.Errorf("failed to look up user: %w", err)
	case user.IsVerified:
		return ErrEmailAlreadyVerified
	}

	otp, err := s.generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	expiresAt := s.now().Add(s.otpTTL())

	if err := applyProfile(user, req, dob); err != nil {
		return err
	}
	user.IsVerified = false
	user.OTP = &otp
	user.OTPExpiresAt = &expiresAt

	saved, err := s.save(ctx, user)
	if err != nil {
		return err
	}

	if err := s.notifier.SendOTP(ctx, saved.Email, otp); err != nil {
		slog.Error("otp delivery failed", "action", "send_otp", "email", saved.Email, "error", err)
	}

	slog.Info("otp issued", "action", "send_otp", "email", saved.Email, "expires_at", expiresAt.UTC())
	return nil
}

// VerifyOTP marks the account verified when the code matches and has not
// expired. A wrong code and an expired code produce the same error.
func (s *AuthService) VerifyOTP(ctx context.Context, req *dto.VerifyOTPRequest) error {
	if req.Email == "" || req.OTP == "" {
		return missingField("email and OTP are required")
	}

	user, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}

	if !otpMatches(user, string(req.OTP), s.now()) {
		return ErrInvalidOrExpiredOTP
	}

	user.IsVerified = true
	user.ClearOTP()
	if _, err := s.save(ctx, user); err != nil {
		return err
	}

	slog.Info("user verified", "action", "verify_otp", "email", user.Email, "user_id", user.ID.String())
	return nil
}

// Login returns a signed session token for a verified account. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, missingField("email and password are required")
	}

	user, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.IsVerified {
		return nil, ErrNotVerified
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateSessionToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{Message: "Login successful.", Token: token}, nil
}

// Profile returns the public view of the account that owns email.
func (s *AuthService) Profile(ctx context.Context, email string) (*dto.UserResponse, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

func (s *AuthService) save(ctx context.Context, user *models.User) (*models.User, error) {
	normalizeForSave(user)
	saved, err := s.store.Save(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return saved, nil
}

func (s *AuthService) generateSessionToken(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":    user.ID.String(),
		"userId": user.ID.String(),
		"email":  user.Email,
		"iat":    now.Unix(),
		"exp":    now.Add(s.cfg.JWTExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) otpTTL() time.Duration {
	if s.cfg.OTPTTL > 0 {
		return s.cfg.OTPTTL
	}
	return 5 * time.Minute
}

// applyProfile copies the submitted profile onto user, hashing the password
// and storing the already normalized date of birth.
func applyProfile(user *models.User, req *dto.SignupRequest, dob time.Time) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return ErrPasswordTooLong
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Email = req.Email
	user.PasswordHash = string(hash)
	user.DateOfBirth = dob
	user.GenderPreference = models.Gender(req.GenderPreference)
	return nil
}

// normalizeForSave runs right before every write. Re-normalizing a stored
// date of birth leaves it unchanged.
func normalizeForSave(user *models.User) {
	user.DateOfBirth = user.DateOfBirth.UTC()
	if user.OTPExpiresAt != nil {
		t := user.OTPExpiresAt.UTC()
		user.OTPExpiresAt = &t
	}
}

func otpMatches(user *models.User, candidate string, now time.Time) bool {
	if !user.HasPendingOTP() {
		return false
	}
	code, err := strconv.ParseFloat(candidate, 64)
	if err != nil {
		return false
	}
	return code == float64(*user.OTP) && user.OTPExpiresAt.After(now)
}

func randomOTP() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return 0, err
	}
	return otpMin + int(n.Int64()), nil
}
