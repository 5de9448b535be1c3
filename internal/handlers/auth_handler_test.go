package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/config"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/services"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/store"
)

type capturingNotifier struct {
	mu    sync.Mutex
	codes map[string]int
}

func (n *capturingNotifier) SendOTP(_ context.Context, email string, otp int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[email] = otp
	return nil
}

func (n *capturingNotifier) last(email string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[email]
}

type brokenStore struct{}

func (brokenStore) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) Save(context.Context, *models.User) (*models.User, error) {
	return nil, errors.New("connection refused")
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
		OTPTTL:    5 * time.Minute,
	}
}

func newTestApp(t *testing.T, userStore services.UserStore, exposeDetail bool) (*fiber.App, *capturingNotifier) {
	t.Helper()
	cfg := testConfig()
	notifier := &capturingNotifier{codes: map[string]int{}}
	h := NewAuthHandler(services.NewAuthService(userStore, notifier, cfg), exposeDetail)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(exposeDetail)})
	users := app.Group("/api/users")
	users.Post("/create", h.CreateUser)
	users.Post("/send-otp", h.SendOTP)
	users.Post("/verify-otp", h.VerifyOTP)
	users.Post("/login", h.Login)
	users.Get("/me", middleware.JWTProtected(cfg), h.Me)
	return app, notifier
}

func sqliteStore(t *testing.T) *store.UserStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return store.NewUserStore(db)
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeError(t *testing.T, data []byte) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

const signupBody = `{"firstName":"Asha","lastName":"Rao","email":"asha@example.com","password":"secret1","dateOfBirth":"2000-01-15","genderPreference":"Female"}`

func TestSignupFlow_EndToEnd(t *testing.T) {
	app, notifier := newTestApp(t, sqliteStore(t), false)

	status, body := doJSON(t, app, http.MethodPost, "/api/users/send-otp", signupBody)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.JSONEq(t, `{"message":"OTP sent to your email."}`, string(body))

	otp := notifier.last("asha@example.com")
	require.GreaterOrEqual(t, otp, 100000)
	require.LessOrEqual(t, otp, 999999)

	status, body = doJSON(t, app, http.MethodPost, "/api/users/login", `{"email":"asha@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeNotVerified, decodeError(t, body).Code)

	status, body = doJSON(t, app, http.MethodPost, "/api/users/verify-otp",
		`{"email":"asha@example.com","otp":`+jsonInt(otp)+`}`)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = doJSON(t, app, http.MethodPost, "/api/users/verify-otp",
		`{"email":"asha@example.com","otp":"`+jsonInt(otp)+`"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeAlreadyVerified, decodeError(t, body).Code)

	status, body = doJSON(t, app, http.MethodPost, "/api/users/login", `{"email":"asha@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, "Login successful.", login.Message)
	require.NotEmpty(t, login.Token)

	status, body = doJSON(t, app, http.MethodGet, "/api/users/me", "", "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, status, string(body))
	var me map[string]any
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "asha@example.com", me["email"])
	assert.Equal(t, true, me["isVerified"])
	assert.Equal(t, "2000-01-14T18:30:00Z", me["dateOfBirth"])
	assert.NotContains(t, me, "passwordHash")
	assert.NotContains(t, me, "otp")

	status, body = doJSON(t, app, http.MethodPost, "/api/users/send-otp", signupBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeEmailAlreadyVerified, decodeError(t, body).Code)
}

func TestCreateUser(t *testing.T) {
	app, notifier := newTestApp(t, sqliteStore(t), false)

	status, body := doJSON(t, app, http.MethodPost, "/api/users/create", signupBody)
	require.Equal(t, http.StatusCreated, status, string(body))

	var created map[string]any
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "User created successfully.", created["message"])
	user := created["user"].(map[string]any)
	assert.Equal(t, false, user["isVerified"])
	assert.NotEmpty(t, user["id"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")
	assert.Zero(t, notifier.last("asha@example.com"))

	status, body = doJSON(t, app, http.MethodPost, "/api/users/create", signupBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeEmailExists, decodeError(t, body).Code)

	// A directly created account can still be taken over by send-otp.
	status, _ = doJSON(t, app, http.MethodPost, "/api/users/send-otp", signupBody)
	assert.Equal(t, http.StatusOK, status)
}

func TestValidationErrors(t *testing.T) {
	app, _ := newTestApp(t, sqliteStore(t), false)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing field", `{"firstName":"A","lastName":"B","email":"a@x.com","password":"secret1","dateOfBirth":"2000-01-15"}`, 400, CodeMissingField},
		{"bad email", `{"firstName":"A","lastName":"B","email":"nope","password":"secret1","dateOfBirth":"2000-01-15","genderPreference":"Male"}`, 400, CodeInvalidEmail},
		{"weak password", `{"firstName":"A","lastName":"B","email":"a@x.com","password":"123","dateOfBirth":"2000-01-15","genderPreference":"Male"}`, 400, CodeWeakPassword},
		{"bad gender", `{"firstName":"A","lastName":"B","email":"a@x.com","password":"secret1","dateOfBirth":"2000-01-15","genderPreference":"Other"}`, 400, CodeInvalidEnum},
		{"bad date", `{"firstName":"A","lastName":"B","email":"a@x.com","password":"secret1","dateOfBirth":"15-01-2000","genderPreference":"Male"}`, 400, CodeInvalidDate},
		{"long password", `{"firstName":"A","lastName":"B","email":"a@x.com","password":"` + strings.Repeat("x", 80) + `","dateOfBirth":"2000-01-15","genderPreference":"Male"}`, 400, CodePasswordTooLong},
		{"malformed body", `{"firstName":`, 400, CodeInvalidBody},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, path := range []string{"/api/users/create", "/api/users/send-otp"} {
				status, body := doJSON(t, app, http.MethodPost, path, tc.body)
				assert.Equal(t, tc.status, status, path)
				e := decodeError(t, body)
				assert.True(t, e.Error)
				assert.Equal(t, tc.code, e.Code, path)
				assert.NotEmpty(t, e.Message)
			}
		})
	}
}

func TestVerifyOTP_Errors(t *testing.T) {
	app, notifier := newTestApp(t, sqliteStore(t), false)

	status, body := doJSON(t, app, http.MethodPost, "/api/users/verify-otp", `{"email":"asha@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	e := decodeError(t, body)
	assert.Equal(t, CodeMissingField, e.Code)
	assert.Equal(t, "Email and OTP are required.", e.Message)

	status, body = doJSON(t, app, http.MethodPost, "/api/users/verify-otp", `{"email":"ghost@example.com","otp":123456}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeNotFound, decodeError(t, body).Code)

	status, _ = doJSON(t, app, http.MethodPost, "/api/users/send-otp", signupBody)
	require.Equal(t, http.StatusOK, status)

	wrong := notifier.last("asha@example.com") + 1
	if wrong > 999999 {
		wrong = 100000
	}
	status, body = doJSON(t, app, http.MethodPost, "/api/users/verify-otp",
		`{"email":"asha@example.com","otp":`+jsonInt(wrong)+`}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeInvalidOrExpiredOTP, decodeError(t, body).Code)
}

func TestLogin_BlursUnknownEmailAndWrongPassword(t *testing.T) {
	app, notifier := newTestApp(t, sqliteStore(t), false)

	doJSON(t, app, http.MethodPost, "/api/users/send-otp", signupBody)
	status, _ := doJSON(t, app, http.MethodPost, "/api/users/verify-otp",
		`{"email":"asha@example.com","otp":`+jsonInt(notifier.last("asha@example.com"))+`}`)
	require.Equal(t, http.StatusOK, status)

	s1, b1 := doJSON(t, app, http.MethodPost, "/api/users/login", `{"email":"ghost@example.com","password":"secret1"}`)
	s2, b2 := doJSON(t, app, http.MethodPost, "/api/users/login", `{"email":"asha@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, s1)
	assert.Equal(t, s1, s2)
	assert.JSONEq(t, string(b1), string(b2))

	status, body := doJSON(t, app, http.MethodPost, "/api/users/login", `{"email":"asha@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email and password are required.", decodeError(t, body).Message)
}

func TestMe_RequiresToken(t *testing.T) {
	app, _ := newTestApp(t, sqliteStore(t), false)

	status, body := doJSON(t, app, http.MethodGet, "/api/users/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", decodeError(t, body).Code)

	status, _ = doJSON(t, app, http.MethodGet, "/api/users/me", "", "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUnexpectedErrors(t *testing.T) {
	t.Run("detail hidden in production", func(t *testing.T) {
		app, _ := newTestApp(t, brokenStore{}, false)
		status, body := doJSON(t, app, http.MethodPost, "/api/users/send-otp", signupBody)
		assert.Equal(t, http.StatusInternalServerError, status)
		e := decodeError(t, body)
		assert.Equal(t, CodeUnexpected, e.Code)
		assert.Equal(t, "Server error", e.Message)
		assert.Empty(t, e.Detail)
	})

	t.Run("detail exposed outside production", func(t *testing.T) {
		app, _ := newTestApp(t, brokenStore{}, true)
		status, body := doJSON(t, app, http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"secret1"}`)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Contains(t, decodeError(t, body).Detail, "connection refused")
	})
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	app, _ := newTestApp(t, sqliteStore(t), false)

	status, body := doJSON(t, app, http.MethodGet, "/api/users/nowhere", "")
	assert.Equal(t, http.StatusNotFound, status)
	e := decodeError(t, body)
	assert.True(t, e.Error)
	assert.Equal(t, CodeNotFound, e.Code)
}

func TestClassify(t *testing.T) {
	status, code, _, ok := classify(services.ErrEmailTaken)
	assert.True(t, ok)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, CodeEmailExists, code)

	_, code, _, ok = classify(errors.New("boom"))
	assert.False(t, ok)
	assert.Equal(t, CodeUnexpected, code)
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
