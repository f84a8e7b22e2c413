package account

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/festify/festify/internal/config"
	"github.com/festify/festify/internal/models"
)

// memoryTokenStore satisfies auth.TokenStore without a redis server.
type memoryTokenStore struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{revoked: make(map[string]bool)}
}

func (s *memoryTokenStore) Revoke(_ context.Context, jti string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = true
	return nil
}

func (s *memoryTokenStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[jti], nil
}

func testSetup(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))

	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}

	r := gin.New()
	NewService(db, cfg, newMemoryTokenStore()).SetupRoutes(r)
	return db, r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func registerBody(username, email string, organizer bool) map[string]interface{} {
	return map[string]interface{}{
		"username":         username,
		"email":            email,
		"password":         "password123",
		"confirm_password": "password123",
		"is_organizer":     organizer,
	}
}

func TestRegister(t *testing.T) {
	db, r := testSetup(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/auth/register", "", registerBody("lena", "lena@example.com", true))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, resp["token"])

	user := resp["user"].(map[string]interface{})
	assert.Equal(t, "lena", user["username"])
	assert.Nil(t, user["password"], "credentials never leave the server")

	var stored models.User
	require.NoError(t, db.Preload("Profile").Where("username = ?", "lena").First(&stored).Error)
	assert.True(t, stored.Profile.IsOrganizer)
	assert.NotEqual(t, "password123", stored.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db, r := testSetup(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/auth/register", "", registerBody("lena", "lena@example.com", false))
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := doJSON(t, r, http.MethodPost, "/api/auth/register", "", registerBody("other", "lena@example.com", false))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already exists", resp["error"])

	// The failed registration created no user.
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	db, r := testSetup(t)

	body := registerBody("lena", "lena@example.com", false)
	body["confirm_password"] = "different"

	w, resp := doJSON(t, r, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Passwords do not match", resp["error"])

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestLogin(t *testing.T) {
	_, r := testSetup(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/auth/register", "", registerBody("lena", "lena@example.com", false))
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("by username", func(t *testing.T) {
		w, resp := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
			"username": "lena",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, resp["token"])
	})

	t.Run("by email", func(t *testing.T) {
		w, resp := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
			"username": "lena@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, resp["token"])
	})

	t.Run("wrong password", func(t *testing.T) {
		w, resp := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
			"username": "lena",
			"password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", resp["error"])
	})

	t.Run("unknown user", func(t *testing.T) {
		w, _ := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
			"username": "nobody",
			"password": "password123",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	_, r := testSetup(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/auth/register", "", registerBody("lena", "lena@example.com", false))
	require.Equal(t, http.StatusCreated, w.Code)
	token := resp["token"].(string)

	w, _ = doJSON(t, r, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The revoked token no longer works.
	w, resp = doJSON(t, r, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked", resp["error"])
}

func TestProfileRequiresAuth(t *testing.T) {
	_, r := testSetup(t)

	w, _ := doJSON(t, r, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/profile/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfilePayload(t *testing.T) {
	db, r := testSetup(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/auth/register", "", registerBody("lena", "lena@example.com", true))
	require.Equal(t, http.StatusCreated, w.Code)
	token := resp["token"].(string)

	var user models.User
	require.NoError(t, db.Where("username = ?", "lena").First(&user).Error)

	event := models.Event{
		HostID:    user.ID,
		Title:     "Hosted by Lena",
		StartTime: time.Date(2026, time.June, 1, 20, 0, 0, 0, time.Local),
		Capacity:  100,
	}
	require.NoError(t, db.Create(&event).Error)
	require.NoError(t, db.Create(&models.Ticket{
		UserID:      user.ID,
		EventID:     event.ID,
		PurchasedAt: time.Now(),
	}).Error)

	w, resp = doJSON(t, r, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "lena", resp["username"])
	assert.Equal(t, true, resp["is_organizer"])
	assert.Len(t, resp["tickets"], 1)
	assert.Len(t, resp["hosted_events"], 1)

	w, resp = doJSON(t, r, http.MethodGet, "/api/profile/tickets", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, resp["count"])
}
