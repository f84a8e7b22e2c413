package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/festify/festify/internal/config"
	"github.com/festify/festify/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("not-a-hash", "hunter22"))
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	user := &models.User{ID: 42, Username: "lena"}

	token, err := GenerateToken(cfg, user, true)
	require.NoError(t, err)

	claims, err := ValidateToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "lena", claims.Username)
	assert.True(t, claims.IsOrganizer)
	assert.NotEmpty(t, claims.ID, "token must carry a revocable ID")
}

func TestTokenIDsAreUnique(t *testing.T) {
	cfg := testConfig()
	user := &models.User{ID: 1, Username: "lena"}

	first, err := GenerateToken(cfg, user, false)
	require.NoError(t, err)
	second, err := GenerateToken(cfg, user, false)
	require.NoError(t, err)

	firstClaims, err := ValidateToken(cfg, first)
	require.NoError(t, err)
	secondClaims, err := ValidateToken(cfg, second)
	require.NoError(t, err)
	assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
}

func TestValidateTokenRejectsBadInput(t *testing.T) {
	cfg := testConfig()
	user := &models.User{ID: 1, Username: "lena"}

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateToken(cfg, "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken(cfg, user, false)
		require.NoError(t, err)

		other := testConfig()
		other.JWTSecret = "different-secret"
		_, err = ValidateToken(other, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := testConfig()
		expired.JWTExpiry = -time.Minute
		token, err := GenerateToken(expired, user, false)
		require.NoError(t, err)

		_, err = ValidateToken(cfg, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := ExtractTokenFromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = ExtractTokenFromHeader("bearer abc.def.ghi")
	require.NoError(t, err, "scheme comparison is case-insensitive")
	assert.Equal(t, "abc.def.ghi", token)

	for _, header := range []string{"", "abc.def.ghi", "Basic abc", "Bearer "} {
		_, err := ExtractTokenFromHeader(header)
		assert.ErrorIs(t, err, ErrInvalidAuthHeader, "header %q", header)
	}
}
