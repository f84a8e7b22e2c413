package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevoke(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	client := NewWithRedis(rdb)

	mock.ExpectSet("revoked_token:abc-123", "1", time.Hour).SetVal("OK")

	err := client.Revoke(context.Background(), "abc-123", time.Hour)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	client := NewWithRedis(rdb)

	// No expectations: a token past its lifetime needs no key.
	err := client.Revoke(context.Background(), "abc-123", -time.Minute)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsRevoked(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	client := NewWithRedis(rdb)

	mock.ExpectExists("revoked_token:abc-123").SetVal(1)
	revoked, err := client.IsRevoked(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.True(t, revoked)

	mock.ExpectExists("revoked_token:def-456").SetVal(0)
	revoked, err = client.IsRevoked(context.Background(), "def-456")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, mock.ExpectationsWereMet())
}
