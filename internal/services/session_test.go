package services

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { database.RedisClient = nil })
	return mr
}

func TestSessionLifecycle(t *testing.T) {
	setupTestRedis(t)
	userID := primitive.NewObjectID()

	token, err := CreateSession(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, valid, err := ValidateSession(token)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, userID, got)

	require.NoError(t, InvalidateSession(token))

	_, valid, err = ValidateSession(token)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestValidateSessionEmptyAndUnknown(t *testing.T) {
	setupTestRedis(t)

	_, valid, err := ValidateSession("")
	require.NoError(t, err)
	assert.False(t, valid)

	_, valid, err = ValidateSession("not-a-real-token")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestCreateSessionInvalidatesPrevious(t *testing.T) {
	setupTestRedis(t)
	userID := primitive.NewObjectID()

	first, err := CreateSession(userID)
	require.NoError(t, err)
	second, err := CreateSession(userID)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, valid, err := ValidateSession(first)
	require.NoError(t, err)
	assert.False(t, valid, "old session must be invalidated on new login")

	_, valid, err = ValidateSession(second)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestSessionExpiry(t *testing.T) {
	mr := setupTestRedis(t)
	userID := primitive.NewObjectID()

	token, err := CreateSession(userID)
	require.NoError(t, err)

	mr.FastForward(SessionDuration / 2)
	require.NoError(t, RefreshSession(token))

	// Without the refresh this would be past the TTL.
	mr.FastForward(SessionDuration * 3 / 4)
	_, valid, err := ValidateSession(token)
	require.NoError(t, err)
	assert.True(t, valid)

	mr.FastForward(SessionDuration * 2)
	_, valid, err = ValidateSession(token)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestInvalidateUserSessions(t *testing.T) {
	setupTestRedis(t)
	userID := primitive.NewObjectID()

	token, err := CreateSession(userID)
	require.NoError(t, err)

	require.NoError(t, InvalidateUserSessions(userID))

	_, valid, err := ValidateSession(token)
	require.NoError(t, err)
	assert.False(t, valid)
}
