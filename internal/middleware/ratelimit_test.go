package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { database.RedisClient = nil })
	return mr
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(handler http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/circles", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	setupTestRedis(t)
	handler := RateLimitMiddleware(okHandler())

	for i := 0; i < RateLimitMaxRequests; i++ {
		rec := doRequest(handler, "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := doRequest(handler, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitBlocksIPAfterExceeding(t *testing.T) {
	setupTestRedis(t)
	handler := RateLimitMiddleware(okHandler())

	for i := 0; i < RateLimitMaxRequests+1; i++ {
		doRequest(handler, "10.0.0.2")
	}

	blocked, err := IsIPBlocked("10.0.0.2")
	require.NoError(t, err)
	assert.True(t, blocked)

	// Still rejected even though the window counter is irrelevant now.
	rec := doRequest(handler, "10.0.0.2")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	require.NoError(t, UnblockIP("10.0.0.2"))
	blocked, err = IsIPBlocked("10.0.0.2")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRateLimitIsolatesIPs(t *testing.T) {
	setupTestRedis(t)
	handler := RateLimitMiddleware(okHandler())

	for i := 0; i < RateLimitMaxRequests+1; i++ {
		doRequest(handler, "10.0.0.3")
	}

	rec := doRequest(handler, "10.0.0.4")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitWindowReset(t *testing.T) {
	mr := setupTestRedis(t)
	handler := RateLimitMiddleware(okHandler())

	for i := 0; i < RateLimitMaxRequests; i++ {
		doRequest(handler, "10.0.0.5")
	}

	mr.FastForward(RateLimitWindow * 2)

	rec := doRequest(handler, "10.0.0.5")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitHeaders(t *testing.T) {
	setupTestRedis(t)
	handler := RateLimitMiddleware(okHandler())

	rec := doRequest(handler, "10.0.0.6")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(okHandler())

	rec := doRequest(handler, "10.0.0.7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestHostCheck(t *testing.T) {
	handler := HostCheck("api.mindbridge.app")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "api.mindbridge.app:443"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "evil.example.com"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Empty allowed host disables the check.
	open := HostCheck("")(okHandler())
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "anything.example.com"
	rec = httptest.NewRecorder()
	open.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
