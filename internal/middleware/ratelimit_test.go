package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// deadRedis returns a client whose server is already gone.
func deadRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	mr.Close()
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCheckRateLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("Test Environment Bypass", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		for i := 0; i < 5; i++ {
			allowed, err := CheckRateLimit(ctx, nil, "bypass", "1", 1, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed)
		}
	})

	t.Run("Redis counter", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		mr, rdb := newTestRedis(t)

		allowed, err := CheckRateLimit(ctx, rdb, "send_chat", "user:u1", 2, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		allowed, _ = CheckRateLimit(ctx, rdb, "send_chat", "user:u1", 2, time.Minute)
		assert.True(t, allowed)
		allowed, _ = CheckRateLimit(ctx, rdb, "send_chat", "user:u1", 2, time.Minute)
		assert.False(t, allowed)

		assert.Equal(t, time.Minute, mr.TTL("rl:send_chat:user:u1"))

		allowed, _ = CheckRateLimit(ctx, rdb, "send_chat", "user:u2", 2, time.Minute)
		assert.True(t, allowed, "limits are per identity")
	})

	t.Run("In-process fallback without Redis", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		allowed, err := CheckRateLimit(ctx, nil, "login-fallback", "ip:1.2.3.4", 1, time.Hour)
		assert.NoError(t, err)
		assert.True(t, allowed)
		allowed, err = CheckRateLimit(ctx, nil, "login-fallback", "ip:1.2.3.4", 1, time.Hour)
		assert.NoError(t, err)
		assert.False(t, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	t.Run("Bypass in test mode", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		app := fiber.New()
		app.Get("/test", RateLimit(nil, 1, time.Minute), ok)

		for i := 0; i < 3; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			_ = resp.Body.Close()
		}
	})

	t.Run("Rejects over limit", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		_, rdb := newTestRedis(t)
		app := fiber.New()
		app.Post("/stories", RateLimit(rdb, 1, time.Minute, "create_story"), ok)

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/stories", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/stories", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("FailOpen when Redis is down", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		rdb := deadRedis(t)
		app := fiber.New()
		app.Get("/test", RateLimit(rdb, 1, time.Minute), ok)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("FailClosed when Redis is down", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		rdb := deadRedis(t)
		app := fiber.New()
		app.Get("/sensitive", RateLimitWithPolicy(rdb, 1, time.Minute, FailClosed), ok)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sensitive", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}
