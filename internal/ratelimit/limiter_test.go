package ratelimit

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
	"go.uber.org/zap"

	"github.com/spec-kit/profile-service/internal/config"
	apperrors "github.com/spec-kit/profile-service/pkg/util"
)

func byHeader(c *fiber.Ctx) string { return c.Get("X-Caller") }

func newLimiter(t *testing.T, cfg config.RateLimitConfig) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLimiter(rdb, cfg, "rl:test", byHeader, zap.NewNop()), mr
}

func TestAllowBlocksAfterLimit(t *testing.T) {
	l, mr := newLimiter(t, config.RateLimitConfig{Requests: 2, WindowSeconds: 60, BlockSeconds: 30})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	other, err := l.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	mr.FastForward(61 * time.Second)
	d, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func newApp(l *Limiter) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			p := apperrors.ToProblem(err)
			return c.Status(p.Status).SendString(p.Title)
		},
	})
	app.Get("/", l.Handle, func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	return app
}

func hit(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Caller", "fb-1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHandleRejectsWithRetryAfter(t *testing.T) {
	l, _ := newLimiter(t, config.RateLimitConfig{Requests: 1, WindowSeconds: 60, BlockSeconds: 45})
	app := newApp(l)

	resp := hit(t, app)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	resp = hit(t, app)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "45", resp.Header.Get("Retry-After"))
}

func TestHandleFailsOpen(t *testing.T) {
	l, mr := newLimiter(t, config.RateLimitConfig{Requests: 1, WindowSeconds: 60})
	mr.Close()
	app := newApp(l)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(t, app).StatusCode)
	}
}

func TestHandleDisabled(t *testing.T) {
	l, _ := newLimiter(t, config.RateLimitConfig{})
	app := newApp(l)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(t, app).StatusCode)
	}
}
