package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-service/internal/config"
	apperrors "github.com/spec-kit/profile-service/pkg/util"
)

// KeyFunc identifies the caller a request is counted against.
type KeyFunc func(c *fiber.Ctx) string

// Limiter is a fixed-window request counter kept in Redis. Callers that go over
// the limit are blocked for a configurable period.
type Limiter struct {
	rdb    *redis.Client
	cfg    config.RateLimitConfig
	prefix string
	key    KeyFunc
	logger *zap.Logger
}

func NewLimiter(rdb *redis.Client, cfg config.RateLimitConfig, prefix string, key KeyFunc, logger *zap.Logger) *Limiter {
	return &Limiter{rdb: rdb, cfg: cfg, prefix: prefix, key: key, logger: logger}
}

// Decision is the outcome of counting one request.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Allow counts a request for id. Redis errors are returned with an allowing decision.
func (l *Limiter) Allow(ctx context.Context, id string) (Decision, error) {
	key := l.prefix + ":" + id
	blockKey := key + ":blocked"

	ttl, err := l.rdb.TTL(ctx, blockKey).Result()
	if err != nil {
		return Decision{Allowed: true}, err
	}
	if ttl > 0 {
		return Decision{RetryAfter: ttl}, nil
	}

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{Allowed: true}, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.cfg.Window()).Err(); err != nil {
			return Decision{Allowed: true}, err
		}
	}

	if count > int64(l.cfg.Requests) {
		block := l.cfg.BlockDuration()
		if block <= 0 {
			block = l.cfg.Window()
		}
		if err := l.rdb.Set(ctx, blockKey, "1", block).Err(); err != nil {
			return Decision{Allowed: true}, err
		}
		return Decision{RetryAfter: block}, nil
	}
	return Decision{Allowed: true, Remaining: l.cfg.Requests - int(count)}, nil
}

// Handle is the fiber middleware. A non-positive request budget disables it.
func (l *Limiter) Handle(c *fiber.Ctx) error {
	if l == nil || l.rdb == nil || l.cfg.Requests <= 0 {
		return c.Next()
	}

	id := l.key(c)
	decision, err := l.Allow(c.UserContext(), id)
	if err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request", zap.String("caller", id), zap.Error(err))
		return c.Next()
	}
	if !decision.Allowed {
		seconds := int(decision.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
		return apperrors.NewTooManyRequests(fmt.Sprintf("Try again in %d seconds", seconds))
	}

	c.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Requests))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	return c.Next()
}
