package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/profile-service/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps track of open sessions so they can be revoked before their
// tokens expire.
type SessionStore interface {
	Create(ctx context.Context, externalID string, provider domain.Provider, ttl time.Duration) (*domain.Session, error)
	Lookup(ctx context.Context, sessionID string) (string, error)
	RevokeAll(ctx context.Context, externalID string) (int64, error)
}

// RedisSessionStore maps session:<id> to the owning external id and indexes the
// sessions of each user under sessions:user:<externalID>.
type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func sessionKey(id string) string              { return "session:" + id }
func userSessionsKey(externalID string) string { return "sessions:user:" + externalID }

func (s *RedisSessionStore) Create(ctx context.Context, externalID string, provider domain.Provider, ttl time.Duration) (*domain.Session, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Provider:   provider,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), externalID, ttl)
	pipe.SAdd(ctx, userSessionsKey(externalID), session.ID)
	pipe.Expire(ctx, userSessionsKey(externalID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// Lookup returns the external id owning the session.
func (s *RedisSessionStore) Lookup(ctx context.Context, sessionID string) (string, error) {
	externalID, err := s.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	return externalID, err
}

// RevokeAll closes every session of the user and reports how many were open.
func (s *RedisSessionStore) RevokeAll(ctx context.Context, externalID string) (int64, error) {
	ids, err := s.rdb.SMembers(ctx, userSessionsKey(externalID)).Result()
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(externalID))

	removed, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		// the index key itself is counted by Del
		removed--
	}
	return removed, nil
}
