package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces session keys so the store can share a Redis database
// with other data.
const keyPrefix = "session:"

// defaultStoreTimeout bounds each Redis round trip so a slow store cannot
// stall request handling indefinitely.
const defaultStoreTimeout = 2 * time.Second

// RedisStore is the shared session store backed by Redis. Identities are
// stored as JSON under "session:<token>" with a TTL, so expiry is enforced
// by Redis itself.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &RedisStore{client: client, timeout: timeout}
}

func (s *RedisStore) key(token string) string { return keyPrefix + token }

func (s *RedisStore) Get(ctx context.Context, token string) (domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Identity{}, ErrNotFound
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("session: redis get: %w", err)
	}

	var id domain.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return domain.Identity{}, fmt.Errorf("session: decode identity: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Put(ctx context.Context, token string, id domain.Identity, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("session: encode identity: %w", err)
	}
	if err := s.client.Set(ctx, s.key(token), raw, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Renew(ctx context.Context, token string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.client.Expire(ctx, s.key(token), ttl).Result()
	if err != nil {
		return fmt.Errorf("session: redis expire: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection, used by readiness checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}
