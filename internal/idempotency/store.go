package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// Store remembers which request keys have already been applied.
type Store interface {
	// Claim marks key as seen. It returns false when the key was claimed before and has not expired.
	Claim(ctx context.Context, scope, key string) (bool, error)
	// Release forgets a claim so a failed request can be retried.
	Release(ctx context.Context, scope, key string) error
}

// RedisStore implements Store with SET NX and a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func redisKey(scope, key string) string {
	sum := sha256.Sum256([]byte(key))
	return keyPrefix + scope + ":" + hex.EncodeToString(sum[:])
}

func (s *RedisStore) Claim(ctx context.Context, scope, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, redisKey(scope, key), time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// NoopStore accepts every key. Used when no Redis is configured.
type NoopStore struct{}

func (NoopStore) Claim(context.Context, string, string) (bool, error) { return true, nil }
func (NoopStore) Release(context.Context, string, string) error      { return nil }
