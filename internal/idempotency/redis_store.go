// Package idempotency provides a Redis-backed reservation for submission keys.
// The reservation is a fast-path guard against client retries racing each
// other; the partial unique index on assets.idempotency_key remains the
// authoritative check.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Reservation holds the data stored for each reserved key.
type Reservation struct {
	ReservedBy string    `json:"reserved_by"`
	ReservedAt time.Time `json:"reserved_at"`
}

// RedisStore implements submission-key reservations using Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed reservation store.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "submit:", ttl: ttl}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "submit:", ttl: ttl}
}

func (s *RedisStore) key(submissionKey string) string {
	return s.prefix + submissionKey
}

// Reserve claims a submission key. It returns false when another request
// already holds the key within the TTL window.
func (s *RedisStore) Reserve(ctx context.Context, submissionKey, reservedBy string) (bool, error) {
	data, err := json.Marshal(Reservation{ReservedBy: reservedBy, ReservedAt: time.Now()})
	if err != nil {
		return false, fmt.Errorf("marshal reservation: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(submissionKey), data, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve submission key: %w", err)
	}
	return ok, nil
}

// Release frees a reservation, used when the guarded operation failed before
// writing anything.
func (s *RedisStore) Release(ctx context.Context, submissionKey string) error {
	if err := s.client.Del(ctx, s.key(submissionKey)).Err(); err != nil {
		return fmt.Errorf("release submission key: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
