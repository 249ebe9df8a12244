package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/therealdaud/HealthShield/internal/domain"
)

// RedisStateStore persists alert state in Redis as JSON, one key per
// (user, location) timeline. The TTL reaps timelines for users who stop
// sending observations; a reaped key simply restarts from the initial state.
type RedisStateStore struct {
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

// NewRedisStateStore wraps an existing Redis client.
func NewRedisStateStore(client *redis.Client, ttl, opTimeout time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl, opTimeout: opTimeout}
}

func stateKey(key domain.Key) string {
	return "alertstate:" + key.String()
}

func (s *RedisStateStore) Get(ctx context.Context, key domain.Key) (domain.AlertState, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, stateKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AlertState{}, false, nil
	}
	if err != nil {
		return domain.AlertState{}, false, fmt.Errorf("redis get %s: %v: %w", key, err, domain.ErrStorageUnavailable)
	}

	var state domain.AlertState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.AlertState{}, false, fmt.Errorf("decode alert state %s: %v: %w", key, err, domain.ErrStorageUnavailable)
	}
	return state, true, nil
}

func (s *RedisStateStore) Put(ctx context.Context, key domain.Key, state domain.AlertState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode alert state %s: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, stateKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %v: %w", key, err, domain.ErrStorageUnavailable)
	}
	return nil
}

// Ping verifies the Redis connection, for startup checks.
func (s *RedisStateStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}
