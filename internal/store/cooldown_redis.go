package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cooldownKeyPrefix = "cooldown:last_reply:"

	// Keys expire well past any reasonable cooldown so the store does not
	// accumulate tenants forever.
	cooldownKeyTTL = 7 * 24 * time.Hour
)

// RedisCooldownStore is a CooldownStore backed by Redis, for deployments
// where cooldown enforcement must survive restarts or span instances.
type RedisCooldownStore struct {
	client *redis.Client
}

// NewRedisCooldownStore creates a redis-backed cooldown store.
func NewRedisCooldownStore(client *redis.Client) *RedisCooldownStore {
	return &RedisCooldownStore{client: client}
}

// LastReply implements CooldownStore. A missing key is the zero time, not
// an error.
func (s *RedisCooldownStore) LastReply(ctx context.Context, tenantID string) (time.Time, error) {
	val, err := s.client.Get(ctx, cooldownKeyPrefix+tenantID).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// RecordReply implements CooldownStore.
func (s *RedisCooldownStore) RecordReply(ctx context.Context, tenantID string, at time.Time) error {
	return s.client.Set(ctx, cooldownKeyPrefix+tenantID, at.Format(time.RFC3339Nano), cooldownKeyTTL).Err()
}
