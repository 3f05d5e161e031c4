package redisrepo

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock   = "LOCK"
	idemPrefix = "RES:"
)

// IdempotencyStore remembers the response of a create call under a client key.
// A key holds either LOCK while the first call runs or RES:<json> after it.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, jsonPayload string) error {
	return s.rdb.Set(ctx, key, idemPrefix+jsonPayload, s.ttl).Err()
}

func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if strings.HasPrefix(v, idemPrefix) {
		return strings.TrimPrefix(v, idemPrefix), true, nil
	}

	return "", false, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
