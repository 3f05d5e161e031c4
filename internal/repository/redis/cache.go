package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/kirinyoku/resto-go/internal/domain"
)

// Cache is a JSON read-through cache. A nil *Cache is valid and caches nothing.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *Cache) GetString(ctx context.Context, key string) (string, bool, error) {
	if !c.enabled() {
		return "", false, nil
	}

	s, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return s, true, nil
}

func (c *Cache) SetString(
	ctx context.Context,
	key string,
	val string,
	ttl time.Duration,
) error {
	if !c.enabled() {
		return nil
	}

	return c.rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 || !c.enabled() {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// DelPattern removes every key matching a glob pattern.
func (c *Cache) DelPattern(ctx context.Context, pattern string) error {
	if !c.enabled() {
		return nil
	}

	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	return c.Del(ctx, keys...)
}

func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var zero T

	s, ok, err := c.GetString(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}

	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return zero, false, err
	}

	return out, true, nil
}

func SetJSON(
	ctx context.Context,
	c *Cache,
	key string,
	val any,
	ttl time.Duration,
) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.SetString(ctx, key, string(b), ttl)
}

// GetOrSetJSON reads key or fills it from loader. Concurrent misses on the same
// key share one loader call. A cache read failure falls through to the loader.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if !c.enabled() {
		return loader(ctx)
	}

	if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
		return v, nil
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v2, ok2, err2 := GetJSON[T](ctx, c, key); err2 == nil && ok2 {
			return v2, nil
		}
		v3, err3 := loader(ctx)
		if err3 != nil {
			return nil, err3
		}
		_ = SetJSON(ctx, c, key, v3, ttl)
		return v3, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, errors.New("type assertion failed")
	}

	return v, nil
}

func (c *Cache) InvalidateDishes(ctx context.Context) error {
	return c.DelPattern(ctx, KeyDishesPattern())
}

// availabilityGenTTL outlives any availability entry, so a counter that expires
// and restarts cannot resurrect an old key.
const availabilityGenTTL = 48 * time.Hour

// AvailabilityGeneration returns the generation availability entries for day
// are filed under. InvalidateAvailability bumps it, so a loader that read the
// database before a booking committed writes its result under a key that later
// readers no longer ask for.
func (c *Cache) AvailabilityGeneration(ctx context.Context, day time.Time) (string, error) {
	if !c.enabled() {
		return "0.0", nil
	}

	vals, err := c.rdb.MGet(ctx, KeyAvailabilityGen(time.Time{}), KeyAvailabilityGen(domain.Day(day))).Result()
	if err != nil {
		return "", err
	}

	return genOf(vals[0]) + "." + genOf(vals[1]), nil
}

func genOf(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return "0"
}

// InvalidateAvailability drops cached free-table lists for the given days, or all of
// them when no day is given.
func (c *Cache) InvalidateAvailability(ctx context.Context, days ...time.Time) error {
	if !c.enabled() {
		return nil
	}

	gens := []string{KeyAvailabilityGen(time.Time{})}
	patterns := []string{KeyAvailabilityPattern()}
	if len(days) > 0 {
		gens, patterns = gens[:0], patterns[:0]
		for _, d := range days {
			gens = append(gens, KeyAvailabilityGen(domain.Day(d)))
			patterns = append(patterns, KeyAvailabilityDayPattern(d))
		}
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range gens {
			pipe.Incr(ctx, k)
			pipe.Expire(ctx, k, availabilityGenTTL)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, p := range patterns {
		if err := c.DelPattern(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateReports drops the popular-dishes ranking and the summaries of the
// given days. With no day given every cached report goes.
func (c *Cache) InvalidateReports(ctx context.Context, days ...time.Time) error {
	if len(days) == 0 {
		return c.DelPattern(ctx, KeyReportsPattern())
	}

	if err := c.DelPattern(ctx, KeyPopularDishesPattern()); err != nil {
		return err
	}

	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, KeyDailySummary(d))
	}

	return c.Del(ctx, keys...)
}
