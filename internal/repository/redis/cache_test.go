package redisrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCacheFallsThroughToLoader(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) ([]int, error) {
		calls++
		return []int{1, 2, 3}, nil
	}

	for i := 0; i < 2; i++ {
		v, err := GetOrSetJSON(ctx, c, "k", time.Minute, loader)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, v)
	}
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	_, err := GetOrSetJSON(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, c.InvalidateDishes(ctx))
	assert.NoError(t, c.InvalidateReports(ctx, time.Now()))
	assert.NoError(t, c.InvalidateAvailability(ctx, time.Now()))

	gen, err := c.AvailabilityGeneration(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "0.0", gen)
}

func TestNilLimiterAllows(t *testing.T) {
	var l *SlidingWindowLimiter

	d, err := l.Allow(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestKeys(t *testing.T) {
	day := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 8, 19, 30, 0, 0, time.UTC)

	assert.Equal(t, "restogo:v1:avail:2025-03-08T19:30:00:g0.3:2:4", KeyAvailability(evening, false, 2, 4, "0.3"))
	assert.Equal(t, "restogo:v1:avail:2025-03-08:g1.0:0:0", KeyAvailability(day, true, 0, 0, "1.0"))
	assert.Equal(t, "restogo:v1:avail:2025-03-08*", KeyAvailabilityDayPattern(day))
	assert.Equal(t, "restogo:v1:availgen:2025-03-08", KeyAvailabilityGen(day))
	assert.Equal(t, "restogo:v1:availgen:all", KeyAvailabilityGen(time.Time{}))
	assert.Equal(t, "restogo:v1:report:daily:2025-03-08", KeyDailySummary(evening))
	assert.Equal(t, "restogo:v1:idem:orders:7:abc", KeyIdem("orders", 7, "abc"))
	assert.Equal(t, "restogo:v1:dishes:0:true", KeyDishes(0, true))
}
