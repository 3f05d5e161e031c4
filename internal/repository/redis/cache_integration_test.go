package redisrepo

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	rc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Terminate(context.Background()) })

	addr, err := rc.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	return New(client)
}

func TestAvailabilityGenerationStrandsRacingFill(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	day := time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC)
	at := day.Add(19 * time.Hour)

	before, err := c.AvailabilityGeneration(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, "0.0", before)

	// A reader takes the generation and queries; a booking commits and
	// invalidates before the reader writes its now stale answer.
	require.NoError(t, c.InvalidateAvailability(ctx, day))
	stale := KeyAvailability(at, false, 0, 0, before)
	require.NoError(t, SetJSON(ctx, c, stale, []int64{1, 2}, time.Minute))

	after, err := c.AvailabilityGeneration(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, "0.1", after)

	calls := 0
	got, err := GetOrSetJSON(ctx, c, KeyAvailability(at, false, 0, 0, after), time.Minute,
		func(context.Context) ([]int64, error) {
			calls++
			return []int64{2}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, got)
	assert.Equal(t, 1, calls, "fresh generation misses the stale entry")

	other, err := c.AvailabilityGeneration(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "0.0", other, "other days keep their generation")

	require.NoError(t, c.InvalidateAvailability(ctx))
	all, err := c.AvailabilityGeneration(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "1.0", all)
}

func TestInvalidateReportsWithoutDaysDropsSummaries(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	day := time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, SetJSON(ctx, c, KeyDailySummary(day), map[string]int{"orders_total": 3}, time.Minute))
	require.NoError(t, SetJSON(ctx, c, KeyPopularDishes(5), []string{"Borscht"}, time.Minute))

	require.NoError(t, c.InvalidateReports(ctx))

	_, ok, err := c.GetString(ctx, KeyDailySummary(day))
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.GetString(ctx, KeyPopularDishes(5))
	require.NoError(t, err)
	assert.False(t, ok)
}
