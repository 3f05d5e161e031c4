package redisrepo

import (
	"fmt"
	"time"

	"github.com/kirinyoku/resto-go/internal/domain"
)

const ns = "restogo:v1"

func KeyDishes(categoryID int64, onlyAvailable bool) string {
	return fmt.Sprintf("%s:dishes:%d:%t", ns, categoryID, onlyAvailable)
}

// KeyDishesPattern matches every cached dish list.
func KeyDishesPattern() string {
	return ns + ":dishes:*"
}

// KeyAvailability caches free tables for a query time under the generation
// read from AvailabilityGeneration. Date-only queries get their own key since
// they always span the whole day.
func KeyAvailability(at time.Time, dateOnly bool, hallID int64, minCapacity int, gen string) string {
	stamp := at.Format("2006-01-02T15:04:05")
	if dateOnly {
		stamp = at.Format(domain.DateLayout)
	}
	return fmt.Sprintf("%s:avail:%s:g%s:%d:%d", ns, stamp, gen, hallID, minCapacity)
}

// KeyAvailabilityGen holds the invalidation counter of one day. The zero day
// names the counter shared by every day.
func KeyAvailabilityGen(day time.Time) string {
	if day.IsZero() {
		return ns + ":availgen:all"
	}
	return fmt.Sprintf("%s:availgen:%s", ns, day.Format(domain.DateLayout))
}

func KeyAvailabilityPattern() string {
	return ns + ":avail:*"
}

// KeyAvailabilityDayPattern matches every availability entry queried for day.
func KeyAvailabilityDayPattern(day time.Time) string {
	return fmt.Sprintf("%s:avail:%s*", ns, day.Format(domain.DateLayout))
}

func KeyPopularDishes(limit int) string {
	return fmt.Sprintf("%s:report:popular:%d", ns, limit)
}

func KeyPopularDishesPattern() string {
	return ns + ":report:popular:*"
}

func KeyReportsPattern() string {
	return ns + ":report:*"
}

func KeyDailySummary(day time.Time) string {
	return fmt.Sprintf("%s:report:daily:%s", ns, day.Format(domain.DateLayout))
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

const idemNS = ns + ":idem"

// KeyIdem scopes an Idempotency-Key to the route and the staff member who sent it.
func KeyIdem(route string, staffID int64, idemKey string) string {
	return fmt.Sprintf("%s:%s:%d:%s", idemNS, route, staffID, idemKey)
}
