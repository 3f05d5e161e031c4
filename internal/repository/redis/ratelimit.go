package redisrepo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set of hit timestamps.
// KEYS[1] = key
// ARGV[1] = now_ms
// ARGV[2] = window_ms
// ARGV[3] = limit
// ARGV[4] = member (unique)
const luaSlidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
redis.call('ZADD', key, 'NX', now, member)
local count = redis.call('ZCARD', key)
redis.call('PEXPIRE', key, window)

if count > limit then
  local earliest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local earliestScore = tonumber(earliest[2]) or (now - window)
  local retry_ms = window - (now - earliestScore)
  if retry_ms < 0 then retry_ms = 0 end
  return {0, count, retry_ms}
end
return {1, count, 0}
`

// Decision is the outcome of one limiter hit.
type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// SlidingWindowLimiter allows limit hits per window for each subject.
// A nil limiter allows everything.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
	script *redis.Script
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	scope string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaSlidingWindow),
	}
}

// Allow records a hit for subject (typically a client IP) and reports whether it fits.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, subject string) (Decision, error) {
	if l == nil || l.rdb == nil {
		return Decision{Allowed: true}, nil
	}

	key := KeyRateLimit(l.scope + ":" + subject)
	member, err := randomHex(12)
	if err != nil {
		return Decision{}, err
	}

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{key},
		time.Now().UnixMilli(), l.window.Milliseconds(), l.limit, member,
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("bad script result: %v", res)
	}

	return Decision{
		Allowed:    res[0] == 1,
		Count:      res[1],
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
