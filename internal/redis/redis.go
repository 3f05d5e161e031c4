package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config describes the Redis instance backing caches, rate limits and
// idempotency keys. Zero timeouts fall back to the defaults below.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

const (
	defaultDialTimeout = 3 * time.Second
	defaultIOTimeout   = time.Second
)

// New connects and pings Redis. The returned client is closed on failure.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	const op = "redis.New"

	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultIOTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultIOTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: ping %s: %w", op, cfg.Addr, err)
	}

	return client, nil
}
