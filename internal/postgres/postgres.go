package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN      string
	MaxConns int32
	// AppName shows up in pg_stat_activity.
	AppName string
}

// New opens the pool used by every repository. Sessions run in UTC because
// reservation and order timestamps are stored as wall-clock values without a
// zone and must not be shifted by the server's TimeZone setting.
func New(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	const op = "postgres.New"

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: parse dsn: %w", op, err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	rp := poolCfg.ConnConfig.RuntimeParams
	rp["timezone"] = "UTC"
	if cfg.AppName != "" {
		rp["application_name"] = cfg.AppName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return pool, nil
}
