package uow

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	postgresrepo "github.com/kirinyoku/resto-go/internal/repository/postgres"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// Runner is the transactional part of postgresrepo.Store.
type Runner interface {
	RunTx(ctx context.Context, opts *pgx.TxOptions, fn func(ctx context.Context, tx postgresrepo.DB) error) error
}

// UoW represents a unit of work.
type UoW struct {
	store    Runner
	attempts int
	backoff  time.Duration
}

func NewUoW(store Runner) *UoW {
	return &UoW{store: store, attempts: 5, backoff: 5 * time.Millisecond}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. A serialization
// failure reruns fn from scratch, up to a fixed number of attempts; hooks registered
// by a failed attempt are discarded. After a successful commit, it executes all
// after-commit hooks.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error,
) error {
	var (
		hooks []AfterCommit
		err   error
	)

	for attempt := 1; ; attempt++ {
		hooks = hooks[:0]

		err = u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgresrepo.DB) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil || !postgresrepo.IsRetryable(err) || attempt >= u.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * u.backoff):
		}
	}
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
