package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	postgresrepo "github.com/kirinyoku/resto-go/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	errs  []error
	calls int
}

func (f *fakeRunner) RunTx(
	ctx context.Context,
	_ *pgx.TxOptions,
	fn func(ctx context.Context, tx postgresrepo.DB) error,
) error {
	f.calls++
	if err := fn(ctx, nil); err != nil {
		return err
	}
	if len(f.errs) >= f.calls {
		return f.errs[f.calls-1]
	}
	return nil
}

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001"}
}

func TestDoRunsHooksAfterCommit(t *testing.T) {
	r := &fakeRunner{}
	u := NewUoW(r)

	var ran []string
	err := u.Do(context.Background(), func(ctx context.Context, _ postgresrepo.DB, after func(AfterCommit)) error {
		after(func(context.Context) { ran = append(ran, "a") })
		after(func(context.Context) { ran = append(ran, "b") })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestDoRetriesSerializationFailures(t *testing.T) {
	r := &fakeRunner{errs: []error{serializationFailure(), serializationFailure(), nil}}
	u := NewUoW(r)
	u.backoff = 0

	hooks := 0
	err := u.Do(context.Background(), func(ctx context.Context, _ postgresrepo.DB, after func(AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, r.calls)
	assert.Equal(t, 1, hooks, "hooks of failed attempts are dropped")
}

func TestDoGivesUp(t *testing.T) {
	r := &fakeRunner{errs: []error{
		serializationFailure(), serializationFailure(), serializationFailure(),
		serializationFailure(), serializationFailure(), serializationFailure(),
	}}
	u := NewUoW(r)
	u.backoff = 0

	hooks := 0
	err := u.Do(context.Background(), func(ctx context.Context, _ postgresrepo.DB, after func(AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return nil
	})
	assert.True(t, postgresrepo.IsRetryable(err))
	assert.Equal(t, 5, r.calls)
	assert.Zero(t, hooks)
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	r := &fakeRunner{}
	u := NewUoW(r)
	boom := errors.New("boom")

	err := u.Do(context.Background(), func(context.Context, postgresrepo.DB, func(AfterCommit)) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, r.calls)
}
