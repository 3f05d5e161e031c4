package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is satisfied by both the pool and a transaction, so repositories run
// unchanged inside or outside a unit of work.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store hands out repositories over one pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RunTx runs fn in a transaction. Without opts the transaction is
// SERIALIZABLE read-write, which the reservation and ledger checks rely on.
// Errors from fn are returned unwrapped so callers can classify them.
func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	const op = "postgresrepo.Store.RunTx"

	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}
	if opts != nil {
		txOpts = *opts
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return wrapDBErr(op, err)
	}

	defer func() {
		// rollback after commit is a no-op
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(op+".commit", err)
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	const op = "postgresrepo.Store.Ping"

	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func (s *Store) Catalog() *CatalogRepo          { return &CatalogRepo{pool: s.pool} }
func (s *Store) Reservations() *ReservationRepo { return &ReservationRepo{pool: s.pool} }
func (s *Store) Ledger() *LedgerRepo            { return &LedgerRepo{pool: s.pool} }
func (s *Store) Reports() *ReportRepo           { return &ReportRepo{pool: s.pool} }
func (s *Store) Staff() *StaffRepo              { return &StaffRepo{pool: s.pool} }
