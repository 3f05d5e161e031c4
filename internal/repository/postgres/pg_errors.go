package postgresrepo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/resto-go/internal/repository"
)

// IsRetryable reports serialization failures and deadlocks.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}

	return false
}

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		// unique_violation
		case "23505":
			return repository.ErrConflict
		// foreign_key_violation
		case "23503":
			return repository.ErrReferenced
		}
	}

	return err
}

// wrapDBErr maps common DB errors to repository-level errors and wraps them with
// the provided operation name. Retryable errors keep their pgconn type.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	if IsRetryable(err) {
		return fmt.Errorf("%s:%w", op, err)
	}

	return fmt.Errorf("%s:%w", op, translateDBErr(err))
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
