package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/repository"
)

type StaffRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *StaffRepo) With(db DB) *StaffRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *StaffRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const employeeSelect = `
	SELECT e.id, e.full_name, e.login, e.password_hash, p.name, COALESCE(e.phone, '')
	FROM employee e
	JOIN position p ON p.id = e.position_id`

// GetByLogin returns repository.ErrNotFound for an unknown login.
func (r *StaffRepo) GetByLogin(ctx context.Context, login string) (*domain.Employee, error) {
	const op = "postgresrepo.StaffRepo.GetByLogin"

	rows, err := r.handle().Query(ctx, employeeSelect+` WHERE e.login = $1`, login)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	e, err := pgx.CollectExactlyOneRow(rows, scanEmployee)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

func (r *StaffRepo) Get(ctx context.Context, id int64) (*domain.Employee, error) {
	const op = "postgresrepo.StaffRepo.Get"

	rows, err := r.handle().Query(ctx, employeeSelect+` WHERE e.id = $1`, id)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	e, err := pgx.CollectExactlyOneRow(rows, scanEmployee)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

func (r *StaffRepo) List(ctx context.Context) ([]domain.Employee, error) {
	const op = "postgresrepo.StaffRepo.List"

	rows, err := r.handle().Query(ctx, employeeSelect+` ORDER BY e.id`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, scanEmployee)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Create inserts an employee, resolving the position by role name.
//
// Returns:
//   - error: repository.ErrConflict if the login is taken.
//   - error: repository.ErrNotFound if the role has no position row.
func (r *StaffRepo) Create(ctx context.Context, e domain.Employee) (int64, error) {
	const op = "postgresrepo.StaffRepo.Create"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO employee (full_name, login, password_hash, position_id, phone)
		 SELECT $1, $2, $3, p.id, NULLIF($5, '')
		 FROM position p
		 WHERE p.name = $4
		 RETURNING id`,
		e.FullName, e.Login, e.PasswordHash, string(e.Role), e.Phone,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Update rewrites the profile fields and role. An empty PasswordHash keeps the
// stored one.
//
// Returns:
//   - error: repository.ErrNotFound if the employee or the role's position is missing.
func (r *StaffRepo) Update(ctx context.Context, e domain.Employee) error {
	const op = "postgresrepo.StaffRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE employee e
		 SET full_name = $2,
		     phone = NULLIF($3, ''),
		     position_id = p.id,
		     password_hash = COALESCE(NULLIF($5, ''), e.password_hash)
		 FROM position p
		 WHERE e.id = $1 AND p.name = $4`,
		e.ID, e.FullName, e.Phone, string(e.Role), e.PasswordHash,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete returns repository.ErrReferenced while orders point at the employee.
func (r *StaffRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgresrepo.StaffRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM employee WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *StaffRepo) Positions(ctx context.Context) ([]domain.Position, error) {
	const op = "postgresrepo.StaffRepo.Positions"

	rows, err := r.handle().Query(ctx, `SELECT id, name FROM position ORDER BY id`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Position])
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *StaffRepo) Count(ctx context.Context) (int64, error) {
	const op = "postgresrepo.StaffRepo.Count"

	var n int64
	if err := r.handle().QueryRow(ctx, `SELECT COUNT(*) FROM employee`).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func scanEmployee(row pgx.CollectableRow) (domain.Employee, error) {
	var e domain.Employee
	err := row.Scan(&e.ID, &e.FullName, &e.Login, &e.PasswordHash, &e.Role, &e.Phone)
	return e, err
}
