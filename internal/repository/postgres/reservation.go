package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/repository"
)

type ReservationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// ReservationFilter narrows List. Zero values mean "any"; To is exclusive.
type ReservationFilter struct {
	From     time.Time
	To       time.Time
	TableID  int64
	StatusID int64
}

const reservationSelect = `
	SELECT b.id, b.table_id, t.hall_id, h.name, b.status_id, s.name,
	       b.reserved_at, b.guest_name, b.guest_phone, b.people_count
	FROM booking b
	JOIN restaurant_table t ON t.id = b.table_id
	JOIN hall h ON h.id = t.hall_id
	JOIN booking_status s ON s.id = b.status_id`

// AvailableTables lists tables with no non-cancelled reservation in [from, to).
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - from, to: the slot being asked about, restaurant wall-clock time.
//   - f: optional hall and minimum capacity filters.
//
// Returns:
//   - []domain.Table: the free tables ordered by hall and id.
func (r *ReservationRepo) AvailableTables(
	ctx context.Context,
	from, to time.Time,
	f TableFilter,
) ([]domain.Table, error) {
	const op = "postgresrepo.ReservationRepo.AvailableTables"

	rows, err := r.handle().Query(ctx,
		`SELECT t.id, t.hall_id, h.name, t.capacity
		 FROM restaurant_table t
		 JOIN hall h ON h.id = t.hall_id
		 WHERE ($3 = 0 OR t.hall_id = $3)
		   AND t.capacity >= $4
		   AND NOT EXISTS (
		       SELECT 1 FROM booking b
		       WHERE b.table_id = t.id
		         AND b.status_id <> $5
		         AND b.reserved_at >= $1 AND b.reserved_at < $2
		   )
		 ORDER BY t.hall_id, t.id`,
		from, to, f.HallID, f.MinCapacity, domain.StatusCancelled,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, scanTable)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// FindConflict returns the id of a non-cancelled reservation on tableID in [from, to),
// ignoring excludeID. ok is false when the slot is free.
func (r *ReservationRepo) FindConflict(
	ctx context.Context,
	tableID int64,
	from, to time.Time,
	excludeID int64,
) (id int64, ok bool, err error) {
	const op = "postgresrepo.ReservationRepo.FindConflict"

	err = r.handle().QueryRow(ctx,
		`SELECT id FROM booking
		 WHERE table_id = $1
		   AND status_id <> $4
		   AND reserved_at >= $2 AND reserved_at < $3
		   AND id <> $5
		 ORDER BY reserved_at
		 LIMIT 1`,
		tableID, from, to, domain.StatusCancelled, excludeID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapDBErr(op, err)
	}

	return id, true, nil
}

// Create inserts a reservation.
//
// Returns:
//   - int64: the new reservation id.
//   - error: repository.ErrReferenced if the table or status does not exist.
func (r *ReservationRepo) Create(ctx context.Context, b domain.Reservation) (int64, error) {
	const op = "postgresrepo.ReservationRepo.Create"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO booking (table_id, status_id, reserved_at, guest_name, guest_phone, people_count)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		b.TableID, b.StatusID, b.At, b.GuestName, b.GuestPhone, b.PeopleCount,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves a reservation with its hall and status names.
//
// Returns:
//   - error: repository.ErrNotFound if the reservation is not found.
func (r *ReservationRepo) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.Get"

	rows, err := r.handle().Query(ctx, reservationSelect+` WHERE b.id = $1`, id)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanReservation)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

func (r *ReservationRepo) List(ctx context.Context, f ReservationFilter) ([]domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.List"

	var from, to *time.Time
	if !f.From.IsZero() {
		from = &f.From
	}
	if !f.To.IsZero() {
		to = &f.To
	}

	rows, err := r.handle().Query(ctx,
		reservationSelect+`
		 WHERE ($1::timestamp IS NULL OR b.reserved_at >= $1)
		   AND ($2::timestamp IS NULL OR b.reserved_at < $2)
		   AND ($3 = 0 OR b.table_id = $3)
		   AND ($4 = 0 OR b.status_id = $4)
		 ORDER BY b.reserved_at, b.id`,
		from, to, f.TableID, f.StatusID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, scanReservation)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Update rewrites every mutable column of the reservation.
func (r *ReservationRepo) Update(ctx context.Context, b domain.Reservation) error {
	const op = "postgresrepo.ReservationRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE booking
		 SET table_id = $2, status_id = $3, reserved_at = $4,
		     guest_name = $5, guest_phone = $6, people_count = $7
		 WHERE id = $1`,
		b.ID, b.TableID, b.StatusID, b.At, b.GuestName, b.GuestPhone, b.PeopleCount,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes a reservation and returns its datetime.
func (r *ReservationRepo) Delete(ctx context.Context, id int64) (time.Time, error) {
	const op = "postgresrepo.ReservationRepo.Delete"

	var at time.Time
	if err := r.handle().QueryRow(ctx,
		`DELETE FROM booking WHERE id = $1 RETURNING reserved_at`,
		id,
	).Scan(&at); err != nil {
		return time.Time{}, wrapDBErr(op, err)
	}

	return at, nil
}

func (r *ReservationRepo) Statuses(ctx context.Context) ([]domain.ReservationStatus, error) {
	const op = "postgresrepo.ReservationRepo.Statuses"

	rows, err := r.handle().Query(ctx, `SELECT id, name FROM booking_status ORDER BY id`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ReservationStatus, error) {
		var s domain.ReservationStatus
		err := row.Scan(&s.ID, &s.Name)
		return s, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ReservationRepo) StatusExists(ctx context.Context, id int64) (bool, error) {
	const op = "postgresrepo.ReservationRepo.StatusExists"

	var ok bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM booking_status WHERE id = $1)`,
		id,
	).Scan(&ok); err != nil {
		return false, wrapDBErr(op, err)
	}

	return ok, nil
}

func scanReservation(row pgx.CollectableRow) (domain.Reservation, error) {
	var b domain.Reservation
	err := row.Scan(
		&b.ID,
		&b.TableID,
		&b.HallID,
		&b.HallName,
		&b.StatusID,
		&b.StatusName,
		&b.At,
		&b.GuestName,
		&b.GuestPhone,
		&b.PeopleCount,
	)
	return b, err
}
