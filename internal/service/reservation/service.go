package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/resto-go/internal/broker"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/repository"
	postgresrepo "github.com/kirinyoku/resto-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/resto-go/internal/repository/redis"
	"github.com/kirinyoku/resto-go/internal/uow"
)

type Config struct {
	Location        *time.Location
	Slot            domain.SlotPolicy
	AvailabilityTTL time.Duration
}

type Service struct {
	store     *postgresrepo.Store
	cache     *redisrepo.Cache
	limiter   *redisrepo.SlidingWindowLimiter
	publisher *broker.Publisher
	uow       *uow.UoW
	logger    *slog.Logger
	cfg       Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	limiter *redisrepo.SlidingWindowLimiter,
	publisher *broker.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:     store,
		cache:     cache,
		limiter:   limiter,
		publisher: publisher,
		uow:       uow.NewUoW(store),
		logger:    logger,
		cfg:       cfg,
	}
}

// AvailabilityQuery asks for free tables at a date or date-time.
type AvailabilityQuery struct {
	DateTime    string
	MinCapacity int
	HallID      int64
}

type CreateInput struct {
	TableID     int64
	GuestName   string
	GuestPhone  string
	PeopleCount int
	DateTime    string
	StatusID    int64
	// RateKey identifies the caller for rate limiting; empty disables the limit.
	RateKey string
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	TableID     *int64
	GuestName   *string
	GuestPhone  *string
	PeopleCount *int
	DateTime    *string
	StatusID    *int64
}

// ListFilter narrows List. Dates are inclusive calendar days.
type ListFilter struct {
	From     string
	To       string
	TableID  int64
	StatusID int64
}

// FindAvailableTables returns every table with no non-cancelled reservation in
// the slot around the requested time.
//
// Parameters:
//   - ctx: request-scoped context.
//   - q: the date or date-time asked about plus optional hall and capacity filters.
//
// Returns:
//   - []domain.Table: the free tables.
//   - error: domain.ErrInvalidDate if the date cannot be parsed.
func (s *Service) FindAvailableTables(ctx context.Context, q AvailabilityQuery) ([]domain.Table, error) {
	const op = "service.reservation.FindAvailableTables"

	at, dateOnly, err := domain.ParseDateTime(q.DateTime, s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	from, to := s.cfg.Slot.Span(at, dateOnly)

	load := func(ctx context.Context) ([]domain.Table, error) {
		return s.store.Reservations().AvailableTables(ctx, from, to, postgresrepo.TableFilter{
			HallID:      q.HallID,
			MinCapacity: q.MinCapacity,
		})
	}

	// Read before querying: a booking committed after this point bumps the
	// generation and strands whatever the loader writes below.
	gen, err := s.cache.AvailabilityGeneration(ctx, at)
	if err != nil {
		s.logger.Warn("availability generation read failed", "error", err)

		tables, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return tables, nil
	}

	tables, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyAvailability(at, dateOnly, q.HallID, q.MinCapacity, gen),
		s.cfg.AvailabilityTTL,
		load,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return tables, nil
}

// Create books a table. The capacity and slot checks run in the same
// serializable transaction as the insert.
//
// Returns:
//   - error: domain.ErrNotFound if the table or status does not exist.
//   - error: domain.ErrCapacityExceeded if the party is larger than the table.
//   - error: domain.ErrConflict if the table is already booked for the slot.
//   - error: domain.ErrInvalidDate / domain.ErrInvalidInput on bad input.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Reservation, error) {
	const op = "service.reservation.Create"

	if err := actor.Require(domain.CapManageReservations); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	b := domain.Reservation{
		TableID:     in.TableID,
		StatusID:    in.StatusID,
		GuestName:   strings.TrimSpace(in.GuestName),
		GuestPhone:  strings.TrimSpace(in.GuestPhone),
		PeopleCount: in.PeopleCount,
	}
	if b.StatusID == 0 {
		b.StatusID = domain.StatusNew
	}

	at, _, err := domain.ParseDateTime(in.DateTime, s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	b.At = at

	if err := validate(b); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if in.RateKey != "" {
		d, err := s.limiter.Allow(ctx, in.RateKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !d.Allowed {
			return nil, fmt.Errorf("%s:%w", op, domain.RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	var out *domain.Reservation

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.check(ctx, tx, b); err != nil {
			return err
		}

		id, err := s.store.Reservations().With(tx).Create(ctx, b)
		if err != nil {
			return err
		}

		out, err = s.store.Reservations().With(tx).Get(ctx, id)
		if err != nil {
			return err
		}

		created := *out
		after(func(ctx context.Context) {
			s.invalidate(ctx, created.At)
			if err := s.publisher.Publish(ctx, broker.QueueReservationCreated, broker.ReservationCreated{
				ReservationID: created.ID,
				TableID:       created.TableID,
				At:            created.At,
				PeopleCount:   created.PeopleCount,
				StaffID:       actor.StaffID,
			}); err != nil {
				s.logger.Warn("publish reservation.created failed", "reservation_id", created.ID, "error", err)
			}
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, txErr(err))
	}

	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "service.reservation.Get"

	b, err := s.store.Reservations().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, notFound(err, "reservation", id))
	}

	return b, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Reservation, error) {
	const op = "service.reservation.List"

	rf := postgresrepo.ReservationFilter{TableID: f.TableID, StatusID: f.StatusID}

	if f.From != "" {
		from, err := domain.ParseDate(f.From, s.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		rf.From = from
	}

	if f.To != "" {
		to, err := domain.ParseDate(f.To, s.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		rf.To = to.AddDate(0, 0, 1)
	}

	out, err := s.store.Reservations().List(ctx, rf)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Update applies a partial update. Changing the table, time, party size or
// status re-runs the capacity and slot checks.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id int64, in UpdateInput) (*domain.Reservation, error) {
	const op = "service.reservation.Update"

	if err := actor.Require(domain.CapManageReservations); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var at *time.Time
	if in.DateTime != nil {
		v, _, err := domain.ParseDateTime(*in.DateTime, s.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		at = &v
	}

	var out *domain.Reservation

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		repo := s.store.Reservations().With(tx)

		cur, err := repo.Get(ctx, id)
		if err != nil {
			return notFound(err, "reservation", id)
		}

		next := *cur
		if in.TableID != nil {
			next.TableID = *in.TableID
		}
		if in.GuestName != nil {
			next.GuestName = strings.TrimSpace(*in.GuestName)
		}
		if in.GuestPhone != nil {
			next.GuestPhone = strings.TrimSpace(*in.GuestPhone)
		}
		if in.PeopleCount != nil {
			next.PeopleCount = *in.PeopleCount
		}
		if at != nil {
			next.At = *at
		}
		if in.StatusID != nil {
			next.StatusID = *in.StatusID
		}

		if err := validate(next); err != nil {
			return err
		}

		if in.TableID != nil || in.PeopleCount != nil || in.DateTime != nil || in.StatusID != nil {
			if err := s.check(ctx, tx, next); err != nil {
				return err
			}
		}

		if err := repo.Update(ctx, next); err != nil {
			return err
		}

		out, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}

		prev, now := cur.At, out.At
		after(func(ctx context.Context) {
			s.invalidate(ctx, prev, now)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, txErr(err))
	}

	return out, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	const op = "service.reservation.Delete"

	if err := actor.Require(domain.CapManageReservations); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	at, err := s.store.Reservations().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, notFound(err, "reservation", id))
	}

	s.invalidate(ctx, at)

	return nil
}

func (s *Service) Statuses(ctx context.Context) ([]domain.ReservationStatus, error) {
	const op = "service.reservation.Statuses"

	out, err := s.store.Reservations().Statuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// check validates b against the table, the status dictionary and the other
// bookings of the table. It runs inside the caller's transaction.
func (s *Service) check(ctx context.Context, tx postgresrepo.DB, b domain.Reservation) error {
	table, err := s.store.Catalog().With(tx).GetTable(ctx, b.TableID)
	if err != nil {
		return notFound(err, "table", b.TableID)
	}

	if b.PeopleCount > table.Capacity {
		return domain.CapacityExceededError{
			TableID:   table.ID,
			Capacity:  table.Capacity,
			Requested: b.PeopleCount,
		}
	}

	ok, err := s.store.Reservations().With(tx).StatusExists(ctx, b.StatusID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFoundError{Entity: "reservation status", ID: b.StatusID}
	}

	if b.StatusID == domain.StatusCancelled {
		return nil
	}

	from, to := s.cfg.Slot.Span(b.At, false)
	other, taken, err := s.store.Reservations().With(tx).FindConflict(ctx, b.TableID, from, to, b.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ReservationConflictError{TableID: b.TableID, ReservationID: other}
	}

	return nil
}

func (s *Service) invalidate(ctx context.Context, at ...time.Time) {
	var days []time.Time
	for _, t := range at {
		days = append(days, s.cfg.Slot.AffectedDays(t)...)
	}

	if err := s.cache.InvalidateAvailability(ctx, days...); err != nil {
		s.logger.Warn("availability cache invalidation failed", "error", err)
	}
	if err := s.cache.InvalidateReports(ctx, days...); err != nil {
		s.logger.Warn("report cache invalidation failed", "error", err)
	}
}

func validate(b domain.Reservation) error {
	switch {
	case b.GuestName == "":
		return domain.InvalidInputError{Field: "guest_name", Reason: "is required"}
	case b.GuestPhone == "":
		return domain.InvalidInputError{Field: "guest_phone", Reason: "is required"}
	case b.PeopleCount < 1:
		return domain.InvalidInputError{Field: "people_count", Reason: "must be at least 1"}
	case b.TableID <= 0:
		return domain.InvalidInputError{Field: "table_id", Reason: "is required"}
	}
	return nil
}

// txErr reports a serialization failure that outlived every retry as a booking conflict.
func txErr(err error) error {
	if postgresrepo.IsRetryable(err) {
		return fmt.Errorf("%w: concurrent booking of the same table", domain.ErrConflict)
	}
	if errors.Is(err, repository.ErrReferenced) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundError{Entity: entity, ID: id}
	}
	return err
}
