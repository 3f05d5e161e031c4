package report

import (
	"context"
	"fmt"
	"time"

	"github.com/kirinyoku/resto-go/internal/domain"
	postgresrepo "github.com/kirinyoku/resto-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/resto-go/internal/repository/redis"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPopularLimit = 10
	maxPopularLimit     = 100
	topDishesOfDay      = 5
	defaultBookingDays  = 30
)

type Config struct {
	Location *time.Location
	CacheTTL time.Duration
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
	now   func() time.Time
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Sales aggregates line items of orders placed within the inclusive day range.
//
// Returns:
//   - error: domain.ErrInvalidInput if a bound is missing or the range is reversed.
//   - error: domain.ErrInvalidDate if a bound cannot be parsed.
func (s *Service) Sales(ctx context.Context, actor domain.Actor, from, to string) (*domain.SalesReport, error) {
	const op = "service.report.Sales"

	if err := actor.Require(domain.CapViewReports); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if from == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.InvalidInputError{Field: "start_date", Reason: "is required"})
	}
	if to == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.InvalidInputError{Field: "end_date", Reason: "is required"})
	}

	p, err := s.period(from, to)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rows, err := s.store.Reports().SalesByDish(ctx, p.From, p.To.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.TotalRevenue.Decimal)
	}
	domain.ApplyRevenueShares(rows, total)

	if rows == nil {
		rows = []domain.DishSales{}
	}

	return &domain.SalesReport{
		Period:             p,
		TotalPeriodRevenue: domain.MoneyOf(total.Round(2)),
		PerDish:            rows,
	}, nil
}

// Bookings groups reservations in the day range by status and by day. Unless
// both bounds are given it covers the last 30 days; a lone bound is ignored.
func (s *Service) Bookings(ctx context.Context, actor domain.Actor, from, to string) (*domain.BookingReport, error) {
	const op = "service.report.Bookings"

	if err := actor.Require(domain.CapViewReports); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var (
		p   domain.Period
		err error
	)
	if from == "" || to == "" {
		today := s.today()
		p, err = domain.NewPeriod(today.AddDate(0, 0, -defaultBookingDays), today)
	} else {
		p, err = s.period(from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	end := p.To.AddDate(0, 0, 1)

	var (
		byStatus []domain.StatusShare
		byDay    map[string]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = s.store.Reports().BookingsByStatus(gctx, p.From, end)
		return err
	})
	g.Go(func() error {
		var err error
		byDay, err = s.store.Reports().BookingsByDay(gctx, p.From, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	total, dist := domain.Distribute(byStatus)

	return &domain.BookingReport{
		Period:             p,
		TotalBookings:      total,
		StatusDistribution: dist,
		BookingsByDay:      byDay,
	}, nil
}

// PopularDishes ranks all dishes by all-time quantity sold. limit defaults to 10
// and is capped at 100.
func (s *Service) PopularDishes(ctx context.Context, actor domain.Actor, limit int) ([]domain.PopularDish, error) {
	const op = "service.report.PopularDishes"

	if err := actor.Require(domain.CapViewReports); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	switch {
	case limit < 0:
		return nil, fmt.Errorf("%s:%w", op, domain.InvalidInputError{Field: "limit", Reason: "must not be negative"})
	case limit == 0:
		limit = defaultPopularLimit
	case limit > maxPopularLimit:
		limit = maxPopularLimit
	}

	out, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyPopularDishes(limit),
		s.cfg.CacheTTL,
		func(ctx context.Context) ([]domain.PopularDish, error) {
			return s.store.Reports().PopularDishes(ctx, limit)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// DailySummary rolls up one day of orders and reservations. An empty date means
// today in the restaurant's location.
func (s *Service) DailySummary(ctx context.Context, actor domain.Actor, date string) (*domain.DailySummary, error) {
	const op = "service.report.DailySummary"

	if err := actor.Require(domain.CapViewReports); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	day := s.today()
	if date != "" {
		v, err := domain.ParseDate(date, s.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		day = v
	}

	out, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyDailySummary(day),
		s.cfg.CacheTTL,
		func(ctx context.Context) (domain.DailySummary, error) {
			return s.dailySummary(ctx, day)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

func (s *Service) dailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error) {
	from, to := day, day.AddDate(0, 0, 1)
	repo := s.store.Reports()

	var (
		orders   int64
		revenue  decimal.Decimal
		byStatus []domain.StatusShare
		top      []domain.DishCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, revenue, err = repo.OrderTotals(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = repo.BookingsByStatus(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = repo.TopDishes(gctx, from, to, topDishesOfDay)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DailySummary{}, err
	}

	sum := domain.DailySummary{
		Date:           day.Format(domain.DateLayout),
		OrdersTotal:    orders,
		Revenue:        domain.MoneyOf(revenue.Round(2)),
		AvgOrderValue:  domain.MoneyOf(domain.Average(revenue, orders)),
		TopDishesToday: top,
	}
	if sum.TopDishesToday == nil {
		sum.TopDishesToday = []domain.DishCount{}
	}

	for _, st := range byStatus {
		sum.BookingsTotal += st.Count
		switch st.StatusID {
		case domain.StatusConfirmed:
			sum.BookingsConfirmed = st.Count
		case domain.StatusNew:
			sum.BookingsNew = st.Count
		}
	}

	return sum, nil
}

func (s *Service) period(from, to string) (domain.Period, error) {
	start, err := domain.ParseDate(from, s.cfg.Location)
	if err != nil {
		return domain.Period{}, err
	}

	end, err := domain.ParseDate(to, s.cfg.Location)
	if err != nil {
		return domain.Period{}, err
	}

	return domain.NewPeriod(start, end)
}

func (s *Service) today() time.Time {
	return domain.Day(domain.Wall(s.now().In(s.cfg.Location)))
}
