package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/kirinyoku/resto-go/internal/auth"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/postgres"
	postgresrepo "github.com/kirinyoku/resto-go/internal/repository/postgres"
	"github.com/kirinyoku/resto-go/internal/service"
	"github.com/kirinyoku/resto-go/internal/service/catalog"
	"github.com/kirinyoku/resto-go/internal/service/ledger"
	"github.com/kirinyoku/resto-go/internal/service/report"
	"github.com/kirinyoku/resto-go/internal/service/reservation"
	"github.com/kirinyoku/resto-go/internal/service/staff"
)

type env struct {
	svcs   *service.Services
	issuer *auth.Issuer
	admin  domain.Actor
}

func setup(t *testing.T) *env {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	pgC, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("restogo"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, postgres.Migrate(ctx, pool, logger))

	issuer := auth.NewIssuer("integration-secret", time.Hour)
	svcs := service.NewServices(
		postgresrepo.NewStore(pool),
		nil,
		service.Limiters{},
		nil,
		issuer,
		logger,
		service.Config{
			Reservation: reservation.Config{Location: time.UTC},
			Ledger:      ledger.Config{Location: time.UTC},
			Report:      report.Config{Location: time.UTC},
			Staff:       staff.Config{BcryptCost: 4},
		},
	)

	created, err := svcs.Staff.EnsureBootstrapAdmin(ctx, "admin", "admin-secret")
	require.NoError(t, err)
	require.True(t, created)

	tok, err := svcs.Staff.Login(ctx, "admin", "admin-secret", "")
	require.NoError(t, err)
	admin, err := issuer.Parse(tok.Token)
	require.NoError(t, err)

	return &env{svcs: svcs, issuer: issuer, admin: admin}
}

// seed creates a hall with one four-seat table and three dishes, the last
// of which is off the menu.
func (e *env) seed(t *testing.T) (table domain.Table, dishes [3]*domain.Dish) {
	t.Helper()
	ctx := context.Background()

	hall, err := e.svcs.Catalog.CreateHall(ctx, e.admin, "Main hall")
	require.NoError(t, err)

	tbl, err := e.svcs.Catalog.CreateTable(ctx, e.admin, hall.ID, 4)
	require.NoError(t, err)

	cats, err := e.svcs.Catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cats)

	off := false
	inputs := []catalog.DishInput{
		{CategoryID: cats[0].ID, Name: "Borscht", Price: decimal.RequireFromString("450.00")},
		{CategoryID: cats[0].ID, Name: "Olivier", Price: decimal.RequireFromString("380.00")},
		{CategoryID: cats[0].ID, Name: "Seasonal pie", Price: decimal.RequireFromString("200.00"), IsAvailable: &off},
	}
	for i, in := range inputs {
		d, err := e.svcs.Catalog.CreateDish(ctx, e.admin, in)
		require.NoError(t, err)
		dishes[i] = d
	}

	return *tbl, dishes
}

func TestIntegration(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	table, dishes := e.seed(t)
	borscht, olivier, pie := dishes[0], dishes[1], dishes[2]

	t.Run("reservation blocks the table for the day", func(t *testing.T) {
		const day = "2030-05-10"

		free, err := e.svcs.Reservation.FindAvailableTables(ctx, reservation.AvailabilityQuery{DateTime: day})
		require.NoError(t, err)
		assert.Contains(t, tableIDs(free), table.ID)

		_, err = e.svcs.Reservation.Create(ctx, e.admin, reservation.CreateInput{
			TableID:     table.ID,
			GuestName:   "Ivanov",
			GuestPhone:  "+70000000000",
			PeopleCount: 6,
			DateTime:    day + "T19:00:00",
		})
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

		r, err := e.svcs.Reservation.Create(ctx, e.admin, reservation.CreateInput{
			TableID:     table.ID,
			GuestName:   "Ivanov",
			GuestPhone:  "+70000000000",
			PeopleCount: 4,
			DateTime:    day + "T19:00:00",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusNew, r.StatusID)

		got, err := e.svcs.Reservation.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, table.ID, got.TableID)
		assert.Equal(t, "Ivanov", got.GuestName)
		assert.Equal(t, "+70000000000", got.GuestPhone)
		assert.Equal(t, 4, got.PeopleCount)
		assert.Equal(t, domain.StatusNew, got.StatusID)
		assert.True(t, r.At.Equal(got.At), "stored %s, created %s", got.At, r.At)

		_, err = e.svcs.Reservation.Get(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		free, err = e.svcs.Reservation.FindAvailableTables(ctx, reservation.AvailabilityQuery{DateTime: day})
		require.NoError(t, err)
		assert.NotContains(t, tableIDs(free), table.ID)

		_, err = e.svcs.Reservation.Create(ctx, e.admin, reservation.CreateInput{
			TableID:     table.ID,
			GuestName:   "Petrov",
			GuestPhone:  "+71111111111",
			PeopleCount: 2,
			DateTime:    day + "T21:00:00",
		})
		assert.ErrorIs(t, err, domain.ErrConflict)

		_, err = e.svcs.Reservation.FindAvailableTables(ctx, reservation.AvailabilityQuery{DateTime: "next friday"})
		assert.ErrorIs(t, err, domain.ErrInvalidDate)
	})

	t.Run("order total and unavailable dishes", func(t *testing.T) {
		o, err := e.svcs.Ledger.CreateOrder(ctx, e.admin, table.ID, []domain.ItemRequest{
			{DishID: borscht.ID, Quantity: 1},
			{DishID: olivier.ID, Quantity: 2},
			{DishID: pie.ID, Quantity: 1},
			{DishID: 999999, Quantity: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, "1210.00", o.TotalAmount.String())
		assert.Len(t, o.Items, 2)

		_, err = e.svcs.Ledger.AddItem(ctx, e.admin, o.ID, pie.ID, 1)
		assert.ErrorIs(t, err, domain.ErrDishUnavailable)

		_, err = e.svcs.Ledger.CreateOrder(ctx, e.admin, table.ID, nil)
		assert.ErrorIs(t, err, domain.ErrEmptyOrder)

		got, err := e.svcs.Ledger.GetOrder(ctx, e.admin, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "1210.00", got.TotalAmount.String())
	})

	t.Run("mark all ready", func(t *testing.T) {
		o, err := e.svcs.Ledger.CreateOrder(ctx, e.admin, table.ID, []domain.ItemRequest{
			{DishID: borscht.ID, Quantity: 1},
			{DishID: olivier.ID, Quantity: 1},
		})
		require.NoError(t, err)

		res, err := e.svcs.Ledger.AddItem(ctx, e.admin, o.ID, olivier.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, "1970.00", res.TotalAmount.String())

		n, err := e.svcs.Ledger.MarkAllReady(ctx, e.admin, o.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		_, err = e.svcs.Ledger.MarkAllReady(ctx, e.admin, o.ID)
		assert.ErrorIs(t, err, domain.ErrNoActionNeeded)
	})

	t.Run("closed order rejects changes", func(t *testing.T) {
		o, err := e.svcs.Ledger.CreateOrder(ctx, e.admin, table.ID, []domain.ItemRequest{
			{DishID: borscht.ID, Quantity: 2},
		})
		require.NoError(t, err)

		closed, err := e.svcs.Ledger.CloseOrder(ctx, e.admin, o.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderClosed, closed.Status)
		assert.NotNil(t, closed.ClosedAt)

		_, err = e.svcs.Ledger.CloseOrder(ctx, e.admin, o.ID)
		assert.ErrorIs(t, err, domain.ErrOrderClosed)

		_, err = e.svcs.Ledger.AddItem(ctx, e.admin, o.ID, borscht.ID, 1)
		assert.ErrorIs(t, err, domain.ErrOrderClosed)

		rc, err := e.svcs.Ledger.Receipt(ctx, e.admin, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "Main hall", rc.HallName)
		require.Len(t, rc.Lines, 1)
		assert.Equal(t, "900.00", rc.TotalAmount.String())
	})

	t.Run("sales report", func(t *testing.T) {
		empty, err := e.svcs.Report.Sales(ctx, e.admin, "2001-01-01", "2001-01-31")
		require.NoError(t, err)
		assert.True(t, empty.TotalPeriodRevenue.IsZero())
		assert.NotNil(t, empty.PerDish)
		assert.Empty(t, empty.PerDish)

		today := time.Now().UTC().Format(time.DateOnly)
		r, err := e.svcs.Report.Sales(ctx, e.admin, today, today)
		require.NoError(t, err)
		assert.True(t, r.TotalPeriodRevenue.IsPositive())
		require.NotEmpty(t, r.PerDish)

		var share float64
		for _, d := range r.PerDish {
			share += d.RevenueSharePct
		}
		assert.InDelta(t, 100, share, 0.1)

		_, err = e.svcs.Report.Sales(ctx, e.admin, today, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		sum, err := e.svcs.Report.DailySummary(ctx, e.admin, "")
		require.NoError(t, err)
		assert.Equal(t, int64(3), sum.OrdersTotal)
		assert.Equal(t, "4080.00", sum.Revenue.String())
		assert.Equal(t, "1360.00", sum.AvgOrderValue.String())

		b, err := e.svcs.Report.Bookings(ctx, e.admin, "2030-05-01", "2030-05-31")
		require.NoError(t, err)
		assert.Equal(t, int64(1), b.TotalBookings)
		assert.Equal(t, int64(1), b.BookingsByDay["2030-05-10"])

		lone, err := e.svcs.Report.Bookings(ctx, e.admin, "2030-05-01", "")
		require.NoError(t, err)
		assert.Zero(t, lone.TotalBookings, "a lone bound falls back to the last 30 days")
		assert.Equal(t, today, lone.Period.To.Format(time.DateOnly))
		assert.Equal(t, 30, int(lone.Period.To.Sub(lone.Period.From).Hours()/24))
	})

	t.Run("staff permissions", func(t *testing.T) {
		chef, err := e.svcs.Staff.CreateEmployee(ctx, e.admin, staff.CreateInput{
			FullName: "Anna Chef",
			Login:    "anna",
			Password: "kitchen1",
			Role:     domain.RoleChef,
		})
		require.NoError(t, err)

		_, err = e.svcs.Staff.CreateEmployee(ctx, e.admin, staff.CreateInput{
			FullName: "Anna Again",
			Login:    "anna",
			Password: "kitchen1",
			Role:     domain.RoleChef,
		})
		assert.ErrorIs(t, err, domain.ErrConflict)

		_, err = e.svcs.Staff.Login(ctx, "anna", "wrong-password", "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		actor := domain.NewActor(chef.ID, chef.FullName, chef.Role)

		_, err = e.svcs.Ledger.CreateOrder(ctx, actor, table.ID, []domain.ItemRequest{{DishID: borscht.ID, Quantity: 1}})
		assert.ErrorIs(t, err, domain.ErrForbidden)

		_, err = e.svcs.Report.PopularDishes(ctx, actor, 5)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		_, err = e.svcs.Ledger.PendingForKitchen(ctx, actor)
		assert.NoError(t, err)
	})

	t.Run("concurrent bookings of one table", func(t *testing.T) {
		const day = "2030-06-14"

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, at := range []string{"T12:00:00", "T18:00:00"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = e.svcs.Reservation.Create(ctx, e.admin, reservation.CreateInput{
					TableID:     table.ID,
					GuestName:   "Guest",
					GuestPhone:  "+72222222222",
					PeopleCount: 2,
					DateTime:    day + at,
				})
			}()
		}
		wg.Wait()

		var ok, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, conflicts)
	})

	t.Run("kitchen queue and item readiness", func(t *testing.T) {
		a, err := e.svcs.Ledger.CreateOrder(ctx, e.admin, table.ID, []domain.ItemRequest{
			{DishID: borscht.ID, Quantity: 1},
			{DishID: olivier.ID, Quantity: 1},
		})
		require.NoError(t, err)
		b, err := e.svcs.Ledger.CreateOrder(ctx, e.admin, table.ID, []domain.ItemRequest{
			{DishID: olivier.ID, Quantity: 2},
		})
		require.NoError(t, err)
		c, err := e.svcs.Ledger.CreateOrder(ctx, e.admin, table.ID, []domain.ItemRequest{
			{DishID: borscht.ID, Quantity: 1},
		})
		require.NoError(t, err)
		_, err = e.svcs.Ledger.CloseOrder(ctx, e.admin, c.ID)
		require.NoError(t, err)

		first, err := e.svcs.Ledger.MarkItemReady(ctx, e.admin, a.Items[0].ID)
		require.NoError(t, err)
		assert.True(t, first.IsReady)

		again, err := e.svcs.Ledger.MarkItemReady(ctx, e.admin, a.Items[0].ID)
		require.NoError(t, err, "marking a ready item again is a no-op")
		assert.True(t, again.IsReady)

		_, err = e.svcs.Ledger.MarkItemReady(ctx, e.admin, c.Items[0].ID)
		assert.ErrorIs(t, err, domain.ErrOrderClosed)

		_, err = e.svcs.Ledger.MarkItemReady(ctx, e.admin, 999999)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		queue, err := e.svcs.Ledger.PendingForKitchen(ctx, e.admin)
		require.NoError(t, err)

		ids := make([]int64, 0, len(queue))
		for _, it := range queue {
			ids = append(ids, it.ID)
			assert.False(t, it.IsReady)
			assert.NotEqual(t, c.ID, it.OrderID, "closed orders leave the queue")
		}
		assert.NotContains(t, ids, a.Items[0].ID)
		assert.Contains(t, ids, a.Items[1].ID)
		assert.Contains(t, ids, b.Items[0].ID)
		assert.True(t, sort.SliceIsSorted(queue, func(i, j int) bool {
			if queue[i].OrderID != queue[j].OrderID {
				return queue[i].OrderID < queue[j].OrderID
			}
			return queue[i].ID < queue[j].ID
		}), "queue is ordered by order id")

		list, err := e.svcs.Ledger.ListOrders(ctx, e.admin, ledger.ListFilter{Status: string(domain.OrderOpen)})
		require.NoError(t, err)
		counts := make(map[int64]int, len(list))
		for _, o := range list {
			counts[o.ID] = o.ItemCount
		}
		assert.Equal(t, 2, counts[a.ID])
		assert.Equal(t, 2, counts[b.ID], "item count sums portions")
	})

	t.Run("catalog references", func(t *testing.T) {
		err := e.svcs.Catalog.DeleteTable(ctx, e.admin, table.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)

		_, err = e.svcs.Catalog.GetTable(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestIntegrationMaintenance(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	table, dishes := e.seed(t)
	borscht := dishes[0]

	t.Run("staff lifecycle", func(t *testing.T) {
		positions, err := e.svcs.Staff.Positions(ctx)
		require.NoError(t, err)
		require.Len(t, positions, 5)
		assert.Equal(t, domain.RoleAdministrator, positions[0].Name)

		boris, err := e.svcs.Staff.CreateEmployee(ctx, e.admin, staff.CreateInput{
			FullName: "Boris Waiter",
			Login:    "boris",
			Password: "tables1",
			Role:     domain.RoleWaiter,
		})
		require.NoError(t, err)

		got, err := e.svcs.Staff.GetEmployee(ctx, e.admin, boris.ID)
		require.NoError(t, err)
		assert.Equal(t, "boris", got.Login)

		bartender := domain.RoleBartender
		phone := "+73333333333"
		password := "bar-shift"
		upd, err := e.svcs.Staff.UpdateEmployee(ctx, e.admin, boris.ID, staff.UpdateInput{
			Role:     &bartender,
			Phone:    &phone,
			Password: &password,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleBartender, upd.Role)
		assert.Equal(t, phone, upd.Phone)
		assert.Equal(t, "Boris Waiter", upd.FullName)

		_, err = e.svcs.Staff.Login(ctx, "boris", "tables1", "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = e.svcs.Staff.Login(ctx, "boris", password, "")
		require.NoError(t, err)

		unknown := domain.Role("Sommelier")
		_, err = e.svcs.Staff.UpdateEmployee(ctx, e.admin, boris.ID, staff.UpdateInput{Role: &unknown})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = e.svcs.Staff.UpdateEmployee(ctx, e.admin, 999999, staff.UpdateInput{Phone: &phone})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		actor := domain.NewActor(boris.ID, boris.FullName, domain.RoleBartender)
		_, err = e.svcs.Ledger.CreateOrder(ctx, actor, table.ID, []domain.ItemRequest{{DishID: borscht.ID, Quantity: 1}})
		require.NoError(t, err)

		err = e.svcs.Staff.DeleteEmployee(ctx, e.admin, boris.ID)
		assert.ErrorIs(t, err, domain.ErrConflict, "employees with orders stay")

		err = e.svcs.Staff.DeleteEmployee(ctx, e.admin, e.admin.StaffID)
		assert.ErrorIs(t, err, domain.ErrConflict)

		temp, err := e.svcs.Staff.CreateEmployee(ctx, e.admin, staff.CreateInput{
			FullName: "Temp Cleaner",
			Login:    "temp",
			Password: "mop-mop",
			Role:     domain.RoleCleaner,
		})
		require.NoError(t, err)
		require.NoError(t, e.svcs.Staff.DeleteEmployee(ctx, e.admin, temp.ID))

		_, err = e.svcs.Staff.GetEmployee(ctx, e.admin, temp.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		err = e.svcs.Staff.DeleteEmployee(ctx, e.admin, temp.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("category rename", func(t *testing.T) {
		drinks, err := e.svcs.Catalog.CreateCategory(ctx, e.admin, "Drinks")
		require.NoError(t, err)

		renamed, err := e.svcs.Catalog.UpdateCategory(ctx, e.admin, drinks.ID, "  Beverages ")
		require.NoError(t, err)
		assert.Equal(t, "Beverages", renamed.Name)

		cats, err := e.svcs.Catalog.ListCategories(ctx)
		require.NoError(t, err)
		assert.Contains(t, categoryNames(cats), "Beverages")
		assert.NotContains(t, categoryNames(cats), "Drinks")

		require.NotEqual(t, drinks.ID, cats[0].ID)
		_, err = e.svcs.Catalog.UpdateCategory(ctx, e.admin, drinks.ID, cats[0].Name)
		assert.ErrorIs(t, err, domain.ErrConflict)

		_, err = e.svcs.Catalog.UpdateCategory(ctx, e.admin, 999999, "Ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = e.svcs.Catalog.UpdateCategory(ctx, e.admin, drinks.ID, " ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("dish delete", func(t *testing.T) {
		err := e.svcs.Catalog.DeleteDish(ctx, e.admin, borscht.ID)
		assert.ErrorIs(t, err, domain.ErrConflict, "sold dishes stay")

		kompot, err := e.svcs.Catalog.CreateDish(ctx, e.admin, catalog.DishInput{
			CategoryID: borscht.CategoryID,
			Name:       "Kompot",
			Price:      decimal.RequireFromString("90.00"),
		})
		require.NoError(t, err)
		require.NoError(t, e.svcs.Catalog.DeleteDish(ctx, e.admin, kompot.ID))

		_, err = e.svcs.Catalog.GetDish(ctx, kompot.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		err = e.svcs.Catalog.DeleteDish(ctx, e.admin, kompot.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func categoryNames(cats []domain.Category) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}

func tableIDs(tables []domain.Table) []int64 {
	ids := make([]int64, 0, len(tables))
	for _, t := range tables {
		ids = append(ids, t.ID)
	}
	return ids
}
