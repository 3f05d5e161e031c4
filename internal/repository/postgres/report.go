package postgresrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/shopspring/decimal"
)

// ReportRepo holds read-only aggregate queries. Bounds are half-open [from, to)
// over restaurant wall-clock timestamps.
type ReportRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReportRepo) With(db DB) *ReportRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReportRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// SalesByDish aggregates line items of orders placed in [from, to), revenue desc.
// Dishes without sales in the window are absent.
func (r *ReportRepo) SalesByDish(ctx context.Context, from, to time.Time) ([]domain.DishSales, error) {
	const op = "postgresrepo.ReportRepo.SalesByDish"

	rows, err := r.handle().Query(ctx,
		`SELECT d.id, d.name, SUM(s.quantity), SUM(s.quantity * s.unit_price)
		 FROM sale s
		 JOIN dish d ON d.id = s.dish_id
		 JOIN restaurant_order o ON o.id = s.order_id
		 WHERE o.order_datetime >= $1 AND o.order_datetime < $2
		 GROUP BY d.id, d.name
		 ORDER BY 4 DESC, d.id`,
		from, to,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DishSales, error) {
		var d domain.DishSales
		err := row.Scan(&d.DishID, &d.DishName, &d.QuantitySold, &d.TotalRevenue.Decimal)
		return d, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// OrderTotals returns the order count and summed total_amount for [from, to).
func (r *ReportRepo) OrderTotals(ctx context.Context, from, to time.Time) (int64, decimal.Decimal, error) {
	const op = "postgresrepo.ReportRepo.OrderTotals"

	var (
		n   int64
		sum decimal.Decimal
	)
	err := r.handle().QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM restaurant_order
		 WHERE order_datetime >= $1 AND order_datetime < $2`,
		from, to,
	).Scan(&n, &sum)
	if err != nil {
		return 0, decimal.Zero, wrapDBErr(op, err)
	}

	return n, sum, nil
}

// BookingsByStatus counts reservations in [from, to) per status. Statuses with
// no reservations are absent.
func (r *ReportRepo) BookingsByStatus(ctx context.Context, from, to time.Time) ([]domain.StatusShare, error) {
	const op = "postgresrepo.ReportRepo.BookingsByStatus"

	rows, err := r.handle().Query(ctx,
		`SELECT s.id, s.name, COUNT(*)
		 FROM booking b
		 JOIN booking_status s ON s.id = b.status_id
		 WHERE b.reserved_at >= $1 AND b.reserved_at < $2
		 GROUP BY s.id, s.name
		 ORDER BY s.id`,
		from, to,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StatusShare, error) {
		var s domain.StatusShare
		err := row.Scan(&s.StatusID, &s.StatusName, &s.Count)
		return s, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// BookingsByDay counts reservations in [from, to) per calendar day, keyed YYYY-MM-DD.
func (r *ReportRepo) BookingsByDay(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	const op = "postgresrepo.ReportRepo.BookingsByDay"

	rows, err := r.handle().Query(ctx,
		`SELECT to_char(reserved_at::date, 'YYYY-MM-DD'), COUNT(*)
		 FROM booking
		 WHERE reserved_at >= $1 AND reserved_at < $2
		 GROUP BY 1`,
		from, to,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			day string
			n   int64
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// PopularDishes ranks every dish by all-time quantity sold, zero sales included.
func (r *ReportRepo) PopularDishes(ctx context.Context, limit int) ([]domain.PopularDish, error) {
	const op = "postgresrepo.ReportRepo.PopularDishes"

	rows, err := r.handle().Query(ctx,
		`SELECT d.id, d.name, d.category_id, c.name,
		        COALESCE(SUM(s.quantity), 0) AS total_sold,
		        COALESCE(SUM(s.quantity * s.unit_price), 0)
		 FROM dish d
		 JOIN dish_category c ON c.id = d.category_id
		 LEFT JOIN sale s ON s.dish_id = d.id
		 GROUP BY d.id, d.name, d.category_id, c.name
		 ORDER BY total_sold DESC, d.id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PopularDish, error) {
		var p domain.PopularDish
		err := row.Scan(&p.DishID, &p.DishName, &p.CategoryID, &p.CategoryName, &p.TotalSold, &p.TotalRevenue.Decimal)
		return p, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// TopDishes returns the best sellers by quantity for orders in [from, to).
func (r *ReportRepo) TopDishes(ctx context.Context, from, to time.Time, limit int) ([]domain.DishCount, error) {
	const op = "postgresrepo.ReportRepo.TopDishes"

	rows, err := r.handle().Query(ctx,
		`SELECT d.name, SUM(s.quantity) AS qty
		 FROM sale s
		 JOIN dish d ON d.id = s.dish_id
		 JOIN restaurant_order o ON o.id = s.order_id
		 WHERE o.order_datetime >= $1 AND o.order_datetime < $2
		 GROUP BY d.id, d.name
		 ORDER BY qty DESC, d.id
		 LIMIT $3`,
		from, to, limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DishCount, error) {
		var d domain.DishCount
		err := row.Scan(&d.DishName, &d.Quantity)
		return d, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
