package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/repository"
	"github.com/shopspring/decimal"
)

type LedgerRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *LedgerRepo) With(db DB) *LedgerRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *LedgerRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// LockMode selects the row lock taken on an order header.
type LockMode int

const (
	LockNone LockMode = iota
	LockShare
	LockUpdate
)

func (m LockMode) clause() string {
	switch m {
	case LockShare:
		return ` FOR SHARE OF o`
	case LockUpdate:
		return ` FOR UPDATE OF o`
	default:
		return ``
	}
}

// OrderFilter narrows ListOrders. Zero values mean "any"; Day is a calendar day.
type OrderFilter struct {
	EmployeeID int64
	Status     domain.OrderStatus
	Day        time.Time
}

const orderSelect = `
	SELECT o.id, o.table_id, o.employee_id, e.full_name, o.status,
	       o.order_datetime, o.closed_at, o.total_amount
	FROM restaurant_order o
	JOIN employee e ON e.id = o.employee_id`

// CreateOrder inserts an open order header together with its line items.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - o: the order; Items carry the captured unit prices and TotalAmount their sum.
//
// Returns:
//   - int64: the new order id. o.Items get their ids filled in.
//   - error: repository.ErrReferenced if the table or employee does not exist.
func (r *LedgerRepo) CreateOrder(ctx context.Context, o *domain.Order) (int64, error) {
	const op = "postgresrepo.LedgerRepo.CreateOrder"

	db := r.handle()

	if err := db.QueryRow(ctx,
		`INSERT INTO restaurant_order (table_id, employee_id, status, order_datetime, total_amount)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		o.TableID, o.EmployeeID, o.Status, o.OpenedAt, o.TotalAmount.Decimal,
	).Scan(&o.ID); err != nil {
		return 0, wrapDBErr(op, err)
	}

	if len(o.Items) == 0 {
		return o.ID, nil
	}

	batch := &pgx.Batch{}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		li := &o.Items[i]
		batch.Queue(
			`INSERT INTO sale (order_id, dish_id, quantity, unit_price, is_ready)
			 VALUES ($1, $2, $3, $4, FALSE)
			 RETURNING id`,
			o.ID, li.DishID, li.Quantity, li.UnitPrice.Decimal,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&li.ID)
		})
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return o.ID, nil
}

// GetOrder retrieves an order header, optionally locking the row.
//
// Returns:
//   - error: repository.ErrNotFound if the order is not found.
func (r *LedgerRepo) GetOrder(ctx context.Context, id int64, lock LockMode) (*domain.Order, error) {
	const op = "postgresrepo.LedgerRepo.GetOrder"

	rows, err := r.handle().Query(ctx, orderSelect+` WHERE o.id = $1`+lock.clause(), id)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &o, nil
}

func (r *LedgerRepo) LineItems(ctx context.Context, orderID int64) ([]domain.LineItem, error) {
	const op = "postgresrepo.LedgerRepo.LineItems"

	rows, err := r.handle().Query(ctx,
		`SELECT s.id, s.order_id, s.dish_id, d.name, s.quantity, s.unit_price, s.is_ready
		 FROM sale s
		 JOIN dish d ON d.id = s.dish_id
		 WHERE s.order_id = $1
		 ORDER BY s.id`,
		orderID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LineItem, error) {
		var li domain.LineItem
		err := row.Scan(&li.ID, &li.OrderID, &li.DishID, &li.DishName, &li.Quantity, &li.UnitPrice.Decimal, &li.IsReady)
		return li, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// AppendLineItem adds a line item to an open order and moves total_amount with it.
// The caller holds the order row lock.
//
// Returns:
//   - int64: the new line item id.
//   - decimal.Decimal: the order total after the append.
//   - error: repository.ErrOrderClosed if the order is not open.
func (r *LedgerRepo) AppendLineItem(ctx context.Context, li domain.LineItem) (int64, decimal.Decimal, error) {
	const op = "postgresrepo.LedgerRepo.AppendLineItem"

	db := r.handle()

	var total decimal.Decimal
	err := db.QueryRow(ctx,
		`UPDATE restaurant_order
		 SET total_amount = total_amount + $2
		 WHERE id = $1 AND status = $3
		 RETURNING total_amount`,
		li.OrderID, li.Subtotal(), domain.OrderOpen,
	).Scan(&total)
	if err != nil {
		err = wrapDBErr(op, err)
		if isNotFound(err) {
			return 0, decimal.Zero, fmt.Errorf("%s:%w", op, repository.ErrOrderClosed)
		}
		return 0, decimal.Zero, err
	}

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO sale (order_id, dish_id, quantity, unit_price, is_ready)
		 VALUES ($1, $2, $3, $4, FALSE)
		 RETURNING id`,
		li.OrderID, li.DishID, li.Quantity, li.UnitPrice.Decimal,
	).Scan(&id); err != nil {
		return 0, decimal.Zero, wrapDBErr(op, err)
	}

	return id, total, nil
}

// LineItemOwner returns the order a line item belongs to.
func (r *LedgerRepo) LineItemOwner(ctx context.Context, lineItemID int64) (int64, error) {
	const op = "postgresrepo.LedgerRepo.LineItemOwner"

	var orderID int64
	if err := r.handle().QueryRow(ctx,
		`SELECT order_id FROM sale WHERE id = $1`,
		lineItemID,
	).Scan(&orderID); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return orderID, nil
}

// MarkReady sets is_ready on one line item. Marking a ready item again is a no-op.
func (r *LedgerRepo) MarkReady(ctx context.Context, lineItemID int64) (*domain.KitchenItem, error) {
	const op = "postgresrepo.LedgerRepo.MarkReady"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`UPDATE sale SET is_ready = TRUE WHERE id = $1 AND NOT is_ready`,
		lineItemID,
	); err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := db.Query(ctx, kitchenSelect+` WHERE s.id = $1`, lineItemID)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanKitchenItem)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &it, nil
}

// MarkAllReady flips every pending line item of the order.
//
// Returns:
//   - int64: number of items marked.
//   - error: repository.ErrNothingToDo when no item was pending.
func (r *LedgerRepo) MarkAllReady(ctx context.Context, orderID int64) (int64, error) {
	const op = "postgresrepo.LedgerRepo.MarkAllReady"

	tag, err := r.handle().Exec(ctx,
		`UPDATE sale SET is_ready = TRUE WHERE order_id = $1 AND NOT is_ready`,
		orderID,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrNothingToDo)
	}

	return tag.RowsAffected(), nil
}

// CloseOrder moves an open order to closed.
//
// Returns:
//   - error: repository.ErrOrderClosed if the order was not open.
func (r *LedgerRepo) CloseOrder(ctx context.Context, id int64, at time.Time) error {
	const op = "postgresrepo.LedgerRepo.CloseOrder"

	tag, err := r.handle().Exec(ctx,
		`UPDATE restaurant_order
		 SET status = $2, closed_at = $3
		 WHERE id = $1 AND status = $4`,
		id, domain.OrderClosed, at, domain.OrderOpen,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrOrderClosed)
	}

	return nil
}

// ListOrders returns order summaries newest first with the first three dish names.
// ItemCount is the number of portions, not the number of sale rows.
func (r *LedgerRepo) ListOrders(ctx context.Context, f OrderFilter) ([]domain.OrderSummary, error) {
	const op = "postgresrepo.LedgerRepo.ListOrders"

	var dayFrom, dayTo *time.Time
	if !f.Day.IsZero() {
		from := domain.Day(f.Day)
		to := from.AddDate(0, 0, 1)
		dayFrom, dayTo = &from, &to
	}

	rows, err := r.handle().Query(ctx,
		`SELECT o.id, o.table_id, o.employee_id, e.full_name, o.status, o.order_datetime, o.total_amount,
		        COALESCE(items.cnt, 0),
		        COALESCE(items.preview, '')
		 FROM restaurant_order o
		 JOIN employee e ON e.id = o.employee_id
		 LEFT JOIN LATERAL (
		     SELECT SUM(s.quantity) AS cnt,
		            array_to_string((array_agg(d.name ORDER BY s.id))[1:3], ', ') AS preview
		     FROM sale s
		     JOIN dish d ON d.id = s.dish_id
		     WHERE s.order_id = o.id
		 ) items ON TRUE
		 WHERE ($1 = 0 OR o.employee_id = $1)
		   AND ($2 = '' OR o.status = $2)
		   AND ($3::timestamp IS NULL OR o.order_datetime >= $3)
		   AND ($4::timestamp IS NULL OR o.order_datetime < $4)
		 ORDER BY o.order_datetime DESC, o.id DESC`,
		f.EmployeeID, string(f.Status), dayFrom, dayTo,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderSummary, error) {
		var s domain.OrderSummary
		err := row.Scan(
			&s.ID,
			&s.TableID,
			&s.EmployeeID,
			&s.EmployeeName,
			&s.Status,
			&s.OpenedAt,
			&s.TotalAmount.Decimal,
			&s.ItemCount,
			&s.DishesPreview,
		)
		return s, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

const kitchenSelect = `
	SELECT s.id, s.order_id, s.dish_id, d.name, d.composition, d.weight_grams,
	       s.quantity, s.is_ready, o.table_id
	FROM sale s
	JOIN dish d ON d.id = s.dish_id
	JOIN restaurant_order o ON o.id = s.order_id`

// PendingForKitchen lists unfinished line items of open orders, oldest order first.
func (r *LedgerRepo) PendingForKitchen(ctx context.Context) ([]domain.KitchenItem, error) {
	const op = "postgresrepo.LedgerRepo.PendingForKitchen"

	rows, err := r.handle().Query(ctx,
		kitchenSelect+`
		 WHERE NOT s.is_ready AND o.status = $1
		 ORDER BY s.order_id, s.id`,
		domain.OrderOpen,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, scanKitchenItem)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// HallOfTable is used by receipts.
func (r *LedgerRepo) HallOfTable(ctx context.Context, tableID int64) (string, error) {
	const op = "postgresrepo.LedgerRepo.HallOfTable"

	var name string
	if err := r.handle().QueryRow(ctx,
		`SELECT h.name FROM restaurant_table t JOIN hall h ON h.id = t.hall_id WHERE t.id = $1`,
		tableID,
	).Scan(&name); err != nil {
		return "", wrapDBErr(op, err)
	}

	return name, nil
}

func scanOrder(row pgx.CollectableRow) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.TableID,
		&o.EmployeeID,
		&o.EmployeeName,
		&o.Status,
		&o.OpenedAt,
		&o.ClosedAt,
		&o.TotalAmount.Decimal,
	)
	return o, err
}

func scanKitchenItem(row pgx.CollectableRow) (domain.KitchenItem, error) {
	var k domain.KitchenItem
	err := row.Scan(
		&k.ID,
		&k.OrderID,
		&k.DishID,
		&k.DishName,
		&k.Composition,
		&k.WeightGrams,
		&k.Quantity,
		&k.IsReady,
		&k.TableID,
	)
	return k, err
}
