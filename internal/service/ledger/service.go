package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/resto-go/internal/broker"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/repository"
	postgresrepo "github.com/kirinyoku/resto-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/resto-go/internal/repository/redis"
	"github.com/kirinyoku/resto-go/internal/uow"
)

type Config struct {
	Location *time.Location
}

type Service struct {
	store     *postgresrepo.Store
	cache     *redisrepo.Cache
	publisher *broker.Publisher
	uow       *uow.UoW
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	publisher *broker.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:     store,
		cache:     cache,
		publisher: publisher,
		uow:       uow.NewUoW(store),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

type ListFilter struct {
	Status string
	Date   string
}

// CreateOrder opens an order on a table with its first line items. Requested
// dishes that are missing or unavailable are dropped, not rejected.
//
// Parameters:
//   - ctx: request-scoped context.
//   - actor: the staff member opening the order; becomes its owner.
//   - tableID: the table being served.
//   - items: requested dish/quantity pairs.
//
// Returns:
//   - *domain.Order: the stored order with priced line items.
//   - error: domain.ErrEmptyOrder if items is empty.
//   - error: domain.ErrNotFound if the table does not exist.
func (s *Service) CreateOrder(
	ctx context.Context,
	actor domain.Actor,
	tableID int64,
	items []domain.ItemRequest,
) (*domain.Order, error) {
	const op = "service.ledger.CreateOrder"

	if err := actor.Require(domain.CapTakeOrders); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%s:%w", op, domain.ErrEmptyOrder)
	}

	var out *domain.Order

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if _, err := s.store.Catalog().With(tx).GetTable(ctx, tableID); err != nil {
			return notFound(err, "table", tableID)
		}

		ids := make([]int64, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.DishID)
		}

		dishes, err := s.store.Catalog().With(tx).DishesByIDs(ctx, ids)
		if err != nil {
			return err
		}

		lines, _ := domain.PriceLines(items, dishes)

		o := &domain.Order{
			TableID:      tableID,
			EmployeeID:   actor.StaffID,
			EmployeeName: actor.Name,
			Status:       domain.OrderOpen,
			OpenedAt:     s.wallNow(),
			TotalAmount:  domain.MoneyOf(domain.SumLines(lines)),
			Items:        lines,
		}

		if _, err := s.store.Ledger().With(tx).CreateOrder(ctx, o); err != nil {
			if errors.Is(err, repository.ErrReferenced) {
				return domain.NotFoundError{Entity: "employee", ID: actor.StaffID}
			}
			return err
		}

		out = o
		day := o.OpenedAt
		after(func(ctx context.Context) {
			s.invalidateReports(ctx, day)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// AddItem appends one dish to an open order at the dish's current price.
//
// Returns:
//   - error: domain.ErrNotFound if the order or dish does not exist.
//   - error: domain.ErrDishUnavailable if the dish is off the menu.
//   - error: domain.ErrOrderClosed if the order is closed.
//   - error: domain.ErrForbidden if the actor may not amend the order.
func (s *Service) AddItem(
	ctx context.Context,
	actor domain.Actor,
	orderID, dishID int64,
	quantity int,
) (*domain.AddItemResult, error) {
	const op = "service.ledger.AddItem"

	if err := actor.Require(domain.CapTakeOrders); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	quantity = domain.NormalizeQuantity(quantity)
	if quantity < 1 {
		return nil, fmt.Errorf("%s:%w", op, domain.InvalidInputError{Field: "quantity", Reason: "must be at least 1"})
	}

	var out *domain.AddItemResult

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		ledger := s.store.Ledger().With(tx)

		o, err := ledger.GetOrder(ctx, orderID, postgresrepo.LockUpdate)
		if err != nil {
			return notFound(err, "order", orderID)
		}

		if !actor.CanTouchOrder(o.EmployeeID, domain.CapAmendAnyOrder) {
			return domain.ErrForbidden
		}

		if err := o.EnsureOpen(); err != nil {
			return err
		}

		d, err := s.store.Catalog().With(tx).GetDish(ctx, dishID)
		if err != nil {
			return notFound(err, "dish", dishID)
		}
		if !d.IsAvailable {
			return domain.DishUnavailableError{DishID: d.ID, DishName: d.Name}
		}

		o.Items, err = ledger.LineItems(ctx, o.ID)
		if err != nil {
			return err
		}

		li := domain.LineItem{
			DishID:    d.ID,
			DishName:  d.Name,
			Quantity:  quantity,
			UnitPrice: d.Price,
		}
		if err := o.Append(li); err != nil {
			return err
		}
		li = o.Items[len(o.Items)-1]

		id, total, err := ledger.AppendLineItem(ctx, li)
		if errors.Is(err, repository.ErrOrderClosed) {
			return domain.OrderClosedError{OrderID: o.ID}
		}
		if err != nil {
			return err
		}

		// The stored total must equal the sum of the line items after every append.
		if !o.TotalAmount.Equal(total) || !o.Consistent() {
			return fmt.Errorf("order %d total drifted: stored %s, lines %s",
				o.ID, total.StringFixed(2), domain.SumLines(o.Items).StringFixed(2))
		}

		out = &domain.AddItemResult{
			OrderID:     o.ID,
			LineItemID:  id,
			DishName:    d.Name,
			Quantity:    quantity,
			AddedAmount: domain.MoneyOf(li.Subtotal().Round(2)),
			TotalAmount: o.TotalAmount,
		}

		day := o.OpenedAt
		after(func(ctx context.Context) {
			s.invalidateReports(ctx, day)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// MarkItemReady flags one line item as prepared. Repeating the call is a no-op.
// The order row is share-locked so a concurrent close cannot slip in between.
//
// Returns:
//   - error: domain.ErrNotFound if the line item or its order does not exist.
//   - error: domain.ErrOrderClosed if the order is closed.
func (s *Service) MarkItemReady(ctx context.Context, actor domain.Actor, lineItemID int64) (*domain.KitchenItem, error) {
	const op = "service.ledger.MarkItemReady"

	if err := actor.Require(domain.CapKitchenAccess); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.KitchenItem

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		ledger := s.store.Ledger().With(tx)

		orderID, err := ledger.LineItemOwner(ctx, lineItemID)
		if err != nil {
			return notFound(err, "line item", lineItemID)
		}

		o, err := ledger.GetOrder(ctx, orderID, postgresrepo.LockShare)
		if err != nil {
			return notFound(err, "order", orderID)
		}
		if err := o.EnsureOpen(); err != nil {
			return err
		}

		out, err = ledger.MarkReady(ctx, lineItemID)
		if err != nil {
			return notFound(err, "line item", lineItemID)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// MarkAllReady flags every pending line item of an open order.
//
// Returns:
//   - int64: number of items marked.
//   - error: domain.ErrNoActionNeeded if nothing was pending.
func (s *Service) MarkAllReady(ctx context.Context, actor domain.Actor, orderID int64) (int64, error) {
	const op = "service.ledger.MarkAllReady"

	if err := actor.Require(domain.CapKitchenAccess); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	var marked int64

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		ledger := s.store.Ledger().With(tx)

		o, err := ledger.GetOrder(ctx, orderID, postgresrepo.LockShare)
		if err != nil {
			return notFound(err, "order", orderID)
		}
		if err := o.EnsureOpen(); err != nil {
			return err
		}

		o.Items, err = ledger.LineItems(ctx, orderID)
		if err != nil {
			return err
		}
		if len(o.PendingItems()) == 0 {
			return fmt.Errorf("%w: order %d has no pending items", domain.ErrNoActionNeeded, orderID)
		}

		marked, err = ledger.MarkAllReady(ctx, orderID)
		if errors.Is(err, repository.ErrNothingToDo) {
			return fmt.Errorf("%w: order %d has no pending items", domain.ErrNoActionNeeded, orderID)
		}

		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return marked, nil
}

// CloseOrder moves an order from open to closed. The stored total is final; no
// recomputation happens.
//
// Returns:
//   - error: domain.ErrOrderClosed if the order is already closed.
//   - error: domain.ErrForbidden unless the actor owns the order or may close any.
func (s *Service) CloseOrder(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	const op = "service.ledger.CloseOrder"

	var out *domain.Order

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		ledger := s.store.Ledger().With(tx)

		o, err := ledger.GetOrder(ctx, orderID, postgresrepo.LockUpdate)
		if err != nil {
			return notFound(err, "order", orderID)
		}

		if !actor.CanTouchOrder(o.EmployeeID, domain.CapCloseAnyOrder) {
			return domain.ErrForbidden
		}
		if err := o.EnsureOpen(); err != nil {
			return err
		}

		err = ledger.CloseOrder(ctx, orderID, s.wallNow())
		if errors.Is(err, repository.ErrOrderClosed) {
			return domain.OrderClosedError{OrderID: orderID}
		}
		if err != nil {
			return err
		}

		out, err = s.loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		hall, err := ledger.HallOfTable(ctx, out.TableID)
		if err != nil {
			return err
		}

		receipt := domain.NewReceipt(*out, hall)
		after(func(ctx context.Context) {
			s.invalidateReports(ctx, receipt.OpenedAt)
			if err := s.publisher.Publish(ctx, broker.QueueOrderClosed, broker.OrderClosed{
				Receipt:  receipt,
				ClosedBy: actor.StaffID,
			}); err != nil {
				s.logger.Warn("publish order.closed failed", "order_id", receipt.OrderID, "error", err)
			}
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// GetOrder returns an order with its line items.
//
// Returns:
//   - error: domain.ErrForbidden unless the actor owns the order or may view all.
func (s *Service) GetOrder(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	const op = "service.ledger.GetOrder"

	o, err := s.loadOrder(ctx, nil, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !actor.CanTouchOrder(o.EmployeeID, domain.CapViewAllOrders) {
		return nil, fmt.Errorf("%s:%w", op, domain.ErrForbidden)
	}

	return o, nil
}

// ListOrders returns order summaries newest first. Staff without ViewAllOrders
// only see their own orders.
func (s *Service) ListOrders(ctx context.Context, actor domain.Actor, f ListFilter) ([]domain.OrderSummary, error) {
	const op = "service.ledger.ListOrders"

	of := postgresrepo.OrderFilter{Status: domain.OrderStatus(f.Status)}

	switch of.Status {
	case "", domain.OrderOpen, domain.OrderClosed:
	default:
		return nil, fmt.Errorf("%s:%w", op, domain.InvalidInputError{Field: "status", Reason: "must be open or closed"})
	}

	if f.Date != "" {
		day, err := domain.ParseDate(f.Date, s.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		of.Day = day
	}

	if !actor.Can(domain.CapViewAllOrders) {
		of.EmployeeID = actor.StaffID
	}

	out, err := s.store.Ledger().ListOrders(ctx, of)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// PendingForKitchen lists unfinished line items of open orders, oldest order first.
func (s *Service) PendingForKitchen(ctx context.Context, actor domain.Actor) ([]domain.KitchenItem, error) {
	const op = "service.ledger.PendingForKitchen"

	if err := actor.Require(domain.CapKitchenAccess); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out, err := s.store.Ledger().PendingForKitchen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Receipt returns a structured snapshot of an open or closed order.
func (s *Service) Receipt(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Receipt, error) {
	const op = "service.ledger.Receipt"

	o, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	hall, err := s.store.Ledger().HallOfTable(ctx, o.TableID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	r := domain.NewReceipt(*o, hall)

	return &r, nil
}

// loadOrder reads an order header and its line items, inside tx when given.
func (s *Service) loadOrder(ctx context.Context, tx postgresrepo.DB, orderID int64) (*domain.Order, error) {
	ledger := s.store.Ledger()
	if tx != nil {
		ledger = ledger.With(tx)
	}

	o, err := ledger.GetOrder(ctx, orderID, postgresrepo.LockNone)
	if err != nil {
		return nil, notFound(err, "order", orderID)
	}

	o.Items, err = ledger.LineItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return o, nil
}

func (s *Service) wallNow() time.Time {
	return domain.Wall(s.now().In(s.cfg.Location)).Truncate(time.Microsecond)
}

func (s *Service) invalidateReports(ctx context.Context, day time.Time) {
	if err := s.cache.InvalidateReports(ctx, domain.Day(day)); err != nil {
		s.logger.Warn("report cache invalidation failed", "error", err)
	}
}

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundError{Entity: entity, ID: id}
	}
	return err
}
