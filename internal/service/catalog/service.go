package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/repository"
	postgresrepo "github.com/kirinyoku/resto-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/resto-go/internal/repository/redis"
	"github.com/kirinyoku/resto-go/internal/uow"
	"github.com/shopspring/decimal"
)

type Config struct {
	DishesTTL time.Duration
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	uow    *uow.UoW
	logger *slog.Logger
	cfg    Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, logger *slog.Logger, cfg Config) *Service {
	if cfg.DishesTTL <= 0 {
		cfg.DishesTTL = 60 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:  store,
		cache:  cache,
		uow:    uow.NewUoW(store),
		logger: logger,
		cfg:    cfg,
	}
}

// DishInput is a full dish definition for create.
type DishInput struct {
	CategoryID  int64
	Name        string
	Composition string
	WeightGrams int
	Price       decimal.Decimal
	IsAvailable *bool
}

// DishPatch carries the fields of an update; nil means unchanged.
type DishPatch struct {
	CategoryID  *int64
	Name        *string
	Composition *string
	WeightGrams *int
	Price       *decimal.Decimal
	IsAvailable *bool
}

type TablePatch struct {
	HallID   *int64
	Capacity *int
}

func (s *Service) ListHalls(ctx context.Context) ([]domain.Hall, error) {
	const op = "service.catalog.ListHalls"

	halls, err := s.store.Catalog().ListHalls(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return halls, nil
}

// GetHall returns a hall with its tables.
//
// Returns:
//   - error: domain.ErrNotFound if the hall is not found.
func (s *Service) GetHall(ctx context.Context, id int64) (*domain.Hall, error) {
	const op = "service.catalog.GetHall"

	h, err := s.store.Catalog().GetHall(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, notFound(err, "hall", id))
	}

	tables, err := s.store.Catalog().ListTables(ctx, postgresrepo.TableFilter{HallID: id})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	h.Tables = tables

	return h, nil
}

func (s *Service) CreateHall(ctx context.Context, actor domain.Actor, name string) (*domain.Hall, error) {
	const op = "service.catalog.CreateHall"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	name, err := requireName(name)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	id, err := s.store.Catalog().CreateHall(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &domain.Hall{ID: id, Name: name}, nil
}

func (s *Service) UpdateHall(ctx context.Context, actor domain.Actor, id int64, name string) (*domain.Hall, error) {
	const op = "service.catalog.UpdateHall"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	name, err := requireName(name)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.store.Catalog().RenameHall(ctx, id, name); err != nil {
		return nil, fmt.Errorf("%s:%w", op, notFound(err, "hall", id))
	}

	return s.GetHall(ctx, id)
}

// DeleteHall removes a hall that has no tables.
//
// Returns:
//   - error: domain.ErrConflict while the hall has tables.
//   - error: domain.ErrNotFound if the hall is not found.
func (s *Service) DeleteHall(ctx context.Context, actor domain.Actor, id int64) error {
	const op = "service.catalog.DeleteHall"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err := s.store.Catalog().DeleteHall(ctx, id)
	if errors.Is(err, repository.ErrReferenced) {
		return fmt.Errorf("%s:%w: hall %d still has tables", op, domain.ErrConflict, id)
	}
	if err != nil {
		return fmt.Errorf("%s:%w", op, notFound(err, "hall", id))
	}

	return nil
}

func (s *Service) ListTables(ctx context.Context, hallID int64) ([]domain.Table, error) {
	const op = "service.catalog.ListTables"

	tables, err := s.store.Catalog().ListTables(ctx, postgresrepo.TableFilter{HallID: hallID})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return tables, nil
}

func (s *Service) GetTable(ctx context.Context, id int64) (*domain.Table, error) {
	const op = "service.catalog.GetTable"

	t, err := s.store.Catalog().GetTable(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, notFound(err, "table", id))
	}

	return t, nil
}

// CreateTable adds a table to an existing hall and keeps the hall's table count in step.
func (s *Service) CreateTable(ctx context.Context, actor domain.Actor, hallID int64, capacity int) (*domain.Table, error) {
	const op = "service.catalog.CreateTable"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if capacity < 1 {
		return nil, fmt.Errorf("%s:%w", op, domain.InvalidInputError{Field: "capacity", Reason: "must be at least 1"})
	}

	var out *domain.Table

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		repo := s.store.Catalog().With(tx)

		if _, err := repo.GetHall(ctx, hallID); err != nil {
			return notFound(err, "hall", hallID)
		}

		id, err := repo.CreateTable(ctx, hallID, capacity)
		if err != nil {
			return err
		}

		out, err = repo.GetTable(ctx, id)
		if err != nil {
			return err
		}

		after(s.invalidateAvailability)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) UpdateTable(ctx context.Context, actor domain.Actor, id int64, p TablePatch) (*domain.Table, error) {
	const op = "service.catalog.UpdateTable"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if p.Capacity != nil && *p.Capacity < 1 {
		return nil, fmt.Errorf("%s:%w", op, domain.InvalidInputError{Field: "capacity", Reason: "must be at least 1"})
	}

	var out *domain.Table

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		repo := s.store.Catalog().With(tx)

		cur, err := repo.GetTable(ctx, id)
		if err != nil {
			return notFound(err, "table", id)
		}

		next := *cur
		if p.HallID != nil {
			if _, err := repo.GetHall(ctx, *p.HallID); err != nil {
				return notFound(err, "hall", *p.HallID)
			}
			next.HallID = *p.HallID
		}
		if p.Capacity != nil {
			next.Capacity = *p.Capacity
		}

		if err := repo.UpdateTable(ctx, next, cur.HallID); err != nil {
			return err
		}

		out, err = repo.GetTable(ctx, id)
		if err != nil {
			return err
		}

		after(s.invalidateAvailability)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// DeleteTable removes a table. Reservations and orders block deletion rather than cascade.
//
// Returns:
//   - error: domain.ErrConflict while reservations or orders reference the table.
//   - error: domain.ErrNotFound if the table is not found.
func (s *Service) DeleteTable(ctx context.Context, actor domain.Actor, id int64) error {
	const op = "service.catalog.DeleteTable"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		err := s.store.Catalog().With(tx).DeleteTable(ctx, id)
		if errors.Is(err, repository.ErrReferenced) {
			return fmt.Errorf("%w: table %d has reservations or orders", domain.ErrConflict, id)
		}
		if err != nil {
			return notFound(err, "table", id)
		}

		after(s.invalidateAvailability)

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const op = "service.catalog.ListCategories"

	out, err := s.store.Catalog().ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) CreateCategory(ctx context.Context, actor domain.Actor, name string) (*domain.Category, error) {
	const op = "service.catalog.CreateCategory"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	name, err := requireName(name)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	id, err := s.store.Catalog().CreateCategory(ctx, name)
	if errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("%s:%w: category %q exists", op, domain.ErrConflict, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &domain.Category{ID: id, Name: name}, nil
}

// UpdateCategory renames a category.
//
// Returns:
//   - error: domain.ErrConflict if another category has the name.
//   - error: domain.ErrNotFound if the category is not found.
func (s *Service) UpdateCategory(ctx context.Context, actor domain.Actor, id int64, name string) (*domain.Category, error) {
	const op = "service.catalog.UpdateCategory"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	name, err := requireName(name)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	err = s.store.Catalog().RenameCategory(ctx, id, name)
	if errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("%s:%w: category %q exists", op, domain.ErrConflict, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, notFound(err, "category", id))
	}

	s.invalidateDishes(ctx)
	s.invalidateReports(ctx)

	return &domain.Category{ID: id, Name: name}, nil
}

func (s *Service) DeleteCategory(ctx context.Context, actor domain.Actor, id int64) error {
	const op = "service.catalog.DeleteCategory"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err := s.store.Catalog().DeleteCategory(ctx, id)
	if errors.Is(err, repository.ErrReferenced) {
		return fmt.Errorf("%s:%w: category %d still has dishes", op, domain.ErrConflict, id)
	}
	if err != nil {
		return fmt.Errorf("%s:%w", op, notFound(err, "category", id))
	}

	return nil
}

// ListDishes returns the menu, cached per filter.
func (s *Service) ListDishes(ctx context.Context, categoryID int64, onlyAvailable bool) ([]domain.Dish, error) {
	const op = "service.catalog.ListDishes"

	dishes, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyDishes(categoryID, onlyAvailable),
		s.cfg.DishesTTL,
		func(ctx context.Context) ([]domain.Dish, error) {
			return s.store.Catalog().ListDishes(ctx, categoryID, onlyAvailable)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return dishes, nil
}

func (s *Service) GetDish(ctx context.Context, id int64) (*domain.Dish, error) {
	const op = "service.catalog.GetDish"

	d, err := s.store.Catalog().GetDish(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, notFound(err, "dish", id))
	}

	return d, nil
}

func (s *Service) CreateDish(ctx context.Context, actor domain.Actor, in DishInput) (*domain.Dish, error) {
	const op = "service.catalog.CreateDish"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	d := domain.Dish{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Composition: strings.TrimSpace(in.Composition),
		WeightGrams: in.WeightGrams,
		Price:       domain.MoneyOf(in.Price.Round(2)),
		IsAvailable: in.IsAvailable == nil || *in.IsAvailable,
	}
	if err := validateDish(d); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.Dish

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		repo := s.store.Catalog().With(tx)

		id, err := repo.CreateDish(ctx, d)
		if errors.Is(err, repository.ErrReferenced) {
			return domain.NotFoundError{Entity: "category", ID: d.CategoryID}
		}
		if err != nil {
			return err
		}

		out, err = repo.GetDish(ctx, id)
		if err != nil {
			return err
		}

		after(s.invalidateDishes)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) UpdateDish(ctx context.Context, actor domain.Actor, id int64, p DishPatch) (*domain.Dish, error) {
	const op = "service.catalog.UpdateDish"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.Dish

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		repo := s.store.Catalog().With(tx)

		cur, err := repo.GetDish(ctx, id)
		if err != nil {
			return notFound(err, "dish", id)
		}

		next := *cur
		if p.CategoryID != nil {
			next.CategoryID = *p.CategoryID
		}
		if p.Name != nil {
			next.Name = strings.TrimSpace(*p.Name)
		}
		if p.Composition != nil {
			next.Composition = strings.TrimSpace(*p.Composition)
		}
		if p.WeightGrams != nil {
			next.WeightGrams = *p.WeightGrams
		}
		if p.Price != nil {
			next.Price = domain.MoneyOf(p.Price.Round(2))
		}
		if p.IsAvailable != nil {
			next.IsAvailable = *p.IsAvailable
		}
		if err := validateDish(next); err != nil {
			return err
		}

		err = repo.UpdateDish(ctx, next)
		if errors.Is(err, repository.ErrReferenced) {
			return domain.NotFoundError{Entity: "category", ID: next.CategoryID}
		}
		if err != nil {
			return err
		}

		out, err = repo.GetDish(ctx, id)
		if err != nil {
			return err
		}

		after(s.invalidateDishes)
		// Cached rankings and summaries carry dish names.
		after(s.invalidateReports)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// DeleteDish removes a dish that no order has ever referenced.
//
// Returns:
//   - error: domain.ErrConflict while sale rows reference the dish.
//   - error: domain.ErrNotFound if the dish is not found.
func (s *Service) DeleteDish(ctx context.Context, actor domain.Actor, id int64) error {
	const op = "service.catalog.DeleteDish"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		err := s.store.Catalog().With(tx).DeleteDish(ctx, id)
		if errors.Is(err, repository.ErrReferenced) {
			return fmt.Errorf("%w: dish %d appears in orders; mark it unavailable instead", domain.ErrConflict, id)
		}
		if err != nil {
			return notFound(err, "dish", id)
		}

		after(s.invalidateDishes)

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// SetDishAvailability sets the availability flag, or toggles it when available is nil.
func (s *Service) SetDishAvailability(ctx context.Context, actor domain.Actor, id int64, available *bool) (bool, error) {
	const op = "service.catalog.SetDishAvailability"

	if err := actor.Require(domain.CapManageCatalog); err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	var out bool

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		v, err := s.store.Catalog().With(tx).SetDishAvailability(ctx, id, available)
		if err != nil {
			return notFound(err, "dish", id)
		}
		out = v

		after(s.invalidateDishes)

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) invalidateDishes(ctx context.Context) {
	if err := s.cache.InvalidateDishes(ctx); err != nil {
		s.logger.Warn("dish cache invalidation failed", "error", err)
	}
}

func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.cache.InvalidateReports(ctx); err != nil {
		s.logger.Warn("report cache invalidation failed", "error", err)
	}
}

func (s *Service) invalidateAvailability(ctx context.Context) {
	if err := s.cache.InvalidateAvailability(ctx); err != nil {
		s.logger.Warn("availability cache invalidation failed", "error", err)
	}
}

func validateDish(d domain.Dish) error {
	if d.Name == "" {
		return domain.InvalidInputError{Field: "name", Reason: "is required"}
	}
	if d.CategoryID <= 0 {
		return domain.InvalidInputError{Field: "category_id", Reason: "is required"}
	}
	if d.Price.IsNegative() {
		return domain.InvalidInputError{Field: "price", Reason: "must not be negative"}
	}
	if d.WeightGrams < 0 {
		return domain.InvalidInputError{Field: "weight_grams", Reason: "must not be negative"}
	}
	return nil
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.InvalidInputError{Field: "name", Reason: "is required"}
	}
	return name, nil
}

// notFound turns repository.ErrNotFound into a domain.NotFoundError for entity.
func notFound(err error, entity string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundError{Entity: entity, ID: id}
	}
	return err
}
