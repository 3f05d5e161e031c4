package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/repository"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// TableFilter narrows ListTables. Zero values mean "any".
type TableFilter struct {
	HallID      int64
	MinCapacity int
}

func (r *CatalogRepo) ListHalls(ctx context.Context) ([]domain.Hall, error) {
	const op = "postgresrepo.CatalogRepo.ListHalls"

	rows, err := r.handle().Query(ctx,
		`SELECT id, name, table_count
		 FROM hall
		 ORDER BY id`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Hall, error) {
		var h domain.Hall
		err := row.Scan(&h.ID, &h.Name, &h.TableCount)
		return h, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// GetHall retrieves a hall by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the hall is not found.
func (r *CatalogRepo) GetHall(ctx context.Context, id int64) (*domain.Hall, error) {
	const op = "postgresrepo.CatalogRepo.GetHall"

	var h domain.Hall
	err := r.handle().QueryRow(ctx,
		`SELECT id, name, table_count FROM hall WHERE id = $1`,
		id,
	).Scan(&h.ID, &h.Name, &h.TableCount)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &h, nil
}

func (r *CatalogRepo) CreateHall(ctx context.Context, name string) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateHall"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO hall (name) VALUES ($1) RETURNING id`,
		name,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) RenameHall(ctx context.Context, id int64, name string) error {
	const op = "postgresrepo.CatalogRepo.RenameHall"

	tag, err := r.handle().Exec(ctx, `UPDATE hall SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// DeleteHall removes an empty hall.
//
// Returns:
//   - error: repository.ErrReferenced while the hall still has tables.
//   - error: repository.ErrNotFound if the hall is not found.
func (r *CatalogRepo) DeleteHall(ctx context.Context, id int64) error {
	const op = "postgresrepo.CatalogRepo.DeleteHall"

	tag, err := r.handle().Exec(ctx, `DELETE FROM hall WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *CatalogRepo) ListTables(ctx context.Context, f TableFilter) ([]domain.Table, error) {
	const op = "postgresrepo.CatalogRepo.ListTables"

	rows, err := r.handle().Query(ctx,
		`SELECT t.id, t.hall_id, h.name, t.capacity
		 FROM restaurant_table t
		 JOIN hall h ON h.id = t.hall_id
		 WHERE ($1 = 0 OR t.hall_id = $1)
		   AND t.capacity >= $2
		 ORDER BY t.hall_id, t.id`,
		f.HallID, f.MinCapacity,
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

// GetTable retrieves a table with its hall name.
//
// Returns:
//   - error: repository.ErrNotFound if the table is not found.
func (r *CatalogRepo) GetTable(ctx context.Context, id int64) (*domain.Table, error) {
	const op = "postgresrepo.CatalogRepo.GetTable"

	rows, err := r.handle().Query(ctx,
		`SELECT t.id, t.hall_id, h.name, t.capacity
		 FROM restaurant_table t
		 JOIN hall h ON h.id = t.hall_id
		 WHERE t.id = $1`,
		id,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	t, err := pgx.CollectExactlyOneRow(rows, scanTable)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// CreateTable inserts a table and bumps the hall's table counter in the same statement batch.
//
// Returns:
//   - error: repository.ErrReferenced if the hall does not exist.
func (r *CatalogRepo) CreateTable(ctx context.Context, hallID int64, capacity int) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateTable"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO restaurant_table (hall_id, capacity)
		 VALUES ($1, $2)
		 RETURNING id`,
		hallID, capacity,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	if _, err := db.Exec(ctx,
		`UPDATE hall SET table_count = table_count + 1 WHERE id = $1`,
		hallID,
	); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// UpdateTable rewrites hall and capacity and moves the counters when the hall changes.
func (r *CatalogRepo) UpdateTable(ctx context.Context, t domain.Table, prevHallID int64) error {
	const op = "postgresrepo.CatalogRepo.UpdateTable"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE restaurant_table SET hall_id = $2, capacity = $3 WHERE id = $1`,
		t.ID, t.HallID, t.Capacity,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	if prevHallID == t.HallID {
		return nil
	}

	batch := &pgx.Batch{}
	batch.Queue(`UPDATE hall SET table_count = table_count - 1 WHERE id = $1`, prevHallID)
	batch.Queue(`UPDATE hall SET table_count = table_count + 1 WHERE id = $1`, t.HallID)
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// DeleteTable removes a table that no reservation or order references.
//
// Returns:
//   - error: repository.ErrReferenced while reservations or orders point at the table.
//   - error: repository.ErrNotFound if the table is not found.
func (r *CatalogRepo) DeleteTable(ctx context.Context, id int64) error {
	const op = "postgresrepo.CatalogRepo.DeleteTable"

	db := r.handle()

	var hallID int64
	err := db.QueryRow(ctx,
		`DELETE FROM restaurant_table WHERE id = $1 RETURNING hall_id`,
		id,
	).Scan(&hallID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if _, err := db.Exec(ctx,
		`UPDATE hall SET table_count = GREATEST(table_count - 1, 0) WHERE id = $1`,
		hallID,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const op = "postgresrepo.CatalogRepo.ListCategories"

	rows, err := r.handle().Query(ctx, `SELECT id, name FROM dish_category ORDER BY id`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// CreateCategory returns repository.ErrConflict for a duplicate name.
func (r *CatalogRepo) CreateCategory(ctx context.Context, name string) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateCategory"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO dish_category (name) VALUES ($1) RETURNING id`,
		name,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// RenameCategory returns repository.ErrConflict if the name is taken.
func (r *CatalogRepo) RenameCategory(ctx context.Context, id int64, name string) error {
	const op = "postgresrepo.CatalogRepo.RenameCategory"

	tag, err := r.handle().Exec(ctx, `UPDATE dish_category SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *CatalogRepo) DeleteCategory(ctx context.Context, id int64) error {
	const op = "postgresrepo.CatalogRepo.DeleteCategory"

	tag, err := r.handle().Exec(ctx, `DELETE FROM dish_category WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

const dishColumns = `d.id, d.category_id, c.name, d.name, d.composition, d.weight_grams, d.price, d.is_available`

func (r *CatalogRepo) ListDishes(ctx context.Context, categoryID int64, onlyAvailable bool) ([]domain.Dish, error) {
	const op = "postgresrepo.CatalogRepo.ListDishes"

	rows, err := r.handle().Query(ctx,
		`SELECT `+dishColumns+`
		 FROM dish d
		 JOIN dish_category c ON c.id = d.category_id
		 WHERE ($1 = 0 OR d.category_id = $1)
		   AND (NOT $2 OR d.is_available)
		 ORDER BY d.category_id, d.name`,
		categoryID, onlyAvailable,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, scanDish)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) GetDish(ctx context.Context, id int64) (*domain.Dish, error) {
	const op = "postgresrepo.CatalogRepo.GetDish"

	rows, err := r.handle().Query(ctx,
		`SELECT `+dishColumns+`
		 FROM dish d
		 JOIN dish_category c ON c.id = d.category_id
		 WHERE d.id = $1`,
		id,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDish)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &d, nil
}

// DishesByIDs loads the given dishes keyed by id. Missing ids are simply absent.
func (r *CatalogRepo) DishesByIDs(ctx context.Context, ids []int64) (map[int64]domain.Dish, error) {
	const op = "postgresrepo.CatalogRepo.DishesByIDs"

	out := make(map[int64]domain.Dish, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.handle().Query(ctx,
		`SELECT `+dishColumns+`
		 FROM dish d
		 JOIN dish_category c ON c.id = d.category_id
		 WHERE d.id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	dishes, err := pgx.CollectRows(rows, scanDish)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	for _, d := range dishes {
		out[d.ID] = d
	}

	return out, nil
}

// CreateDish returns repository.ErrReferenced when the category does not exist.
func (r *CatalogRepo) CreateDish(ctx context.Context, d domain.Dish) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateDish"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO dish (category_id, name, composition, weight_grams, price, is_available)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		d.CategoryID, d.Name, d.Composition, d.WeightGrams, d.Price.Decimal, d.IsAvailable,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) UpdateDish(ctx context.Context, d domain.Dish) error {
	const op = "postgresrepo.CatalogRepo.UpdateDish"

	tag, err := r.handle().Exec(ctx,
		`UPDATE dish
		 SET category_id = $2, name = $3, composition = $4, weight_grams = $5, price = $6, is_available = $7
		 WHERE id = $1`,
		d.ID, d.CategoryID, d.Name, d.Composition, d.WeightGrams, d.Price.Decimal, d.IsAvailable,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// SetDishAvailability sets the flag, or flips it when available is nil, and returns the new value.
// DeleteDish returns repository.ErrReferenced while sale rows point at the dish.
func (r *CatalogRepo) DeleteDish(ctx context.Context, id int64) error {
	const op = "postgresrepo.CatalogRepo.DeleteDish"

	tag, err := r.handle().Exec(ctx, `DELETE FROM dish WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *CatalogRepo) SetDishAvailability(ctx context.Context, id int64, available *bool) (bool, error) {
	const op = "postgresrepo.CatalogRepo.SetDishAvailability"

	var out bool
	err := r.handle().QueryRow(ctx,
		`UPDATE dish
		 SET is_available = COALESCE($2, NOT is_available)
		 WHERE id = $1
		 RETURNING is_available`,
		id, available,
	).Scan(&out)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return out, nil
}

func scanTable(row pgx.CollectableRow) (domain.Table, error) {
	var t domain.Table
	err := row.Scan(&t.ID, &t.HallID, &t.HallName, &t.Capacity)
	return t, err
}

func scanDish(row pgx.CollectableRow) (domain.Dish, error) {
	var d domain.Dish
	err := row.Scan(
		&d.ID,
		&d.CategoryID,
		&d.CategoryName,
		&d.Name,
		&d.Composition,
		&d.WeightGrams,
		&d.Price.Decimal,
		&d.IsAvailable,
	)
	return d, err
}
