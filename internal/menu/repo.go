// Package menu provides the catalog model, the stock ledger and the PostgreSQL
// repository for menu items.
package menu

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/cozy-cafe/internal/apperr"
	"github.com/MikeMC777/cozy-cafe/internal/pgdb"
)

type Repository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	// GetForUpdate reads the row and locks it until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, q Query) ([]Item, error)
	// Update writes every column except stock, which only the Ledger changes. it.Stock is
	// refreshed from the row.
	Update(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id string) error
	SetStock(ctx context.Context, id string, stock int) error
	RestockAll(ctx context.Context) (int64, error)
}

type PGRepo struct{ db pgdb.DBTX }

func NewPGRepo(db pgdb.DBTX) *PGRepo { return &PGRepo{db: db} }

const selectItem = `
	SELECT id::text, name, description, price::text, category, image_url, available,
	       stock, max_stock, created_at, updated_at
	FROM menu_items`

func scanItem(row pgx.Row) (*Item, error) {
	var (
		it    Item
		price string
	)
	if err := row.Scan(&it.ID, &it.Name, &it.Description, &price, &it.Category, &it.ImageURL,
		&it.Available, &it.Stock, &it.MaxStock, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	it.Price = p
	return &it, nil
}

func (r *PGRepo) Create(ctx context.Context, it *Item) error {
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		INSERT INTO menu_items (id, name, description, price, category, image_url, available, stock, max_stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
		RETURNING created_at, updated_at
	`, it.ID, it.Name, it.Description, it.Price.String(), it.Category, it.ImageURL, it.Available, it.Stock, it.MaxStock,
	).Scan(&it.CreatedAt, &it.UpdatedAt)
	return apperr.Persistence(err, "insert menu item")
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	return r.get(ctx, id, "")
}

func (r *PGRepo) GetForUpdate(ctx context.Context, id string) (*Item, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *PGRepo) get(ctx context.Context, id, lock string) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("menu item %s", id)
	}
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()

	it, err := scanItem(r.db.QueryRow(ctx, selectItem+` WHERE id=$1`+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("menu item %s", id)
	}
	if err != nil {
		return nil, apperr.Persistence(err, "get menu item")
	}
	return it, nil
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, selectItem+`
		WHERE ($1 OR available) AND ($2 = '' OR category = $2)
		ORDER BY category, name
	`, q.IncludeUnavailable, q.Category)
	if err != nil {
		return nil, apperr.Persistence(err, "list menu items")
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperr.Persistence(err, "scan menu item")
		}
		out = append(out, *it)
	}
	return out, apperr.Persistence(rows.Err(), "list menu items")
}

func (r *PGRepo) Update(ctx context.Context, it *Item) error {
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		UPDATE menu_items
		SET name = $2, description = $3, price = $4, category = $5, image_url = $6,
		    available = $7, max_stock = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING stock, updated_at
	`, it.ID, it.Name, it.Description, it.Price.String(), it.Category, it.ImageURL, it.Available, it.MaxStock,
	).Scan(&it.Stock, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("menu item %s", it.ID)
	}
	return apperr.Persistence(err, "update menu item")
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("menu item %s", id)
	}
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM menu_items WHERE id=$1`, id)
	if pgdb.IsForeignKeyViolation(err) {
		return apperr.InvalidArgument("menu item %s is referenced by existing orders", id)
	}
	if err != nil {
		return apperr.Persistence(err, "delete menu item")
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("menu item %s", id)
	}
	return nil
}

func (r *PGRepo) SetStock(ctx context.Context, id string, stock int) error {
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `
		UPDATE menu_items SET stock = $2, updated_at = NOW() WHERE id = $1
	`, id, stock)
	if err != nil {
		return apperr.Persistence(err, "set stock")
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("menu item %s", id)
	}
	return nil
}

func (r *PGRepo) RestockAll(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `UPDATE menu_items SET stock = max_stock, updated_at = NOW()`)
	if err != nil {
		return 0, apperr.Persistence(err, "restock all")
	}
	return cmd.RowsAffected(), nil
}
