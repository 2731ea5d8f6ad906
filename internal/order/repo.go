// Package order holds the order model, its status machine and the order ledger backed
// by PostgreSQL.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/cozy-cafe/internal/apperr"
	"github.com/MikeMC777/cozy-cafe/internal/pgdb"
)

type Repository interface {
	// Create persists the header and every line as one unit.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
}

type PGRepo struct{ db pgdb.DBTX }

func NewPGRepo(db pgdb.DBTX) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	return pgdb.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO orders (id, customer_name, customer_phone, total_amount, status, order_type, notes, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
			RETURNING created_at, updated_at
		`, o.ID, o.CustomerName, o.CustomerPhone, o.TotalAmount.String(), string(o.Status), o.OrderType, o.Notes,
		).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
			return apperr.Persistence(err, "insert order")
		}

		for i, it := range o.Items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_items (id, order_id, menu_item_id, line_no, quantity, unit_price, subtotal)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
			`, it.ID, o.ID, it.MenuItemID, i, it.Quantity, it.UnitPrice.String(), it.Subtotal.String()); err != nil {
				return apperr.Persistence(err, "insert order item")
			}
		}
		return nil
	})
}

const selectOrder = `
	SELECT id::text, customer_name, customer_phone, total_amount::text, status, order_type, notes,
	       created_at, updated_at, completed_at, cancelled_at
	FROM orders`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		total  string
		status string
	)
	if err := row.Scan(&o.ID, &o.CustomerName, &o.CustomerPhone, &total, &status, &o.OrderType, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt, &o.CancelledAt); err != nil {
		return nil, err
	}
	t, err := decimal.NewFromString(total)
	if err != nil {
		return nil, err
	}
	o.TotalAmount = t
	o.Status = Status(status)
	return &o, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	return r.get(ctx, id, "")
}

func (r *PGRepo) GetForUpdate(ctx context.Context, id string) (*Order, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *PGRepo) get(ctx context.Context, id, lock string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("order %s", id)
	}
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, selectOrder+` WHERE id=$1`+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order %s", id)
	}
	if err != nil {
		return nil, apperr.Persistence(err, "get order")
	}
	items, err := r.items(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	return o, nil
}

func (r *PGRepo) List(ctx context.Context, f Filter) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, selectOrder+`
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, string(f.Status), f.EffectiveLimit())
	if err != nil {
		return nil, apperr.Persistence(err, "list orders")
	}
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, apperr.Persistence(err, "scan order")
		}
		out = append(out, *o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err, "list orders")
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

// items loads the lines of every order in ids, keyed by order id.
func (r *PGRepo) items(ctx context.Context, ids []string) (map[string][]Item, error) {
	out := make(map[string][]Item, len(ids))
	for _, id := range ids {
		out[id] = []Item{}
	}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT oi.id::text, oi.order_id::text, oi.menu_item_id::text, m.name, oi.quantity,
		       oi.unit_price::text, oi.subtotal::text
		FROM order_items oi
		JOIN menu_items m ON m.id = oi.menu_item_id
		WHERE oi.order_id = ANY($1::uuid[])
		ORDER BY oi.order_id, oi.line_no
	`, ids)
	if err != nil {
		return nil, apperr.Persistence(err, "list order items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it        Item
			unit, sub string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity, &unit, &sub); err != nil {
			return nil, apperr.Persistence(err, "scan order item")
		}
		if it.UnitPrice, err = decimal.NewFromString(unit); err != nil {
			return nil, apperr.Persistence(err, "scan order item")
		}
		if it.Subtotal, err = decimal.NewFromString(sub); err != nil {
			return nil, apperr.Persistence(err, "scan order item")
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, apperr.Persistence(rows.Err(), "list order items")
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $2,
		    updated_at = $3,
		    completed_at = CASE WHEN $2 = 'completed' THEN $3 ELSE completed_at END,
		    cancelled_at = CASE WHEN $2 = 'cancelled' THEN $3 ELSE cancelled_at END
		WHERE id = $1
	`, id, string(status), at)
	if err != nil {
		return apperr.Persistence(err, "update order status")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order %s", id)
	}
	return nil
}
