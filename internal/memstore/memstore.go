// Package memstore is a process-local implementation of service.Store. Transactions are
// serialised by one mutex and work on a copy of the data that replaces the live state
// only when the transaction succeeds.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeMC777/cozy-cafe/internal/apperr"
	"github.com/MikeMC777/cozy-cafe/internal/menu"
	"github.com/MikeMC777/cozy-cafe/internal/order"
	"github.com/MikeMC777/cozy-cafe/internal/service"
)

type state struct {
	items  map[string]menu.Item
	orders map[string]order.Order
	// seq breaks created_at ties so listing order is stable.
	seq   map[string]int64
	nextS int64
}

func (s *state) clone() *state {
	c := &state{
		items:  make(map[string]menu.Item, len(s.items)),
		orders: make(map[string]order.Order, len(s.orders)),
		seq:    make(map[string]int64, len(s.seq)),
		nextS:  s.nextS,
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.orders {
		v.Items = slices.Clone(v.Items)
		c.orders[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

type Store struct {
	mu  sync.RWMutex
	cur *state
	now func() time.Time
}

func New() *Store {
	return &Store{
		cur: &state{items: map[string]menu.Item{}, orders: map[string]order.Order{}, seq: map[string]int64{}},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Menu() menu.Repository    { return &menuRepo{s: s} }
func (s *Store) Orders() order.Repository { return &orderRepo{s: s} }

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, r service.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.cur.clone()
	if err := fn(ctx, service.Repos{Menu: &menuRepo{s: s, tx: tx}, Orders: &orderRepo{s: s, tx: tx}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperr.Persistence(err, "commit transaction")
	}
	s.cur = tx
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// view runs fn on the transaction state if there is one, otherwise on the live state
// under the store lock.
func (s *Store) view(tx *state, write bool, fn func(st *state) error) error {
	if tx != nil {
		return fn(tx)
	}
	if write {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return fn(s.cur)
}

type menuRepo struct {
	s  *Store
	tx *state
}

func (r *menuRepo) Create(_ context.Context, it *menu.Item) error {
	return r.s.view(r.tx, true, func(st *state) error {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if _, ok := st.items[it.ID]; ok {
			return apperr.Persistence(errDuplicate(it.ID), "insert menu item")
		}
		it.CreatedAt = r.s.now()
		it.UpdatedAt = it.CreatedAt
		st.items[it.ID] = *it
		return nil
	})
}

func (r *menuRepo) GetByID(_ context.Context, id string) (*menu.Item, error) {
	var out *menu.Item
	err := r.s.view(r.tx, false, func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return apperr.NotFound("menu item %s", id)
		}
		out = &it
		return nil
	})
	return out, err
}

func (r *menuRepo) GetForUpdate(ctx context.Context, id string) (*menu.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *menuRepo) List(_ context.Context, q menu.Query) ([]menu.Item, error) {
	out := []menu.Item{}
	err := r.s.view(r.tx, false, func(st *state) error {
		for _, it := range st.items {
			if !q.IncludeUnavailable && !it.Available {
				continue
			}
			if q.Category != "" && it.Category != q.Category {
				continue
			}
			out = append(out, it)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (r *menuRepo) Update(_ context.Context, it *menu.Item) error {
	return r.s.view(r.tx, true, func(st *state) error {
		cur, ok := st.items[it.ID]
		if !ok {
			return apperr.NotFound("menu item %s", it.ID)
		}
		if it.MaxStock < cur.Stock {
			return apperr.Persistence(errCheck(it.ID), "update menu item")
		}
		it.Stock = cur.Stock
		it.CreatedAt = cur.CreatedAt
		it.UpdatedAt = r.s.now()
		st.items[it.ID] = *it
		return nil
	})
}

func (r *menuRepo) Delete(_ context.Context, id string) error {
	return r.s.view(r.tx, true, func(st *state) error {
		if _, ok := st.items[id]; !ok {
			return apperr.NotFound("menu item %s", id)
		}
		for _, o := range st.orders {
			for _, line := range o.Items {
				if line.MenuItemID == id {
					return apperr.InvalidArgument("menu item %s is referenced by existing orders", id)
				}
			}
		}
		delete(st.items, id)
		return nil
	})
}

func (r *menuRepo) SetStock(_ context.Context, id string, stock int) error {
	return r.s.view(r.tx, true, func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return apperr.NotFound("menu item %s", id)
		}
		if stock < 0 || stock > it.MaxStock {
			return apperr.Persistence(errCheck(id), "set stock")
		}
		it.Stock = stock
		it.UpdatedAt = r.s.now()
		st.items[id] = it
		return nil
	})
}

func (r *menuRepo) RestockAll(_ context.Context) (int64, error) {
	var n int64
	err := r.s.view(r.tx, true, func(st *state) error {
		now := r.s.now()
		for id, it := range st.items {
			it.Stock = it.MaxStock
			it.UpdatedAt = now
			st.items[id] = it
			n++
		}
		return nil
	})
	return n, err
}

type orderRepo struct {
	s  *Store
	tx *state
}

func (r *orderRepo) Create(_ context.Context, o *order.Order) error {
	return r.s.view(r.tx, true, func(st *state) error {
		if _, ok := st.orders[o.ID]; ok {
			return apperr.Persistence(errDuplicate(o.ID), "insert order")
		}
		for _, line := range o.Items {
			if _, ok := st.items[line.MenuItemID]; !ok {
				return apperr.Persistence(errForeignKey(line.MenuItemID), "insert order item")
			}
		}
		o.CreatedAt = r.s.now()
		o.UpdatedAt = o.CreatedAt
		stored := *o
		stored.Items = slices.Clone(o.Items)
		st.orders[o.ID] = stored
		st.nextS++
		st.seq[o.ID] = st.nextS
		return nil
	})
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	var out *order.Order
	err := r.s.view(r.tx, false, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperr.NotFound("order %s", id)
		}
		o = withNames(st, o)
		out = &o
		return nil
	})
	return out, err
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepo) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	out := []order.Order{}
	err := r.s.view(r.tx, false, func(st *state) error {
		for _, o := range st.orders {
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			out = append(out, withNames(st, o))
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return st.seq[out[i].ID] > st.seq[out[j].ID]
		})
		return nil
	})
	if len(out) > f.EffectiveLimit() {
		out = out[:f.EffectiveLimit()]
	}
	return out, err
}

func (r *orderRepo) UpdateStatus(_ context.Context, id string, status order.Status, at time.Time) error {
	return r.s.view(r.tx, true, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperr.NotFound("order %s", id)
		}
		o.Status = status
		o.UpdatedAt = at
		switch status {
		case order.StatusCompleted:
			o.CompletedAt = &at
		case order.StatusCancelled:
			o.CancelledAt = &at
		}
		st.orders[id] = o
		return nil
	})
}

// withNames copies o and fills line names from the catalog, as the SQL join does.
func withNames(st *state, o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	if o.Items == nil {
		o.Items = []order.Item{}
	}
	for i := range o.Items {
		if it, ok := st.items[o.Items[i].MenuItemID]; ok {
			o.Items[i].Name = it.Name
		}
	}
	return o
}

type storeError string

func (e storeError) Error() string { return string(e) }

func errDuplicate(id string) error  { return storeError("duplicate key " + id) }
func errForeignKey(id string) error { return storeError("unknown menu item " + id) }
func errCheck(id string) error      { return storeError("stock out of range for " + id) }
