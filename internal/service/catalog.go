package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MikeMC777/cozy-cafe/internal/apperr"
	"github.com/MikeMC777/cozy-cafe/internal/menu"
)

type Catalog struct {
	store Store
	log   logrus.FieldLogger
}

func NewCatalog(store Store, log logrus.FieldLogger) *Catalog {
	return &Catalog{store: store, log: log}
}

func (c *Catalog) List(ctx context.Context, q menu.Query) ([]menu.Item, error) {
	return c.store.Menu().List(ctx, q)
}

func (c *Catalog) Get(ctx context.Context, id string) (*menu.Item, error) {
	return c.store.Menu().GetByID(ctx, id)
}

func (c *Catalog) Create(ctx context.Context, req menu.CreateRequest) (*menu.Item, error) {
	it := &menu.Item{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Category:    strings.TrimSpace(req.Category),
		ImageURL:    req.ImageURL,
		Available:   true,
		Stock:       req.Stock,
		MaxStock:    max(req.Stock, menu.DefaultMaxStock),
	}
	if req.Available != nil {
		it.Available = *req.Available
	}
	if req.MaxStock != nil {
		it.MaxStock = *req.MaxStock
	}
	if err := validateItem(it); err != nil {
		return nil, err
	}
	if err := c.store.Menu().Create(ctx, it); err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"menu_item": it.ID, "name": it.Name}).Info("menu item created")
	return it, nil
}

// Update applies a partial patch. Lowering max_stock below the current stock first sets
// the stock down to it through the ledger; Update itself never writes stock.
func (c *Catalog) Update(ctx context.Context, id string, req menu.UpdateRequest) (*menu.Item, error) {
	var out *menu.Item
	err := c.store.Do(ctx, func(ctx context.Context, r Repos) error {
		it, err := r.Menu.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			it.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			it.Description = *req.Description
		}
		if req.Price != nil {
			it.Price = *req.Price
		}
		if req.Category != nil {
			it.Category = strings.TrimSpace(*req.Category)
		}
		if req.ImageURL != nil {
			it.ImageURL = *req.ImageURL
		}
		if req.Available != nil {
			it.Available = *req.Available
		}
		if req.MaxStock != nil {
			if *req.MaxStock < it.Stock {
				ch, err := menu.NewLedger(r.Menu).Apply(ctx, id, *req.MaxStock, menu.OpSet)
				if err != nil {
					return err
				}
				it.Stock = ch.NewStock
			}
			it.MaxStock = *req.MaxStock
		}
		if err := validateItem(it); err != nil {
			return err
		}
		if err := r.Menu.Update(ctx, it); err != nil {
			return err
		}
		out = it
		return nil
	})
	return out, err
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.store.Menu().Delete(ctx, id); err != nil {
		return err
	}
	c.log.WithField("menu_item", id).Info("menu item deleted")
	return nil
}

func validateItem(it *menu.Item) error {
	switch {
	case it.Name == "":
		return apperr.InvalidArgument("name is required")
	case it.Category == "":
		return apperr.InvalidArgument("category is required")
	case !it.Price.IsPositive():
		return apperr.InvalidArgument("price must be positive")
	case it.Stock < 0:
		return apperr.InvalidArgument("stock must be non-negative")
	case it.MaxStock < it.Stock:
		return apperr.InvalidArgument("max_stock (%d) must not be below stock (%d)", it.MaxStock, it.Stock)
	}
	return nil
}

// AdjustStock applies a set/add/subtract operation through the stock ledger.
func (c *Catalog) AdjustStock(ctx context.Context, id string, amount int, op menu.StockOp) (*menu.StockChange, error) {
	var ch *menu.StockChange
	err := c.store.Do(ctx, func(ctx context.Context, r Repos) error {
		var err error
		ch, err = menu.NewLedger(r.Menu).Apply(ctx, id, amount, op)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"menu_item": id, "op": op, "amount": amount, "from": ch.PreviousStock, "to": ch.NewStock,
	}).Info("stock adjusted")
	return ch, nil
}

func (c *Catalog) Restock(ctx context.Context, id string) (*menu.StockChange, error) {
	var ch *menu.StockChange
	err := c.store.Do(ctx, func(ctx context.Context, r Repos) error {
		var err error
		ch, err = menu.NewLedger(r.Menu).Restock(ctx, id)
		return err
	})
	return ch, err
}

func (c *Catalog) RestockAll(ctx context.Context) (int64, error) {
	var n int64
	err := c.store.Do(ctx, func(ctx context.Context, r Repos) error {
		var err error
		n, err = menu.NewLedger(r.Menu).RestockAll(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	c.log.WithField("count", n).Info("all menu items restocked")
	return n, nil
}
