package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/MikeMC777/cozy-cafe/internal/apperr"
	"github.com/MikeMC777/cozy-cafe/internal/menu"
	"github.com/MikeMC777/cozy-cafe/internal/order"
)

// Orders is the order lifecycle manager: it owns creation, status changes and
// cancellation, and keeps stock in step with them.
type Orders struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewOrders(store Store, log logrus.FieldLogger) *Orders {
	return &Orders{store: store, log: log, now: time.Now}
}

type cartLine struct {
	menuItemID  string
	quantity    int
	clientPrice *decimal.Decimal
}

// mergeLines validates the cart and folds repeated menu items into one line, keeping
// the order in which items first appear.
func mergeLines(items []order.CreateOrderItem) ([]cartLine, error) {
	if len(items) == 0 {
		return nil, apperr.InvalidArgument("order must contain at least one item")
	}
	idx := map[string]int{}
	lines := make([]cartLine, 0, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.MenuItemID)
		if id == "" {
			return nil, apperr.InvalidArgument("every item needs a menu item id")
		}
		if it.Quantity <= 0 {
			return nil, apperr.InvalidArgument("quantity for menu item %s must be positive, got %d", id, it.Quantity)
		}
		if i, ok := idx[id]; ok {
			lines[i].quantity += it.Quantity
			continue
		}
		idx[id] = len(lines)
		lines = append(lines, cartLine{menuItemID: id, quantity: it.Quantity, clientPrice: it.Price})
	}
	return lines, nil
}

func (s *Orders) Create(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error) {
	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}

	var created *order.Order
	err = s.store.Do(ctx, func(ctx context.Context, r Repos) error {
		// Lock catalog rows in id order so concurrent carts cannot deadlock.
		ids := make([]string, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.menuItemID)
		}
		sort.Strings(ids)
		catalog := make(map[string]*menu.Item, len(ids))
		for _, id := range ids {
			it, err := r.Menu.GetForUpdate(ctx, id)
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.InvalidArgument("menu item %s does not exist", id)
			}
			if err != nil {
				return err
			}
			if !it.Available {
				return apperr.InvalidArgument("menu item %s is not available", it.Name)
			}
			catalog[id] = it
		}

		var shortfalls []apperr.Shortfall
		for _, l := range lines {
			it := catalog[l.menuItemID]
			if l.quantity > it.Stock {
				shortfalls = append(shortfalls, apperr.Shortfall{
					MenuItemID:        it.ID,
					MenuName:          it.Name,
					RequestedQuantity: l.quantity,
					CurrentStock:      it.Stock,
				})
			}
		}
		if len(shortfalls) > 0 {
			return &apperr.InsufficientStockError{Shortfalls: shortfalls}
		}

		o := &order.Order{
			ID:            uuid.NewString(),
			CustomerName:  strings.TrimSpace(req.CustomerName),
			CustomerPhone: strings.TrimSpace(req.CustomerPhone),
			Status:        order.StatusPending,
			OrderType:     strings.TrimSpace(req.OrderType),
			Notes:         req.Notes,
		}
		if o.CustomerName == "" {
			o.CustomerName = order.DefaultCustomerName
		}
		if o.OrderType == "" {
			o.OrderType = order.DefaultOrderType
		}
		for _, l := range lines {
			it := catalog[l.menuItemID]
			if l.clientPrice != nil && !l.clientPrice.Equal(it.Price) {
				s.log.WithFields(logrus.Fields{
					"menu_item": it.ID, "cart_price": l.clientPrice.String(), "catalog_price": it.Price.String(),
				}).Warn("cart price differs from catalog, using catalog price")
			}
			o.Items = append(o.Items, order.Item{
				ID:         uuid.NewString(),
				OrderID:    o.ID,
				MenuItemID: it.ID,
				Name:       it.Name,
				Quantity:   l.quantity,
				UnitPrice:  it.Price,
				Subtotal:   it.Price.Mul(decimal.NewFromInt(int64(l.quantity))),
			})
		}
		o.TotalAmount = order.Total(o.Items)

		if err := r.Orders.Create(ctx, o); err != nil {
			return err
		}
		qty := make(map[string]int, len(lines))
		for _, l := range lines {
			qty[l.menuItemID] = l.quantity
		}
		ledger := menu.NewLedger(r.Menu)
		for _, id := range ids {
			if _, err := ledger.Apply(ctx, id, qty[id], menu.OpSubtract); err != nil {
				return err
			}
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"order": created.ID, "total": created.TotalAmount.String(), "lines": len(created.Items),
	}).Info("order created")
	return created, nil
}

func (s *Orders) Get(ctx context.Context, id string) (*order.Order, error) {
	return s.store.Orders().GetByID(ctx, id)
}

func (s *Orders) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	return s.store.Orders().List(ctx, f)
}

// UpdateStatus moves an order to status. Cancellation goes through Cancel so stock is
// restored.
func (s *Orders) UpdateStatus(ctx context.Context, id, status string) (*order.Order, error) {
	to, err := order.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if to == order.StatusCancelled {
		return s.Cancel(ctx, id)
	}

	var out *order.Order
	err = s.store.Do(ctx, func(ctx context.Context, r Repos) error {
		o, err := r.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := order.CheckTransition(o.Status, to); err != nil {
			return err
		}
		if err := r.Orders.UpdateStatus(ctx, id, to, s.now().UTC()); err != nil {
			return err
		}
		out, err = r.Orders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"order": id, "status": to}).Info("order status updated")
	return out, nil
}

// Cancel cancels a pending order and puts every line's quantity back on stock.
func (s *Orders) Cancel(ctx context.Context, id string) (*order.Order, error) {
	var out *order.Order
	err := s.store.Do(ctx, func(ctx context.Context, r Repos) error {
		o, err := r.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := order.CheckTransition(o.Status, order.StatusCancelled); err != nil {
			return err
		}
		// Same lock order as Create.
		lines := slices.Clone(o.Items)
		sort.Slice(lines, func(i, j int) bool { return lines[i].MenuItemID < lines[j].MenuItemID })
		ledger := menu.NewLedger(r.Menu)
		for _, it := range lines {
			if _, err := ledger.Apply(ctx, it.MenuItemID, it.Quantity, menu.OpAdd); err != nil {
				return err
			}
		}
		if err := r.Orders.UpdateStatus(ctx, id, order.StatusCancelled, s.now().UTC()); err != nil {
			return err
		}
		out, err = r.Orders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"order": id, "lines": len(out.Items)}).Info("order cancelled, stock restored")
	return out, nil
}
