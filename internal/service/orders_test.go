package service_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/cozy-cafe/internal/apperr"
	"github.com/MikeMC777/cozy-cafe/internal/memstore"
	"github.com/MikeMC777/cozy-cafe/internal/menu"
	"github.com/MikeMC777/cozy-cafe/internal/order"
	"github.com/MikeMC777/cozy-cafe/internal/service"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	store   *memstore.Store
	catalog *service.Catalog
	orders  *service.Orders
}

func setup(t *testing.T) fixture {
	t.Helper()
	st := memstore.New()
	return fixture{store: st, catalog: service.NewCatalog(st, quietLogger()), orders: service.NewOrders(st, quietLogger())}
}

func (f fixture) addItem(t *testing.T, name string, price int64, stock, maxStock int) *menu.Item {
	t.Helper()
	it, err := f.catalog.Create(context.Background(), menu.CreateRequest{
		Name: name, Category: "coffee", Price: decimal.NewFromInt(price), Stock: stock, MaxStock: &maxStock,
	})
	require.NoError(t, err)
	return it
}

func (f fixture) stock(t *testing.T, id string) int {
	t.Helper()
	it, err := f.catalog.Get(context.Background(), id)
	require.NoError(t, err)
	return it.Stock
}

func cart(lines ...order.CreateOrderItem) order.CreateOrderRequest {
	return order.CreateOrderRequest{Items: lines, CustomerName: "Jiyoon"}
}

func line(id string, qty int) order.CreateOrderItem {
	return order.CreateOrderItem{MenuItemID: id, Quantity: qty}
}

func TestCreateOrder_TotalsAndDecrement(t *testing.T) {
	f := setup(t)
	americano := f.addItem(t, "Americano (HOT)", 4500, 5, 20)

	o, err := f.orders.Create(context.Background(), cart(line(americano.ID, 2)))
	require.NoError(t, err)

	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(9000)), "total=%s", o.TotalAmount)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.DefaultOrderType, o.OrderType)
	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.NewFromInt(4500)))
	assert.True(t, o.Items[0].Subtotal.Equal(decimal.NewFromInt(9000)))
	assert.Equal(t, 3, f.stock(t, americano.ID))
}

func TestCreateOrder_RefetchIsIdentical(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (ICE)", 4500, 10, 20)
	b := f.addItem(t, "Cafe Latte", 5500, 10, 20)

	created, err := f.orders.Create(context.Background(), cart(line(a.ID, 1), line(b.ID, 3)))
	require.NoError(t, err)

	got, err := f.orders.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(created.TotalAmount))
	assert.Equal(t, created.Items, got.Items)
	assert.True(t, got.TotalAmount.Equal(order.Total(got.Items)))
}

func TestCreateOrder_UnitPriceIsSnapshot(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 10, 20)

	o, err := f.orders.Create(context.Background(), cart(line(a.ID, 1)))
	require.NoError(t, err)

	newPrice := decimal.NewFromInt(6000)
	_, err = f.catalog.Update(context.Background(), a.ID, menu.UpdateRequest{Price: &newPrice})
	require.NoError(t, err)

	got, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(4500)))
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(4500)))
}

func TestCreateOrder_ClientPriceIgnored(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 10, 20)
	cheap := decimal.NewFromInt(1)

	o, err := f.orders.Create(context.Background(), cart(order.CreateOrderItem{MenuItemID: a.ID, Quantity: 2, Price: &cheap}))
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(9000)))
}

func TestCreateOrder_InsufficientStockListsEveryShortfall(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 1, 20)
	b := f.addItem(t, "Cafe Latte", 5500, 10, 20)
	c := f.addItem(t, "Vanilla Latte", 6000, 0, 20)

	_, err := f.orders.Create(context.Background(), cart(line(a.ID, 2), line(b.ID, 1), line(c.ID, 1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	var ise *apperr.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, []apperr.Shortfall{
		{MenuItemID: a.ID, MenuName: "Americano (HOT)", RequestedQuantity: 2, CurrentStock: 1},
		{MenuItemID: c.ID, MenuName: "Vanilla Latte", RequestedQuantity: 1, CurrentStock: 0},
	}, ise.Shortfalls)

	assert.Equal(t, 1, f.stock(t, a.ID))
	assert.Equal(t, 10, f.stock(t, b.ID))
	assert.Equal(t, 0, f.stock(t, c.ID))

	list, err := f.orders.List(context.Background(), order.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateOrder_DuplicateLinesAreMerged(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 3, 20)

	_, err := f.orders.Create(context.Background(), cart(line(a.ID, 2), line(a.ID, 2)))
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	o, err := f.orders.Create(context.Background(), cart(line(a.ID, 1), line(a.ID, 2)))
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.Equal(t, 0, f.stock(t, a.ID))
}

func TestCreateOrder_InvalidCarts(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 3, 20)
	off := false
	hidden, err := f.catalog.Create(context.Background(), menu.CreateRequest{
		Name: "Seasonal", Category: "coffee", Price: decimal.NewFromInt(7000), Stock: 5, Available: &off,
	})
	require.NoError(t, err)

	cases := map[string]order.CreateOrderRequest{
		"empty":         cart(),
		"zero quantity": cart(line(a.ID, 0)),
		"missing id":    cart(line("", 1)),
		"unknown item":  cart(line("does-not-exist", 1)),
		"unavailable":   cart(line(hidden.ID, 1)),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.orders.Create(context.Background(), req)
			assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
		})
	}
	assert.Equal(t, 3, f.stock(t, a.ID))
}

func TestLifecycle_PendingPreparingCompleted(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 5, 20)
	o, err := f.orders.Create(context.Background(), cart(line(a.ID, 2)))
	require.NoError(t, err)

	o, err = f.orders.UpdateStatus(context.Background(), o.ID, "preparing")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, o.Status)
	assert.Equal(t, 3, f.stock(t, a.ID))

	o, err = f.orders.UpdateStatus(context.Background(), o.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, o.Status)
	assert.NotNil(t, o.CompletedAt)

	_, err = f.orders.UpdateStatus(context.Background(), o.ID, "preparing")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestLifecycle_SkippingStatesIsRejected(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 5, 20)
	o, err := f.orders.Create(context.Background(), cart(line(a.ID, 1)))
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(context.Background(), o.ID, "completed")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.orders.UpdateStatus(context.Background(), o.ID, "pending")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.orders.UpdateStatus(context.Background(), o.ID, "delivered")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = f.orders.UpdateStatus(context.Background(), "missing", "preparing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancel_PendingRestoresStock(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 5, 20)
	b := f.addItem(t, "Cafe Latte", 5500, 4, 20)
	o, err := f.orders.Create(context.Background(), cart(line(a.ID, 2), line(b.ID, 4)))
	require.NoError(t, err)
	assert.Equal(t, 3, f.stock(t, a.ID))
	assert.Equal(t, 0, f.stock(t, b.ID))

	o, err = f.orders.Cancel(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.NotNil(t, o.CancelledAt)
	assert.Equal(t, 5, f.stock(t, a.ID))
	assert.Equal(t, 4, f.stock(t, b.ID))

	_, err = f.orders.Cancel(context.Background(), o.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, 5, f.stock(t, a.ID))
}

func TestCancel_ViaStatusUpdate(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 5, 20)
	o, err := f.orders.Create(context.Background(), cart(line(a.ID, 5)))
	require.NoError(t, err)

	o, err = f.orders.UpdateStatus(context.Background(), o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.Equal(t, 5, f.stock(t, a.ID))
}

func TestCancel_PreparingOrCompletedRejected(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 10, 20)

	preparing, err := f.orders.Create(context.Background(), cart(line(a.ID, 2)))
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(context.Background(), preparing.ID, "preparing")
	require.NoError(t, err)

	completed, err := f.orders.Create(context.Background(), cart(line(a.ID, 3)))
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(context.Background(), completed.ID, "preparing")
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(context.Background(), completed.ID, "completed")
	require.NoError(t, err)

	for _, id := range []string{preparing.ID, completed.ID} {
		_, err := f.orders.Cancel(context.Background(), id)
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
		assert.Contains(t, err.Error(), "cannot be cancelled")
	}
	assert.Equal(t, 5, f.stock(t, a.ID))
}

func TestList_FilterAndOrder(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 10, 20)

	first, err := f.orders.Create(context.Background(), cart(line(a.ID, 1)))
	require.NoError(t, err)
	second, err := f.orders.Create(context.Background(), cart(line(a.ID, 1)))
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(context.Background(), first.ID, "preparing")
	require.NoError(t, err)

	all, err := f.orders.List(context.Background(), order.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	pending, err := f.orders.List(context.Background(), order.Filter{Status: order.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	limited, err := f.orders.List(context.Background(), order.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

// failingStore makes the order insert fail after the stock check succeeded.
type failingStore struct {
	*memstore.Store
}

type failingOrderRepo struct{ order.Repository }

func (failingOrderRepo) Create(context.Context, *order.Order) error {
	return apperr.Persistence(errors.New("disk full"), "insert order item")
}

func (s failingStore) Do(ctx context.Context, fn func(ctx context.Context, r service.Repos) error) error {
	return s.Store.Do(ctx, func(ctx context.Context, r service.Repos) error {
		r.Orders = failingOrderRepo{r.Orders}
		return fn(ctx, r)
	})
}

func TestCreateOrder_PersistenceFailureLeavesNoTrace(t *testing.T) {
	f := setup(t)
	a := f.addItem(t, "Americano (HOT)", 4500, 5, 20)
	orders := service.NewOrders(failingStore{f.store}, quietLogger())

	_, err := orders.Create(context.Background(), cart(line(a.ID, 2)))
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Equal(t, 5, f.stock(t, a.ID))

	list, err := f.orders.List(context.Background(), order.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCancel_LocksMenuRowsInIDOrder(t *testing.T) {
	f := setup(t)
	rec := &recordingStore{Store: f.store}
	orders := service.NewOrders(rec, quietLogger())

	a := f.addItem(t, "Americano (HOT)", 4500, 5, 20)
	b := f.addItem(t, "Cafe Latte", 5500, 5, 20)
	c := f.addItem(t, "Vanilla Latte", 6000, 5, 20)
	// cart order is the reverse of id order
	ids := []string{a.ID, b.ID, c.ID}
	sort.Strings(ids)
	o, err := orders.Create(context.Background(), cart(line(ids[2], 1), line(ids[1], 1), line(ids[0], 1)))
	require.NoError(t, err)
	assert.Equal(t, ids, rec.lockOrder(), "create locks rows in id order")

	rec.reset()
	_, err = orders.Cancel(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, ids, rec.lockOrder(), "cancel locks rows in id order")
	for _, id := range ids {
		assert.Equal(t, 5, f.stock(t, id))
	}
}
