// Package service implements the catalog operations and the order lifecycle on top of
// the menu and order repositories. Every write runs inside a UnitOfWork so the order
// ledger and the stock ledger never diverge.
package service

import (
	"context"

	"github.com/MikeMC777/cozy-cafe/internal/menu"
	"github.com/MikeMC777/cozy-cafe/internal/order"
)

// Repos are repositories bound to one transaction.
type Repos struct {
	Menu   menu.Repository
	Orders order.Repository
}

// UnitOfWork runs fn in a transaction that commits only if fn returns nil.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// Store is what the services need from a storage driver: transactional scopes plus
// repositories for plain reads.
type Store interface {
	UnitOfWork
	Menu() menu.Repository
	Orders() order.Repository
	Ping(ctx context.Context) error
}
