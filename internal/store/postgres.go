// Package store binds the Postgres repositories to a connection pool and implements
// service.Store with pgx transactions.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/cozy-cafe/internal/menu"
	"github.com/MikeMC777/cozy-cafe/internal/order"
	"github.com/MikeMC777/cozy-cafe/internal/pgdb"
	"github.com/MikeMC777/cozy-cafe/internal/service"
)

type Postgres struct{ pool *pgxpool.Pool }

func NewPostgres(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

func (p *Postgres) Menu() menu.Repository    { return menu.NewPGRepo(p.pool) }
func (p *Postgres) Orders() order.Repository { return order.NewPGRepo(p.pool) }

func (p *Postgres) Do(ctx context.Context, fn func(ctx context.Context, r service.Repos) error) error {
	return pgdb.InTx(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(ctx, service.Repos{Menu: menu.NewPGRepo(tx), Orders: order.NewPGRepo(tx)})
	})
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pgdb.QueryTimeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() { p.pool.Close() }
