package menu

import (
	"context"
)

// Ledger is the only writer of the stock column. Build it on a repository bound to a
// transaction when the change must commit together with other writes.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger { return &Ledger{repo: repo} }

func (l *Ledger) Apply(ctx context.Context, id string, amount int, op StockOp) (*StockChange, error) {
	if _, err := ParseStockOp(string(op)); err != nil {
		return nil, err
	}
	it, err := l.repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := ApplyStockOp(it.Stock, it.MaxStock, amount, op)
	if err != nil {
		return nil, err
	}
	if err := l.repo.SetStock(ctx, id, next); err != nil {
		return nil, err
	}
	return &StockChange{MenuItemID: id, PreviousStock: it.Stock, NewStock: next, Operation: op}, nil
}

// Restock fills a single item up to its max_stock.
func (l *Ledger) Restock(ctx context.Context, id string) (*StockChange, error) {
	it, err := l.repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.Apply(ctx, id, it.MaxStock, OpSet)
}

func (l *Ledger) RestockAll(ctx context.Context) (int64, error) {
	return l.repo.RestockAll(ctx)
}
