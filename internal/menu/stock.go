package menu

import (
	"github.com/MikeMC777/cozy-cafe/internal/apperr"
)

type StockOp string

const (
	OpSet      StockOp = "set"
	OpAdd      StockOp = "add"
	OpSubtract StockOp = "subtract"
)

func ParseStockOp(s string) (StockOp, error) {
	switch op := StockOp(s); op {
	case OpSet, OpAdd, OpSubtract:
		return op, nil
	}
	return "", apperr.InvalidArgument("unknown stock operation %q (set, add, subtract)", s)
}

// ApplyStockOp computes the stock that results from op. The result always lies in
// [0, maxStock].
func ApplyStockOp(current, maxStock, amount int, op StockOp) (int, error) {
	if amount < 0 {
		return 0, apperr.InvalidArgument("stock amount must be non-negative, got %d", amount)
	}
	var next int
	switch op {
	case OpSet:
		next = amount
	case OpAdd:
		next = current + amount
	case OpSubtract:
		next = max(0, current-amount)
	default:
		return 0, apperr.InvalidArgument("unknown stock operation %q", op)
	}
	return max(0, min(next, maxStock)), nil
}

// StockChange is what a ledger operation reports back.
type StockChange struct {
	MenuItemID    string  `json:"menuItemId"`
	PreviousStock int     `json:"previousStock"`
	NewStock      int     `json:"newStock"`
	Operation     StockOp `json:"operation"`
}
