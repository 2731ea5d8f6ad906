// Package apperr holds the error taxonomy shared by the catalog, the ledgers and the
// HTTP layer. Callers wrap the sentinels with github.com/pkg/errors and match them with
// errors.Is.
package apperr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPersistence       = errors.New("persistence failure")
)

// NotFound wraps ErrNotFound with the name of what was looked up.
func NotFound(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

func InvalidArgument(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func InvalidTransition(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidTransition, format, args...)
}

type persistenceError struct {
	op  string
	err error
}

func (e *persistenceError) Error() string        { return e.op + ": " + e.err.Error() }
func (e *persistenceError) Unwrap() error        { return e.err }
func (e *persistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence marks a storage failure. Errors that already belong to the taxonomy
// are returned untouched so a NotFound raised inside a transaction stays a NotFound.
func Persistence(err error, op string) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return errors.WithStack(&persistenceError{op: op, err: err})
}

// Classified reports whether err already carries one of the taxonomy sentinels.
func Classified(err error) bool {
	for _, s := range []error{ErrNotFound, ErrInvalidArgument, ErrInvalidTransition, ErrInsufficientStock, ErrPersistence} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// Shortfall describes a cart line whose quantity exceeds the stock on hand.
type Shortfall struct {
	MenuItemID        string `json:"menuItemId"`
	MenuName          string `json:"menuName"`
	RequestedQuantity int    `json:"requestedQuantity"`
	CurrentStock      int    `json:"currentStock"`
}

// InsufficientStockError carries every shortfall of a rejected order, not just the first.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s: requested %d, in stock %d", s.MenuName, s.RequestedQuantity, s.CurrentStock))
	}
	return "insufficient stock (" + strings.Join(parts, "; ") + ")"
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }
