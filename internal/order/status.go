package order

import (
	"github.com/MikeMC777/cozy-cafe/internal/apperr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusPreparing, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", apperr.InvalidArgument("invalid status %q (pending, preparing, completed, cancelled)", s)
}

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusCompleted},
}

// CheckTransition returns an ErrInvalidTransition error unless from -> to is allowed.
func CheckTransition(from, to Status) error {
	if to == StatusCancelled {
		switch from {
		case StatusPreparing, StatusCompleted:
			return apperr.InvalidTransition("orders in preparing or completed state cannot be cancelled")
		case StatusCancelled:
			return apperr.InvalidTransition("order is already cancelled")
		}
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return apperr.InvalidTransition("cannot move order from %s to %s", from, to)
}
