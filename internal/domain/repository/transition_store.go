package repository

import (
	"context"
	"time"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
)

// SessionTransition is one state change of a session plus the order
// update that must commit with it.
type SessionTransition struct {
	Reference     string
	From          model.SessionStatus
	To            model.SessionStatus
	Signal        string
	Source        string
	At            time.Time
	FailureReason *string
	NeedsReview   bool
	Order         *OrderUpdate
}

// OrderUpdate changes the order owning the session
type OrderUpdate struct {
	OrderID       string
	Status        model.OrderStatus
	PaymentStatus model.OrderPaymentStatus
	PaidAt        *time.Time
	// UnlessPaid skips the update when the order is already paid
	UnlessPaid bool
}

// OrderOutcome reports what happened to the order inside a transition
type OrderOutcome string

const (
	OrderUntouched   OrderOutcome = "untouched"
	OrderUpdated     OrderOutcome = "updated"
	OrderAlreadyPaid OrderOutcome = "already_paid"
	OrderMissing     OrderOutcome = "missing"
)

// TransitionResult is returned by a committed transition
type TransitionResult struct {
	Order OrderOutcome
}

// TransitionStore applies a transition atomically. When the session is no
// longer in From it returns ErrConcurrentTransition and writes nothing.
type TransitionStore interface {
	ApplyTransition(ctx context.Context, t SessionTransition) (TransitionResult, error)
}
