package repository

import (
	"context"
	"time"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
)

// PaymentSessionRepository persists payment sessions. Status is only ever
// changed through TransitionStore.
type PaymentSessionRepository interface {
	// Create inserts a pending session. Returns ErrDuplicateReference when the
	// reference is already taken.
	Create(ctx context.Context, session *model.PaymentSession) error
	// GetByReference returns ErrSessionNotFound when nothing matches.
	GetByReference(ctx context.Context, reference string) (*model.PaymentSession, error)
	// GetLatestByOrderID returns the most recently created session of an order.
	GetLatestByOrderID(ctx context.Context, orderID string) (*model.PaymentSession, error)
	ListByOrderID(ctx context.Context, orderID string) ([]*model.PaymentSession, error)
	// RecordGatewayResult stores the outcome of the gateway call on a session
	// that is still pending.
	RecordGatewayResult(ctx context.Context, reference string, result GatewayResult) error
	// FlagForReview marks a session for operator attention without touching status.
	FlagForReview(ctx context.Context, reference, reason string) error
	// ListExpirable returns sessions in status created at or before cutoff, oldest first.
	ListExpirable(ctx context.Context, status model.SessionStatus, cutoff time.Time, limit int) ([]*model.PaymentSession, error)
}

// GatewayResult is what the session manager learned from the gateway
type GatewayResult struct {
	Token        *string
	Raw          model.JSONB
	Attempts     int
	FallbackUsed bool
}
