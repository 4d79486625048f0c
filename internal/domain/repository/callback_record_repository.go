package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
)

// CallbackRecordRepository stores the webhook audit trail
type CallbackRecordRepository interface {
	// Create inserts a record in the received state.
	Create(ctx context.Context, record *model.CallbackRecord) error
	// Finalize writes the extraction results once. A second call returns
	// ErrCallbackAlreadyFinalized.
	Finalize(ctx context.Context, id int64, f CallbackFinalization) error
	// ListByReference returns records newest first along with the total count.
	ListByReference(ctx context.Context, reference string, offset, limit int) ([]*model.CallbackRecord, int64, error)
}

// CallbackFinalization holds everything learned while processing a callback
type CallbackFinalization struct {
	Reference           *string
	TransactionID       *string
	ExtractedStatus     *string
	Signal              *string
	Amount              decimal.NullDecimal
	AppliedSuccessfully bool
	Outcome             model.CallbackOutcome
	NeedsReview         bool
	Detail              *string
	FinalizedAt         time.Time
}
