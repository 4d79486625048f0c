package repository

import (
	"context"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
)

// OrderRepository reads storefront orders. Writes go through TransitionStore.
type OrderRepository interface {
	// GetByID returns ErrOrderNotFound when the order does not exist.
	GetByID(ctx context.Context, orderID string) (*model.Order, error)
}
