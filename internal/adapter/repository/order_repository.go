package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a read-only view of storefront orders
func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}
