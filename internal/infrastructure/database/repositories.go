package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	adapterRepo "github.com/francisco-dev-ao/loja356-25-sub001/internal/adapter/repository"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Session     repository.PaymentSessionRepository
	Order       repository.OrderRepository
	Callback    repository.CallbackRecordRepository
	Transitions repository.TransitionStore
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Session:     adapterRepo.NewPaymentSessionRepository(db, logger),
		Order:       adapterRepo.NewOrderRepository(db),
		Callback:    adapterRepo.NewCallbackRecordRepository(db, logger),
		Transitions: adapterRepo.NewTransitionStore(db, logger),
	}
}
