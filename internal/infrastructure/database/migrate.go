package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
)

// Migrate creates the tables owned by the payment engine. The orders table
// belongs to the storefront and is only created when withOrders is set,
// which is the case for local sqlite databases and tests.
func Migrate(db *gorm.DB, withOrders bool) error {
	models := []interface{}{
		&model.PaymentSession{},
		&model.CallbackRecord{},
	}
	if withOrders {
		models = append(models, &model.Order{})
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
