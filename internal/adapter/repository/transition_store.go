package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

type transitionStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransitionStore creates the store that commits session transitions
// together with their order updates.
func NewTransitionStore(db *gorm.DB, logger *zap.Logger) repository.TransitionStore {
	return &transitionStore{
		db:     db,
		logger: logger,
	}
}

// ApplyTransition moves a session from t.From to t.To with a conditional
// update. Zero affected rows means another writer got there first and the
// whole transaction is rolled back.
func (s *transitionStore) ApplyTransition(ctx context.Context, t repository.SessionTransition) (repository.TransitionResult, error) {
	result := repository.TransitionResult{Order: repository.OrderUntouched}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":             t.To,
			"updated_at":         t.At,
			"last_signal":        t.Signal,
			"last_signal_source": t.Source,
		}
		if t.To.IsTerminal() {
			updates["completed_at"] = t.At
		}
		if t.FailureReason != nil {
			updates["failure_reason"] = *t.FailureReason
		}
		if t.NeedsReview {
			updates["needs_review"] = true
		}

		res := tx.Model(&model.PaymentSession{}).
			Where("reference = ? AND status = ?", t.Reference, t.From).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update payment session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domainErrors.ErrConcurrentTransition
		}

		if t.Order == nil {
			return nil
		}
		outcome, err := applyOrderUpdate(tx, t)
		if err != nil {
			return err
		}
		result.Order = outcome
		return nil
	})
	if err != nil {
		if !errors.Is(err, domainErrors.ErrConcurrentTransition) {
			s.logger.Error("Failed to apply session transition",
				zap.String("reference", t.Reference),
				zap.String("from", string(t.From)),
				zap.String("to", string(t.To)),
				zap.Error(err))
		}
		return repository.TransitionResult{}, err
	}

	return result, nil
}

func applyOrderUpdate(tx *gorm.DB, t repository.SessionTransition) (repository.OrderOutcome, error) {
	u := t.Order
	updates := map[string]interface{}{
		"status":         u.Status,
		"payment_status": u.PaymentStatus,
		"updated_at":     t.At,
	}
	if u.PaidAt != nil {
		updates["paid_at"] = *u.PaidAt
	}

	query := tx.Model(&model.Order{}).Where("id = ?", u.OrderID)
	if u.UnlessPaid {
		query = query.Where("payment_status <> ?", model.OrderPaymentPaid)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return "", fmt.Errorf("failed to update order: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return repository.OrderUpdated, nil
	}

	var order model.Order
	err := tx.Select("id", "payment_status").Where("id = ?", u.OrderID).Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.OrderMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check order: %w", err)
	}
	return repository.OrderAlreadyPaid, nil
}
