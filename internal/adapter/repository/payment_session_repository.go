package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

type paymentSessionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentSessionRepository creates a new payment session repository
func NewPaymentSessionRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentSessionRepository {
	return &paymentSessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new pending session
func (r *paymentSessionRepository) Create(ctx context.Context, session *model.PaymentSession) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		if isDuplicateKey(err) {
			return domainErrors.ErrDuplicateReference
		}
		r.logger.Error("Failed to create payment session",
			zap.String("reference", session.Reference),
			zap.String("order_id", session.OrderID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment session: %w", err)
	}
	return nil
}

// GetByReference retrieves a session by its gateway reference
func (r *paymentSessionRepository) GetByReference(ctx context.Context, reference string) (*model.PaymentSession, error) {
	var session model.PaymentSession
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get payment session: %w", err)
	}
	return &session, nil
}

// GetLatestByOrderID retrieves the newest session of an order
func (r *paymentSessionRepository) GetLatestByOrderID(ctx context.Context, orderID string) (*model.PaymentSession, error) {
	var session model.PaymentSession
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Order("id DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get latest payment session: %w", err)
	}
	return &session, nil
}

// ListByOrderID retrieves every session of an order, newest first
func (r *paymentSessionRepository) ListByOrderID(ctx context.Context, orderID string) ([]*model.PaymentSession, error) {
	var sessions []*model.PaymentSession
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payment sessions: %w", err)
	}
	return sessions, nil
}

// RecordGatewayResult stores the gateway outcome while the session is still pending
func (r *paymentSessionRepository) RecordGatewayResult(ctx context.Context, reference string, result repository.GatewayResult) error {
	updates := map[string]interface{}{
		"gateway_token":        result.Token,
		"raw_gateway_response": result.Raw,
		"attempts":             result.Attempts,
		"fallback_used":        result.FallbackUsed,
		"updated_at":           time.Now(),
	}

	res := r.db.WithContext(ctx).
		Model(&model.PaymentSession{}).
		Where("reference = ? AND status = ?", reference, model.SessionStatusPending).
		Updates(updates)
	if res.Error != nil {
		r.logger.Error("Failed to record gateway result",
			zap.String("reference", reference),
			zap.Error(res.Error))
		return fmt.Errorf("failed to record gateway result: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, reference)
	}
	return nil
}

// FlagForReview marks a session for operator attention. The reason is
// appended to any earlier failure reason.
func (r *paymentSessionRepository) FlagForReview(ctx context.Context, reference, reason string) error {
	session, err := r.GetByReference(ctx, reference)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"needs_review": true,
		"updated_at":   time.Now(),
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		if session.FailureReason != nil && *session.FailureReason != "" && *session.FailureReason != reason {
			reason = *session.FailureReason + "; " + reason
		}
		updates["failure_reason"] = reason
	}

	err = r.db.WithContext(ctx).
		Model(&model.PaymentSession{}).
		Where("reference = ?", reference).
		Updates(updates).Error
	if err != nil {
		r.logger.Error("Failed to flag payment session",
			zap.String("reference", reference),
			zap.Error(err))
		return fmt.Errorf("failed to flag payment session: %w", err)
	}

	r.logger.Warn("Payment session flagged for review",
		zap.String("reference", reference),
		zap.String("reason", reason))
	return nil
}

// ListExpirable retrieves sessions in status created at or before cutoff, oldest first
func (r *paymentSessionRepository) ListExpirable(ctx context.Context, status model.SessionStatus, cutoff time.Time, limit int) ([]*model.PaymentSession, error) {
	var sessions []*model.PaymentSession

	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at <= ?", status, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list expirable sessions: %w", err)
	}
	return sessions, nil
}

func (r *paymentSessionRepository) missOrConflict(ctx context.Context, reference string) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PaymentSession{}).
		Where("reference = ?", reference).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check payment session: %w", err)
	}
	if count == 0 {
		return domainErrors.ErrSessionNotFound
	}
	return domainErrors.ErrConcurrentTransition
}
