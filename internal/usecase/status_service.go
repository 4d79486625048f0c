package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/entity"
	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

// StatusService answers the storefront's status polls. A pending session
// past its window is expired on read.
type StatusService struct {
	orders     repository.OrderRepository
	sessions   repository.PaymentSessionRepository
	reconciler *ReconciliationService
	logger     *zap.Logger
}

// NewStatusService creates a new status service
func NewStatusService(
	orders repository.OrderRepository,
	sessions repository.PaymentSessionRepository,
	reconciler *ReconciliationService,
	logger *zap.Logger,
) *StatusService {
	return &StatusService{
		orders:     orders,
		sessions:   sessions,
		reconciler: reconciler,
		logger:     logger,
	}
}

// GetPaymentStatus returns the payment view of an order
func (s *StatusService) GetPaymentStatus(ctx context.Context, orderID string) (*entity.PaymentStatusView, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domainErrors.NewValidationError("orderId", "must not be empty")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetLatestByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, domainErrors.ErrSessionNotFound) {
		return nil, err
	}

	if session != nil && !session.Status.IsTerminal() {
		result, err := s.reconciler.ApplyToSession(ctx, session, SignalExpiry, SourcePoll, "expired on status read")
		if err != nil {
			// a failed lazy expiry must not break polling
			s.logger.Warn("Lazy expiry failed",
				zap.String("reference", session.Reference),
				zap.Error(err))
		} else if result.Verdict == VerdictTransition {
			session = result.Session
			if order, err = s.orders.GetByID(ctx, orderID); err != nil {
				return nil, err
			}
		}
	}

	return buildStatusView(order, session), nil
}

func buildStatusView(order *model.Order, session *model.PaymentSession) *entity.PaymentStatusView {
	view := &entity.PaymentStatusView{
		OrderID:       order.ID,
		PaymentStatus: model.OrderPaymentPending,
		PaidAt:        order.PaidAt,
	}
	if session != nil {
		view.Reference = session.Reference
		view.SessionStatus = session.Status
	}

	switch {
	case order.PaymentStatus == model.OrderPaymentPaid:
		view.PaymentStatus = model.OrderPaymentPaid
	case session != nil && session.Status == model.SessionStatusCompleted:
		view.PaymentStatus = model.OrderPaymentPaid
	case session != nil && (session.Status == model.SessionStatusFailed || session.Status == model.SessionStatusExpired):
		view.PaymentStatus = model.OrderPaymentFailed
	case session == nil && order.PaymentStatus == model.OrderPaymentFailed:
		view.PaymentStatus = model.OrderPaymentFailed
	}
	return view
}
