package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

const (
	maxTransitionAttempts = 3
	notifyTimeout         = 5 * time.Second
)

// OrderPaidEvent is handed to the notification dispatcher once per paid order
type OrderPaidEvent struct {
	OrderID   string          `json:"orderId"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Source    string          `json:"source"`
	PaidAt    time.Time       `json:"paidAt"`
}

// OrderPaidNotifier triggers the confirmation email for a paid order
type OrderPaidNotifier interface {
	NotifyOrderPaid(ctx context.Context, event OrderPaidEvent) error
}

// ApplyResult describes what a signal did to a session
type ApplyResult struct {
	Reference     string
	Signal        Signal
	Source        Source
	Verdict       Verdict
	From          model.SessionStatus
	To            model.SessionStatus
	NeedsReview   bool
	DoublePayment bool
	Reason        string
	Session       *model.PaymentSession
}

// ReconciliationService is the only writer of session status. Webhooks,
// polls, sweeps and manual verification all go through Apply.
type ReconciliationService struct {
	sessions     repository.PaymentSessionRepository
	store        repository.TransitionStore
	notifier     OrderPaidNotifier
	expiry       model.ExpiryPolicy
	logger       *zap.Logger
	now          func() time.Time
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	sessions repository.PaymentSessionRepository,
	store repository.TransitionStore,
	notifier OrderPaidNotifier,
	expiry model.ExpiryPolicy,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		sessions:     sessions,
		store:        store,
		notifier:     notifier,
		expiry:       expiry,
		logger:       logger,
		now:          time.Now,
	}
}

// ExpiryPolicy returns how long open sessions stay payable
func (s *ReconciliationService) ExpiryPolicy() model.ExpiryPolicy {
	return s.expiry
}

// Apply loads the session for reference and applies signal to it.
func (s *ReconciliationService) Apply(ctx context.Context, reference string, signal Signal, source Source, detail string) (*ApplyResult, error) {
	session, err := s.sessions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.ApplyToSession(ctx, session, signal, source, detail)
}

// ApplyToSession applies signal to an already loaded session. A lost race
// reloads the session and decides again.
func (s *ReconciliationService) ApplyToSession(ctx context.Context, session *model.PaymentSession, signal Signal, source Source, detail string) (*ApplyResult, error) {
	logger := s.logger.With(
		zap.String("reference", session.Reference),
		zap.String("order_id", session.OrderID),
		zap.String("signal", string(signal)),
		zap.String("source", string(source)),
	)

	for attempt := 1; ; attempt++ {
		now := s.now()
		decision := Decide(session, signal, now, s.expiry)
		result := &ApplyResult{
			Reference:   session.Reference,
			Signal:      signal,
			Source:      source,
			Verdict:     decision.Verdict,
			From:        decision.From,
			To:          decision.To,
			NeedsReview: decision.NeedsReview,
			Reason:      decision.Reason,
			Session:     session,
		}

		if decision.Verdict != VerdictTransition {
			s.handleNonTransition(ctx, logger, session, decision, detail)
			return result, nil
		}

		transition := buildTransition(session, decision, signal, source, now, detail)
		outcome, err := s.store.ApplyTransition(ctx, transition)
		if errors.Is(err, domainErrors.ErrConcurrentTransition) {
			logger.Info("Lost transition race, re-evaluating",
				zap.String("from_status", string(decision.From)),
				zap.Int("attempt", attempt))
			if attempt >= maxTransitionAttempts {
				result.Verdict = VerdictIgnored
				result.To = result.From
				result.Reason = "session kept changing concurrently"
				return result, nil
			}
			session, err = s.sessions.GetByReference(ctx, session.Reference)
			if err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			logger.Error("Failed to apply transition",
				zap.String("from_status", string(decision.From)),
				zap.String("to_status", string(decision.To)),
				zap.Error(err))
			return nil, err
		}

		applyToLoaded(session, transition)
		result.Session = session

		logger.Info("Payment session transitioned",
			zap.String("from_status", string(decision.From)),
			zap.String("to_status", string(decision.To)),
			zap.String("order_outcome", string(outcome.Order)))

		if decision.To == model.SessionStatusCompleted {
			s.afterCompletion(ctx, logger, session, source, outcome, result)
		}
		return result, nil
	}
}

func (s *ReconciliationService) handleNonTransition(ctx context.Context, logger *zap.Logger, session *model.PaymentSession, decision Decision, detail string) {
	fields := []zap.Field{
		zap.String("status", string(session.Status)),
		zap.String("verdict", string(decision.Verdict)),
		zap.String("reason", decision.Reason),
	}

	switch decision.Verdict {
	case VerdictAnomaly:
		logger.Warn("Anomalous payment signal", fields...)
		reason := decision.Reason
		if detail != "" {
			reason += ": " + detail
		}
		if err := s.sessions.FlagForReview(ctx, session.Reference, reason); err != nil {
			logger.Error("Failed to flag session for review", zap.Error(err))
		} else {
			session.NeedsReview = true
		}
	case VerdictDuplicate:
		logger.Info("Duplicate payment signal", fields...)
	default:
		logger.Debug("Payment signal ignored", fields...)
	}
}

// afterCompletion notifies once per paid order and flags a second completed
// session of the same order.
func (s *ReconciliationService) afterCompletion(ctx context.Context, logger *zap.Logger, session *model.PaymentSession, source Source, outcome repository.TransitionResult, result *ApplyResult) {
	switch outcome.Order {
	case repository.OrderAlreadyPaid:
		result.DoublePayment = true
		result.NeedsReview = true
		logger.Warn("Order was already paid by another session")
		if err := s.sessions.FlagForReview(ctx, session.Reference, "double payment for order "+session.OrderID); err != nil {
			logger.Error("Failed to flag session for review", zap.Error(err))
		} else {
			session.NeedsReview = true
		}
		return
	case repository.OrderMissing:
		result.NeedsReview = true
		logger.Error("Completed session belongs to an unknown order")
		return
	}

	if s.notifier == nil {
		return
	}

	// the transition is committed; notification failures must not undo it
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	paidAt := s.now()
	if session.CompletedAt != nil {
		paidAt = *session.CompletedAt
	}
	event := OrderPaidEvent{
		OrderID:   session.OrderID,
		Reference: session.Reference,
		Amount:    session.Amount,
		Source:    string(source),
		PaidAt:    paidAt,
	}
	if err := s.notifier.NotifyOrderPaid(notifyCtx, event); err != nil {
		logger.Error("Failed to dispatch order paid notification", zap.Error(err))
	}
}

func buildTransition(session *model.PaymentSession, d Decision, signal Signal, source Source, now time.Time, detail string) repository.SessionTransition {
	t := repository.SessionTransition{
		Reference:   session.Reference,
		From:        d.From,
		To:          d.To,
		Signal:      string(signal),
		Source:      string(source),
		At:          now,
		NeedsReview: d.NeedsReview,
	}

	switch {
	case d.MarkOrderPaid:
		paidAt := now
		t.Order = &repository.OrderUpdate{
			OrderID:       session.OrderID,
			Status:        model.OrderStatusConfirmed,
			PaymentStatus: model.OrderPaymentPaid,
			PaidAt:        &paidAt,
			UnlessPaid:    true,
		}
	case d.MarkOrderFailed:
		reason := string(signal)
		if detail != "" {
			reason = detail
		}
		t.FailureReason = &reason
		t.Order = &repository.OrderUpdate{
			OrderID:       session.OrderID,
			Status:        model.OrderStatusPaymentFailed,
			PaymentStatus: model.OrderPaymentFailed,
			UnlessPaid:    true,
		}
	}
	return t
}

// applyToLoaded mirrors a committed transition onto the in-memory session
func applyToLoaded(session *model.PaymentSession, t repository.SessionTransition) {
	session.Status = t.To
	session.UpdatedAt = t.At
	signal, source := t.Signal, t.Source
	session.LastSignal = &signal
	session.LastSignalSource = &source
	if t.To.IsTerminal() {
		at := t.At
		session.CompletedAt = &at
	}
	if t.FailureReason != nil {
		session.FailureReason = t.FailureReason
	}
	if t.NeedsReview {
		session.NeedsReview = true
	}
}
