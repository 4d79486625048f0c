package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/entity"
	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/provider"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

const (
	maxOrderIDLength       = 64
	fallbackWarning        = "payment gateway unavailable; pay using the reference"
	gatewayDisabledWarning = "payment gateway disabled; pay using the reference"
)

// SessionConfig controls gateway retries and fallback
type SessionConfig struct {
	// GatewayActive false issues reference-only sessions without calling the gateway
	GatewayActive bool
	// MaxAttempts counts the first call plus retries
	MaxAttempts      int
	RetryBaseDelay   time.Duration
	ReferenceRetries int
	Settings         provider.Settings
}

// SessionService is the checkout entry point. It persists a pending session,
// asks the gateway for a token and falls back to a reference-only session
// when the gateway cannot be reached.
type SessionService struct {
	sessions   repository.PaymentSessionRepository
	orders     repository.OrderRepository
	gateway    provider.GatewayClient
	reconciler *ReconciliationService
	references *ReferenceGenerator
	config     SessionConfig
	logger     *zap.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewSessionService creates a new session service
func NewSessionService(
	sessions repository.PaymentSessionRepository,
	orders repository.OrderRepository,
	gateway provider.GatewayClient,
	reconciler *ReconciliationService,
	references *ReferenceGenerator,
	config SessionConfig,
	logger *zap.Logger,
) *SessionService {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.ReferenceRetries < 1 {
		config.ReferenceRetries = 1
	}
	return &SessionService{
		sessions:   sessions,
		orders:     orders,
		gateway:    gateway,
		reconciler: reconciler,
		references: references,
		config:     config,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// CreateSession opens a payment session for orderID. Amount is in kwanza.
func (s *SessionService) CreateSession(ctx context.Context, orderID string, amount decimal.Decimal) (*entity.CheckoutSession, error) {
	orderID = strings.TrimSpace(orderID)
	if err := validateCheckout(orderID, amount); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == model.OrderPaymentPaid {
		return nil, domainErrors.ErrOrderAlreadyPaid
	}

	session, err := s.persistPending(ctx, orderID, amount)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(
		zap.String("reference", session.Reference),
		zap.String("order_id", orderID),
		zap.String("amount", amount.String()),
	)

	if !s.config.GatewayActive || s.config.Settings.FrameToken == "" {
		return s.fallback(ctx, logger, session, 0, model.JSONB{"reason": "gateway_disabled"}, gatewayDisabledWarning)
	}

	req := &provider.SessionRequest{
		Reference: session.Reference,
		Amount:    amount,
		Settings:  s.config.Settings,
	}

	var (
		token    *provider.GatewayToken
		lastErr  *provider.GatewayError
		attempts int
	)
	for attempts = 1; attempts <= s.config.MaxAttempts; attempts++ {
		token, err = s.gateway.CreateSession(ctx, req)
		if err == nil {
			break
		}

		lastErr = asGatewayError(err)
		logger.Warn("Gateway session request failed",
			zap.Int("attempt", attempts),
			zap.String("kind", string(lastErr.Kind)),
			zap.Bool("retryable", lastErr.Retryable()),
			zap.Error(err))

		if !lastErr.Retryable() || attempts == s.config.MaxAttempts {
			break
		}

		delay := s.config.RetryBaseDelay * time.Duration(1<<(attempts-1))
		if err := s.sleep(ctx, delay); err != nil {
			// the caller went away; the pending session expires on its own
			return nil, fmt.Errorf("checkout cancelled while retrying gateway: %w", err)
		}
	}
	if token != nil {
		return s.succeed(ctx, logger, session, token, attempts)
	}

	if lastErr.Retryable() {
		raw := model.JSONB{
			"kind":   string(lastErr.Kind),
			"reason": lastErr.Reason,
			"status": lastErr.StatusCode,
		}
		return s.fallback(ctx, logger, session, attempts, raw, fallbackWarning)
	}

	return nil, s.reject(ctx, logger, session, lastErr, attempts)
}

func validateCheckout(orderID string, amount decimal.Decimal) error {
	switch {
	case orderID == "":
		return domainErrors.NewValidationError("orderId", "must not be empty")
	case len(orderID) > maxOrderIDLength:
		return domainErrors.NewValidationError("orderId", fmt.Sprintf("must be at most %d characters", maxOrderIDLength))
	case !amount.IsPositive():
		return domainErrors.NewValidationError("amount", "must be positive")
	case !amount.Equal(amount.Round(2)):
		return domainErrors.NewValidationError("amount", "must have at most 2 decimal places (kwanza)")
	}
	return nil
}

// persistPending stores the session before the gateway is contacted,
// regenerating the reference on collision
func (s *SessionService) persistPending(ctx context.Context, orderID string, amount decimal.Decimal) (*model.PaymentSession, error) {
	for i := 0; i < s.config.ReferenceRetries; i++ {
		now := s.now()
		session := &model.PaymentSession{
			Reference: s.references.Generate(orderID),
			OrderID:   orderID,
			Amount:    amount,
			Status:    model.SessionStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := s.sessions.Create(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domainErrors.ErrDuplicateReference) {
			return nil, err
		}
		s.logger.Warn("Reference collision, regenerating",
			zap.String("reference", session.Reference),
			zap.String("order_id", orderID))
	}
	return nil, fmt.Errorf("could not allocate a unique reference for order %s: %w", orderID, domainErrors.ErrDuplicateReference)
}

func (s *SessionService) succeed(ctx context.Context, logger *zap.Logger, session *model.PaymentSession, token *provider.GatewayToken, attempts int) (*entity.CheckoutSession, error) {
	id := token.ID
	raw := model.JSONB(token.Raw)
	if err := s.sessions.RecordGatewayResult(ctx, session.Reference, repository.GatewayResult{
		Token:    &id,
		Raw:      raw,
		Attempts: attempts,
	}); err != nil {
		return nil, err
	}
	session.GatewayToken = &id
	session.Attempts = attempts

	logger.Info("Payment session created",
		zap.Int("attempt", attempts),
		zap.Bool("fallback_used", false))

	return &entity.CheckoutSession{
		Reference: session.Reference,
		OrderID:   session.OrderID,
		Amount:    session.Amount,
		Status:    session.Status,
		FrameURL:  token.FrameURL,
		Attempts:  attempts,
	}, nil
}

func (s *SessionService) fallback(ctx context.Context, logger *zap.Logger, session *model.PaymentSession, attempts int, raw model.JSONB, warning string) (*entity.CheckoutSession, error) {
	if err := s.sessions.RecordGatewayResult(ctx, session.Reference, repository.GatewayResult{
		Raw:          raw,
		Attempts:     attempts,
		FallbackUsed: true,
	}); err != nil {
		return nil, err
	}
	session.FallbackUsed = true
	session.Attempts = attempts

	logger.Warn("Payment session created without gateway token",
		zap.Int("attempt", attempts),
		zap.Bool("fallback_used", true),
		zap.String("warning", warning))

	return &entity.CheckoutSession{
		Reference:    session.Reference,
		OrderID:      session.OrderID,
		Amount:       session.Amount,
		Status:       session.Status,
		FallbackUsed: true,
		Warning:      warning,
		Attempts:     attempts,
	}, nil
}

// reject drives the session to failed and surfaces the gateway decision
func (s *SessionService) reject(ctx context.Context, logger *zap.Logger, session *model.PaymentSession, gwErr *provider.GatewayError, attempts int) error {
	raw := model.JSONB{
		"kind":   string(gwErr.Kind),
		"reason": gwErr.Reason,
		"status": gwErr.StatusCode,
	}
	if err := s.sessions.RecordGatewayResult(ctx, session.Reference, repository.GatewayResult{
		Raw:      raw,
		Attempts: attempts,
	}); err != nil {
		logger.Error("Failed to record gateway rejection", zap.Error(err))
	}

	if _, err := s.reconciler.ApplyToSession(ctx, session, SignalDeclined, SourceSessionCreate, gwErr.Reason); err != nil {
		logger.Error("Failed to mark rejected session as failed", zap.Error(err))
	}

	if gwErr.Kind == provider.KindInvalidRequest {
		return domainErrors.NewValidationError("amount", gwErr.Reason)
	}
	return &domainErrors.GatewayRejectionError{
		Reference: session.Reference,
		Reason:    gwErr.Reason,
		Cause:     gwErr,
	}
}

func asGatewayError(err error) *provider.GatewayError {
	var gwErr *provider.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return &provider.GatewayError{Kind: provider.KindNetwork, Reason: "unclassified gateway failure", Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
