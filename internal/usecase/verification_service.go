package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
)

// VerificationService lets an operator confirm a payment outcome observed
// out of band (gateway back office, bank statement).
type VerificationService struct {
	reconciler *ReconciliationService
	logger     *zap.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(reconciler *ReconciliationService, logger *zap.Logger) *VerificationService {
	return &VerificationService{reconciler: reconciler, logger: logger}
}

// Verify applies the operator-reported status to reference.
func (s *VerificationService) Verify(ctx context.Context, reference, status, operator string) (*ApplyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domainErrors.NewValidationError("reference", "must not be empty")
	}
	signal := MapStatus(status)
	if signal == SignalNoOp || signal == SignalProcessing {
		return nil, domainErrors.NewValidationError("status", "must be a terminal gateway status such as accepted, declined or cancelled")
	}

	detail := "manual verification"
	if operator != "" {
		detail += " by " + operator
	}

	result, err := s.reconciler.Apply(ctx, reference, signal, SourceManual, detail)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Manual verification applied",
		zap.String("reference", reference),
		zap.String("operator", operator),
		zap.String("signal", string(signal)),
		zap.String("verdict", string(result.Verdict)))
	return result, nil
}
