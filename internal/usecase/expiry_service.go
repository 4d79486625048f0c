package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

const defaultSweepBatch = 100

// SweepSummary counts what a sweep did
type SweepSummary struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ExpiryService expires open sessions that outlived their window
type ExpiryService struct {
	sessions   repository.PaymentSessionRepository
	reconciler *ReconciliationService
	batchSize  int
	logger     *zap.Logger
	now        func() time.Time
}

// NewExpiryService creates a new expiry service
func NewExpiryService(sessions repository.PaymentSessionRepository, reconciler *ReconciliationService, batchSize int, logger *zap.Logger) *ExpiryService {
	if batchSize <= 0 {
		batchSize = defaultSweepBatch
	}
	return &ExpiryService{
		sessions:   sessions,
		reconciler: reconciler,
		batchSize:  batchSize,
		logger:     logger,
		now:        time.Now,
	}
}

// Sweep expires every open session older than its window. Pending and
// processing are swept separately because their windows differ.
func (s *ExpiryService) Sweep(ctx context.Context) (SweepSummary, error) {
	var summary SweepSummary
	now := s.now()
	policy := s.reconciler.ExpiryPolicy()

	for _, status := range []model.SessionStatus{model.SessionStatusPending, model.SessionStatusProcessing} {
		cutoff, ok := policy.Cutoff(status, now)
		if !ok {
			continue
		}
		if err := s.sweepStatus(ctx, status, cutoff, &summary); err != nil {
			return summary, err
		}
	}

	s.logger.Info("Expiry sweep finished",
		zap.Int("scanned", summary.Scanned),
		zap.Int("expired", summary.Expired),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// sweepStatus stops when a batch makes no progress so failing rows are not
// retried forever.
func (s *ExpiryService) sweepStatus(ctx context.Context, status model.SessionStatus, cutoff time.Time, summary *SweepSummary) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := s.sessions.ListExpirable(ctx, status, cutoff, s.batchSize)
		if err != nil {
			return err
		}

		progress := 0
		for _, session := range batch {
			summary.Scanned++
			result, err := s.reconciler.ApplyToSession(ctx, session, SignalExpiry, SourceSweep, "expired by sweep")
			if err != nil {
				summary.Failed++
				s.logger.Error("Failed to expire session",
					zap.String("reference", session.Reference),
					zap.String("status", string(status)),
					zap.Error(err))
				continue
			}
			if result.Verdict == VerdictTransition {
				summary.Expired++
				progress++
			} else {
				summary.Skipped++
			}
		}

		if len(batch) < s.batchSize || progress == 0 {
			return nil
		}
	}
}
