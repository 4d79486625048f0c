package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

// CallbackMeta describes the HTTP delivery of a webhook
type CallbackMeta struct {
	SourceIP    string
	ContentType string
	UserAgent   string
	Signature   string
	// TruncatedAt is non-zero when the body was cut at that many bytes
	TruncatedAt int64
}

// IngestResult is the outcome of one webhook delivery
type IngestResult struct {
	RecordID  int64
	Reference string
	Outcome   model.CallbackOutcome
	Applied   bool
	Verdict   Verdict
}

// CallbackService records every webhook and feeds recognized ones to the
// reconciliation service.
type CallbackService struct {
	records    repository.CallbackRecordRepository
	sessions   repository.PaymentSessionRepository
	reconciler *ReconciliationService
	verifier   SignatureVerifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewCallbackService creates a new callback service. verifier may be nil to
// accept unsigned callbacks.
func NewCallbackService(
	records repository.CallbackRecordRepository,
	sessions repository.PaymentSessionRepository,
	reconciler *ReconciliationService,
	verifier SignatureVerifier,
	logger *zap.Logger,
) *CallbackService {
	return &CallbackService{
		records:    records,
		sessions:   sessions,
		reconciler: reconciler,
		verifier:   verifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Ingest stores the raw callback and then processes it. The only error it
// returns is a failure to store the record; everything after that is
// captured in the record's outcome. Once stored, the record is finalized
// even if the caller goes away.
func (s *CallbackService) Ingest(ctx context.Context, payload []byte, meta CallbackMeta) (*IngestResult, error) {
	record := &model.CallbackRecord{
		RawPayload:  string(payload),
		ContentType: meta.ContentType,
		SourceIP:    meta.SourceIP,
		UserAgent:   meta.UserAgent,
		Outcome:     model.CallbackOutcomeReceived,
		ReceivedAt:  s.now(),
	}
	if err := s.records.Create(ctx, record); err != nil {
		s.logger.Error("Failed to record callback",
			zap.String("source_ip", meta.SourceIP),
			zap.Error(err))
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	logger := s.logger.With(
		zap.Int64("callback_id", record.ID),
		zap.String("source_ip", meta.SourceIP),
	)

	fin := s.process(ctx, logger, payload, meta)
	fin.FinalizedAt = s.now()
	if err := s.records.Finalize(ctx, record.ID, fin); err != nil {
		logger.Error("Failed to finalize callback record", zap.Error(err))
	}

	result := &IngestResult{
		RecordID: record.ID,
		Outcome:  fin.Outcome,
		Applied:  fin.AppliedSuccessfully,
	}
	if fin.Reference != nil {
		result.Reference = *fin.Reference
	}
	if fin.Outcome != model.CallbackOutcomeSignatureInvalid {
		result.Verdict = verdictFor(fin.Outcome)
	}

	logger.Info("Callback processed",
		zap.String("reference", result.Reference),
		zap.String("outcome", string(fin.Outcome)),
		zap.Bool("applied", fin.AppliedSuccessfully),
		zap.Bool("needs_review", fin.NeedsReview))

	return result, nil
}

func (s *CallbackService) process(ctx context.Context, logger *zap.Logger, payload []byte, meta CallbackMeta) repository.CallbackFinalization {
	if meta.TruncatedAt > 0 {
		detail := fmt.Sprintf("body exceeds %d bytes", meta.TruncatedAt)
		logger.Warn("Oversized callback", zap.Int64("limit", meta.TruncatedAt))
		return finalization(model.CallbackOutcomeMalformed, detail)
	}
	if s.verifier != nil {
		if err := s.verifier.Verify(payload, meta.Signature); err != nil {
			logger.Warn("Callback signature rejected", zap.Error(err))
			return finalization(model.CallbackOutcomeSignatureInvalid, err.Error())
		}
	}

	parsed, err := ParseCallback(meta.ContentType, payload)
	if err != nil {
		logger.Warn("Malformed callback", zap.Error(err))
		fin := finalization(model.CallbackOutcomeMalformed, err.Error())
		if parsed != nil {
			fillExtracted(&fin, parsed)
		}
		return fin
	}

	fin := finalization(model.CallbackOutcomeReceived, "")
	fillExtracted(&fin, parsed)
	logger = logger.With(
		zap.String("reference", parsed.Reference),
		zap.String("signal", string(parsed.Signal)))

	if parsed.Signal == SignalNoOp {
		logger.Warn("Unrecognized callback status", zap.String("status", parsed.Status))
		fin.Outcome = model.CallbackOutcomeUnrecognized
		fin.NeedsReview = true
		fin.Detail = strPtr("unrecognized status " + parsed.Status)
		return fin
	}

	session, err := s.sessions.GetByReference(ctx, parsed.Reference)
	if errors.Is(err, domainErrors.ErrSessionNotFound) {
		logger.Warn("Callback for unknown reference")
		fin.Outcome = model.CallbackOutcomeUnmatched
		return fin
	}
	if err != nil {
		logger.Error("Failed to load session for callback", zap.Error(err))
		fin.Outcome = model.CallbackOutcomeError
		fin.Detail = strPtr(err.Error())
		return fin
	}

	if parsed.Signal == SignalAccepted && parsed.Amount.Valid && !parsed.Amount.Decimal.Equal(session.Amount) {
		detail := "callback amount " + parsed.Amount.Decimal.String() + " differs from session amount " + session.Amount.String()
		logger.Warn("Callback amount mismatch", zap.String("detail", detail))
		if err := s.sessions.FlagForReview(ctx, session.Reference, detail); err != nil {
			logger.Error("Failed to flag session for review", zap.Error(err))
		}
		fin.Outcome = model.CallbackOutcomeAmountMismatch
		fin.NeedsReview = true
		fin.Detail = &detail
		return fin
	}

	detail := "webhook"
	if parsed.TransactionID != "" {
		detail = "webhook transaction " + parsed.TransactionID
	}
	applied, err := s.reconciler.ApplyToSession(ctx, session, parsed.Signal, SourceWebhook, detail)
	if err != nil {
		fin.Outcome = model.CallbackOutcomeError
		fin.Detail = strPtr(err.Error())
		return fin
	}

	fin.AppliedSuccessfully = true
	fin.NeedsReview = applied.NeedsReview
	if applied.Reason != "" {
		fin.Detail = strPtr(applied.Reason)
	}
	switch applied.Verdict {
	case VerdictTransition:
		fin.Outcome = model.CallbackOutcomeApplied
	case VerdictDuplicate:
		fin.Outcome = model.CallbackOutcomeDuplicate
	case VerdictAnomaly:
		fin.Outcome = model.CallbackOutcomeAnomaly
	default:
		fin.Outcome = model.CallbackOutcomeIgnored
	}
	return fin
}

func finalization(outcome model.CallbackOutcome, detail string) repository.CallbackFinalization {
	fin := repository.CallbackFinalization{Outcome: outcome}
	if detail != "" {
		fin.Detail = &detail
	}
	return fin
}

func fillExtracted(fin *repository.CallbackFinalization, parsed *ParsedCallback) {
	fin.Reference = nonEmpty(parsed.Reference)
	fin.TransactionID = nonEmpty(parsed.TransactionID)
	fin.ExtractedStatus = nonEmpty(parsed.Status)
	if parsed.Signal != "" {
		fin.Signal = strPtr(string(parsed.Signal))
	}
	fin.Amount = parsed.Amount
}

func verdictFor(outcome model.CallbackOutcome) Verdict {
	switch outcome {
	case model.CallbackOutcomeApplied:
		return VerdictTransition
	case model.CallbackOutcomeDuplicate:
		return VerdictDuplicate
	case model.CallbackOutcomeAnomaly:
		return VerdictAnomaly
	default:
		return VerdictIgnored
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strPtr(s string) *string {
	return &s
}
