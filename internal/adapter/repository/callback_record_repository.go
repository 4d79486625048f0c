package repository

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

// column widths of callback_records
const (
	contentTypeWidth = 128
	sourceIPWidth    = 64
	userAgentWidth   = 255
	referenceWidth   = 64
	transactionWidth = 128
	statusWidth      = 64
	signalWidth      = 32
)

// decimal(18,2) holds up to 16 integer digits
var amountLimit = decimal.New(1, 16)

type callbackRecordRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCallbackRecordRepository creates a new callback record repository
func NewCallbackRecordRepository(db *gorm.DB, logger *zap.Logger) repository.CallbackRecordRepository {
	return &callbackRecordRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores the raw delivery before anything is parsed
func (r *callbackRecordRepository) Create(ctx context.Context, record *model.CallbackRecord) error {
	if record.Outcome == "" {
		record.Outcome = model.CallbackOutcomeReceived
	}
	record.ContentType = clip(record.ContentType, contentTypeWidth)
	record.SourceIP = clip(record.SourceIP, sourceIPWidth)
	record.UserAgent = clip(record.UserAgent, userAgentWidth)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		r.logger.Error("Failed to save callback record",
			zap.String("source_ip", record.SourceIP),
			zap.Int("payload_bytes", len(record.RawPayload)),
			zap.Error(err))
		return fmt.Errorf("failed to save callback record: %w", err)
	}
	return nil
}

// Finalize writes the processing result. Only rows that were never
// finalized match, which keeps the record write-once.
// Extracted values are fitted to their columns first.
func (r *callbackRecordRepository) Finalize(ctx context.Context, id int64, f repository.CallbackFinalization) error {
	amount, detail := fitAmount(f.Amount, f.Detail)
	updates := map[string]interface{}{
		"payment_reference":    clipPtr(f.Reference, referenceWidth),
		"transaction_id":       clipPtr(f.TransactionID, transactionWidth),
		"extracted_status":     clipPtr(f.ExtractedStatus, statusWidth),
		"signal":               clipPtr(f.Signal, signalWidth),
		"extracted_amount":     amount,
		"applied_successfully": f.AppliedSuccessfully,
		"outcome":              f.Outcome,
		"needs_review":         f.NeedsReview,
		"detail":               detail,
		"finalized_at":         f.FinalizedAt,
	}

	res := r.db.WithContext(ctx).
		Model(&model.CallbackRecord{}).
		Where("id = ? AND finalized_at IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		r.logger.Error("Failed to finalize callback record",
			zap.Int64("callback_id", id),
			zap.Error(res.Error))
		return fmt.Errorf("failed to finalize callback record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domainErrors.ErrCallbackAlreadyFinalized
	}
	return nil
}

// clip cuts s to at most n bytes without splitting a rune
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func clipPtr(s *string, n int) *string {
	if s == nil {
		return nil
	}
	v := clip(*s, n)
	return &v
}

// fitAmount rounds to cents and drops values the column cannot hold,
// noting the original in detail.
func fitAmount(amount decimal.NullDecimal, detail *string) (decimal.NullDecimal, *string) {
	if !amount.Valid {
		return amount, detail
	}
	if amount.Decimal.Abs().GreaterThanOrEqual(amountLimit) {
		note := "amount out of range: " + clip(amount.Decimal.String(), 64)
		if detail != nil && *detail != "" {
			note = *detail + "; " + note
		}
		return decimal.NullDecimal{}, &note
	}
	return decimal.NewNullDecimal(amount.Decimal.Round(2)), detail
}

// ListByReference returns the audit trail of one reference, newest first
func (r *callbackRecordRepository) ListByReference(ctx context.Context, reference string, offset, limit int) ([]*model.CallbackRecord, int64, error) {
	var (
		records []*model.CallbackRecord
		total   int64
	)

	base := r.db.WithContext(ctx).
		Model(&model.CallbackRecord{}).
		Where("payment_reference = ?", reference).
		Session(&gorm.Session{})

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count callback records: %w", err)
	}

	err := base.
		Order("received_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list callback records: %w", err)
	}

	return records, total, nil
}
