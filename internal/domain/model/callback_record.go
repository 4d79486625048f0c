package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CallbackOutcome is the final classification of an inbound webhook
type CallbackOutcome string

const (
	// CallbackOutcomeReceived marks a record that was stored but not finalized yet
	CallbackOutcomeReceived         CallbackOutcome = "received"
	CallbackOutcomeApplied          CallbackOutcome = "applied"
	CallbackOutcomeDuplicate        CallbackOutcome = "duplicate"
	CallbackOutcomeIgnored          CallbackOutcome = "ignored"
	CallbackOutcomeUnmatched        CallbackOutcome = "unmatched"
	CallbackOutcomeUnrecognized     CallbackOutcome = "unrecognized"
	CallbackOutcomeMalformed        CallbackOutcome = "malformed"
	CallbackOutcomeAnomaly          CallbackOutcome = "anomaly"
	CallbackOutcomeAmountMismatch   CallbackOutcome = "amount_mismatch"
	CallbackOutcomeSignatureInvalid CallbackOutcome = "signature_invalid"
	CallbackOutcomeError            CallbackOutcome = "error"
)

// CallbackRecord is the append-only audit row of one webhook delivery.
// It is inserted before parsing and finalized exactly once.
type CallbackRecord struct {
	ID                  int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	RawPayload          string              `gorm:"type:text;not null" json:"raw_payload"`
	ContentType         string              `gorm:"size:128" json:"content_type"`
	SourceIP            string              `gorm:"size:64" json:"source_ip"`
	UserAgent           string              `gorm:"size:255" json:"user_agent"`
	PaymentReference    *string             `gorm:"size:64;index" json:"payment_reference,omitempty"`
	TransactionID       *string             `gorm:"size:128" json:"transaction_id,omitempty"`
	ExtractedStatus     *string             `gorm:"size:64" json:"extracted_status,omitempty"`
	Signal              *string             `gorm:"size:32" json:"signal,omitempty"`
	ExtractedAmount     decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"extracted_amount"`
	AppliedSuccessfully bool                `gorm:"not null" json:"applied_successfully"`
	Outcome             CallbackOutcome     `gorm:"size:32;not null;index" json:"outcome"`
	NeedsReview         bool                `gorm:"not null" json:"needs_review"`
	Detail              *string             `json:"detail,omitempty"`
	ReceivedAt          time.Time           `gorm:"not null;index" json:"received_at"`
	FinalizedAt         *time.Time          `json:"finalized_at,omitempty"`
}

// TableName specifies the table name for GORM
func (CallbackRecord) TableName() string {
	return "payment_callback_records"
}
