package model

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a payment session
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
	SessionStatusExpired    SessionStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusExpired:
		return true
	}
	return false
}

// Scan implements sql.Scanner interface
func (s *SessionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SessionStatus(v)
	case []byte:
		*s = SessionStatus(v)
	default:
		*s = SessionStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SessionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PaymentSession tracks one gateway payment attempt for an order.
// Amount is in kwanza major units.
type PaymentSession struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference          string          `gorm:"uniqueIndex;not null;size:20" json:"reference"`
	OrderID            string          `gorm:"not null;size:64;index" json:"order_id"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status             SessionStatus   `gorm:"size:20;not null;index" json:"status"`
	GatewayToken       *string         `gorm:"size:255" json:"gateway_token,omitempty"`
	FallbackUsed       bool            `gorm:"not null" json:"fallback_used"`
	Attempts           int             `gorm:"not null" json:"attempts"`
	RawGatewayResponse JSONB           `gorm:"type:jsonb" json:"raw_gateway_response,omitempty"`
	FailureReason      *string         `json:"failure_reason,omitempty"`
	LastSignal         *string         `gorm:"size:32" json:"last_signal,omitempty"`
	LastSignalSource   *string         `gorm:"size:32" json:"last_signal_source,omitempty"`
	NeedsReview        bool            `gorm:"not null" json:"needs_review"`
	CreatedAt          time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (PaymentSession) TableName() string {
	return "payment_sessions"
}

// ExpiryPolicy bounds how long an open session may stay open, counted
// from creation. A zero window disables expiry for that status.
type ExpiryPolicy struct {
	Pending    time.Duration
	Processing time.Duration
}

// Cutoff returns the creation time before which a session in status is due.
// ok is false for statuses that never expire.
func (p ExpiryPolicy) Cutoff(status SessionStatus, now time.Time) (cutoff time.Time, ok bool) {
	switch status {
	case SessionStatusPending:
		return now.Add(-p.Pending), p.Pending > 0
	case SessionStatusProcessing:
		return now.Add(-p.Processing), p.Processing > 0
	}
	return time.Time{}, false
}

// ExpiredAt reports whether an open session has outlived its window at now.
func (s *PaymentSession) ExpiredAt(now time.Time, policy ExpiryPolicy) bool {
	cutoff, ok := policy.Cutoff(s.Status, now)
	return ok && !s.CreatedAt.After(cutoff)
}
