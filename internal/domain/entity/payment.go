package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
)

// CheckoutSession is the result of creating a payment session
type CheckoutSession struct {
	Reference    string              `json:"reference"`
	OrderID      string              `json:"orderId"`
	Amount       decimal.Decimal     `json:"amount"`
	Status       model.SessionStatus `json:"status"`
	FrameURL     string              `json:"frameUrl,omitempty"`
	FallbackUsed bool                `json:"fallbackUsed"`
	Warning      string              `json:"warning,omitempty"`
	Attempts     int                 `json:"attempts"`
}

// PaymentStatusView is the answer of the order status endpoint
type PaymentStatusView struct {
	OrderID       string                   `json:"orderId"`
	PaymentStatus model.OrderPaymentStatus `json:"paymentStatus"`
	Reference     string                   `json:"reference,omitempty"`
	SessionStatus model.SessionStatus      `json:"sessionStatus,omitempty"`
	PaidAt        *time.Time               `json:"paidAt,omitempty"`
}

// IsTerminal reports whether the storefront can stop polling.
func (v PaymentStatusView) IsTerminal() bool {
	return v.PaymentStatus == model.OrderPaymentPaid || v.PaymentStatus == model.OrderPaymentFailed
}

// PaginatedCallbacksResponse is the audit trail of one reference
type PaginatedCallbacksResponse struct {
	Reference  string                  `json:"reference"`
	Data       []*model.CallbackRecord `json:"data"`
	Pagination PaginationMeta          `json:"pagination"`
}
