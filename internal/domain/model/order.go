package model

import "time"

// OrderStatus is the storefront order state as far as payment is concerned
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusConfirmed     OrderStatus = "confirmed"
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
)

// OrderPaymentStatus is the payment view exposed to the storefront
type OrderPaymentStatus string

const (
	OrderPaymentPending OrderPaymentStatus = "pending"
	OrderPaymentPaid    OrderPaymentStatus = "paid"
	OrderPaymentFailed  OrderPaymentStatus = "failed"
)

// Order is owned by the storefront. The payment engine only writes
// Status, PaymentStatus, PaidAt and UpdatedAt, and only while reconciling.
type Order struct {
	ID            string             `gorm:"primaryKey;size:64" json:"id"`
	Status        OrderStatus        `gorm:"size:32;not null" json:"status"`
	PaymentStatus OrderPaymentStatus `gorm:"size:16;not null;index" json:"payment_status"`
	PaidAt        *time.Time         `json:"paid_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Order) TableName() string {
	return "orders"
}
