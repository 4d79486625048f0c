package provider

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// GatewayClient requests one-time payment tokens from the gateway.
// It knows nothing about orders and persists nothing.
type GatewayClient interface {
	CreateSession(ctx context.Context, req *SessionRequest) (*GatewayToken, error)
	GetProviderName() string
}

// SessionRequest is the input of a single frame-token request.
// Amount is in kwanza major units with at most two decimal places.
type SessionRequest struct {
	Reference string
	Amount    decimal.Decimal
	Settings  Settings
}

// Settings are the merchant parameters injected from configuration
type Settings struct {
	FrameToken  string
	CallbackURL string
	CSSURL      string
	Mobile      string
	Card        string
	QRCode      string
}

// GatewayToken is a successfully issued frame token
type GatewayToken struct {
	ID       string
	FrameURL string
	Raw      map[string]interface{}
}

// GatewayErrorKind classifies gateway failures
type GatewayErrorKind string

const (
	KindTimeout           GatewayErrorKind = "timeout"
	KindNetwork           GatewayErrorKind = "network"
	KindHTTPError         GatewayErrorKind = "http_error"
	KindMalformedResponse GatewayErrorKind = "malformed_response"
	KindRejected          GatewayErrorKind = "rejected"
	// KindInvalidRequest means the client refused to send the request
	KindInvalidRequest GatewayErrorKind = "invalid_request"
)

// GatewayError is the typed failure of GatewayClient.CreateSession
type GatewayError struct {
	Kind       GatewayErrorKind
	StatusCode int
	Reason     string
	Raw        string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Kind == KindHTTPError:
		return fmt.Sprintf("gateway %s (status %d): %s", e.Kind, e.StatusCode, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("gateway %s: %s: %v", e.Kind, e.Reason, e.Err)
	default:
		return fmt.Sprintf("gateway %s: %s", e.Kind, e.Reason)
	}
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed. Rejections,
// invalid requests and 4xx responses are final.
func (e *GatewayError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork, KindMalformedResponse:
		return true
	case KindHTTPError:
		return e.StatusCode >= 500
	default:
		return false
	}
}
