package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// GatewayConfig carries the merchant settings for the EMIS frame-token API.
type GatewayConfig struct {
	// Active false skips the gateway and issues reference-only sessions
	Active      bool          `yaml:"active"`
	BaseURL     string        `yaml:"base_url"`
	FrameURL    string        `yaml:"frame_url"`
	FrameToken  string        `yaml:"frame_token"`
	CallbackURL string        `yaml:"callback_url"`
	SuccessURL  string        `yaml:"success_url"`
	ErrorURL    string        `yaml:"error_url"`
	CSSURL      string        `yaml:"css_url"`
	MerchantTag string        `yaml:"merchant_tag"`
	Timeout     time.Duration `yaml:"timeout"`
	// MaxAmount is an optional ceiling in kwanza; empty disables it
	MaxAmount string         `yaml:"max_amount"`
	Methods   MethodSwitches `yaml:"methods"`
}

// MethodSwitches are sent verbatim: PAYMENT enables a method, DISABLED hides it.
type MethodSwitches struct {
	Mobile string `yaml:"mobile"`
	Card   string `yaml:"card"`
	QRCode string `yaml:"qr_code"`
}

// MaxAmountDecimal parses MaxAmount. A zero value means no ceiling.
func (c *GatewayConfig) MaxAmountDecimal() (decimal.Decimal, error) {
	if c.MaxAmount == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(c.MaxAmount)
}

type SessionConfig struct {
	// MaxAttempts counts the first gateway call plus retries
	MaxAttempts      int           `yaml:"max_attempts"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
	ExpiryWindow     time.Duration `yaml:"expiry_window"`
	// ProcessingExpiryWindow expires sessions the gateway left in processing; zero disables it
	ProcessingExpiryWindow time.Duration `yaml:"processing_expiry_window"`
	ReferenceRetries       int           `yaml:"reference_retries"`
}

type WebhookConfig struct {
	// SignatureSecret enables HMAC-SHA256 verification when set
	SignatureSecret string `yaml:"signature_secret"`
	SignatureHeader string `yaml:"signature_header"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes"`
}
