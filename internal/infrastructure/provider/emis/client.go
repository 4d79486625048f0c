package emis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/provider"
)

const (
	providerName   = "emis"
	defaultTimeout = 10 * time.Second
	frameTokenPath = "/frameToken"
	// responses larger than this are treated as malformed
	maxResponseBytes = 1 << 20
)

// Client talks to the EMIS / Multicaixa Express frame-token API
type Client struct {
	baseURL   string
	frameURL  string
	maxAmount decimal.Decimal
	client    *resty.Client
	logger    *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithMaxAmount refuses to send amounts above ceiling. Zero disables the check.
func WithMaxAmount(ceiling decimal.Decimal) Option {
	return func(cl *Client) { cl.maxAmount = ceiling }
}

// WithFrameURL sets the hosted frame address the token is appended to
func WithFrameURL(frameURL string) Option {
	return func(cl *Client) { cl.frameURL = frameURL }
}

// NewClient creates an EMIS client. A non-positive timeout defaults to 10s.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
	c.client = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(timeout).
		SetResponseBodyLimit(maxResponseBytes).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(logger.Sugar())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProviderName returns the provider name
func (c *Client) GetProviderName() string {
	return providerName
}

type frameTokenRequest struct {
	Reference   string      `json:"reference"`
	Amount      json.Number `json:"amount"`
	Token       string      `json:"token"`
	Mobile      string      `json:"mobile"`
	Card        string      `json:"card"`
	QRCode      string      `json:"qrCode"`
	CSSURL      string      `json:"cssUrl,omitempty"`
	CallbackURL string      `json:"callbackUrl"`
}

// CreateSession requests a frame token for reference
// POST <base>/frameToken
func (c *Client) CreateSession(ctx context.Context, req *provider.SessionRequest) (*provider.GatewayToken, error) {
	if err := c.checkAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.Settings.FrameToken == "" {
		return nil, &provider.GatewayError{Kind: provider.KindInvalidRequest, Reason: "merchant frame token is not configured"}
	}

	body := frameTokenRequest{
		Reference:   req.Reference,
		Amount:      json.Number(req.Amount.String()),
		Token:       req.Settings.FrameToken,
		Mobile:      switchOrDefault(req.Settings.Mobile, "PAYMENT"),
		Card:        switchOrDefault(req.Settings.Card, "DISABLED"),
		QRCode:      switchOrDefault(req.Settings.QRCode, "PAYMENT"),
		CSSURL:      req.Settings.CSSURL,
		CallbackURL: req.Settings.CallbackURL,
	}

	c.logger.Info("EMIS: requesting frame token",
		zap.String("reference", req.Reference),
		zap.String("amount", req.Amount.String()),
		zap.String("url", c.baseURL+frameTokenPath))

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(frameTokenPath)
	if err != nil {
		gwErr := classifyTransportError(ctx, err)
		c.logger.Warn("EMIS: frame token request failed",
			zap.String("reference", req.Reference),
			zap.String("kind", string(gwErr.Kind)),
			zap.Error(err))
		return nil, gwErr
	}

	c.logger.Info("EMIS: received response",
		zap.String("reference", req.Reference),
		zap.Int("status_code", resp.StatusCode()))

	return c.parseResponse(req.Reference, resp.StatusCode(), resp.Body())
}

func (c *Client) parseResponse(reference string, statusCode int, respBody []byte) (*provider.GatewayToken, error) {
	var payload map[string]interface{}
	jsonErr := json.Unmarshal(respBody, &payload)

	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		c.logger.Error("EMIS: merchant credentials rejected",
			zap.String("reference", reference),
			zap.Int("status_code", statusCode),
			zap.String("response", string(respBody)))
		return nil, &provider.GatewayError{
			Kind:       provider.KindRejected,
			StatusCode: statusCode,
			Reason:     firstNonEmpty(errorMessage(payload), "merchant token rejected"),
			Raw:        string(respBody),
		}
	}

	if statusCode < 200 || statusCode > 299 {
		c.logger.Error("EMIS: frame token request returned error status",
			zap.String("reference", reference),
			zap.Int("status_code", statusCode),
			zap.String("response", string(respBody)))
		return nil, &provider.GatewayError{
			Kind:       provider.KindHTTPError,
			StatusCode: statusCode,
			Reason:     firstNonEmpty(errorMessage(payload), http.StatusText(statusCode)),
			Raw:        string(respBody),
		}
	}

	if jsonErr != nil {
		return nil, &provider.GatewayError{
			Kind:       provider.KindMalformedResponse,
			StatusCode: statusCode,
			Reason:     "response is not JSON",
			Raw:        string(respBody),
			Err:        jsonErr,
		}
	}

	id, _ := payload["id"].(string)
	if id == "" {
		if msg := errorMessage(payload); msg != "" {
			return nil, &provider.GatewayError{
				Kind:       provider.KindRejected,
				StatusCode: statusCode,
				Reason:     msg,
				Raw:        string(respBody),
			}
		}
		return nil, &provider.GatewayError{
			Kind:       provider.KindMalformedResponse,
			StatusCode: statusCode,
			Reason:     "response has no token id",
			Raw:        string(respBody),
		}
	}

	c.logger.Info("EMIS: frame token issued", zap.String("reference", reference))

	return &provider.GatewayToken{
		ID:       id,
		FrameURL: c.buildFrameURL(id),
		Raw:      payload,
	}, nil
}

// checkAmount enforces the kwanza major-unit convention before anything is sent
func (c *Client) checkAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return &provider.GatewayError{Kind: provider.KindInvalidRequest, Reason: "amount must be positive"}
	case !amount.Equal(amount.Round(2)):
		return &provider.GatewayError{Kind: provider.KindInvalidRequest,
			Reason: fmt.Sprintf("amount %s has more than 2 decimal places", amount.String())}
	case c.maxAmount.IsPositive() && amount.GreaterThan(c.maxAmount):
		return &provider.GatewayError{Kind: provider.KindInvalidRequest,
			Reason: fmt.Sprintf("amount %s exceeds ceiling %s", amount.String(), c.maxAmount.String())}
	}
	return nil
}

func (c *Client) buildFrameURL(tokenID string) string {
	base := c.frameURL
	if base == "" {
		base = c.baseURL + "/frame"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(tokenID)
}

func classifyTransportError(ctx context.Context, err error) *provider.GatewayError {
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return &provider.GatewayError{Kind: provider.KindMalformedResponse, Reason: "response too large", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &provider.GatewayError{Kind: provider.KindTimeout, Reason: "request timed out", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &provider.GatewayError{Kind: provider.KindTimeout, Reason: "request timed out", Err: err}
	}
	return &provider.GatewayError{Kind: provider.KindNetwork, Reason: "request failed", Err: err}
}

// errorMessage picks the first error-ish field the gateway uses
func errorMessage(payload map[string]interface{}) string {
	for _, key := range []string{"error", "errorMessage", "message", "reason"} {
		switch v := payload[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]interface{}:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return ""
}

func switchOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
