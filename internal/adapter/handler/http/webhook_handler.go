package http

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/usecase"
	appErrors "github.com/francisco-dev-ao/loja356-25-sub001/pkg/errors"
)

const defaultMaxBodyBytes = 64 << 10

// CallbackIngester records and applies gateway webhooks
type CallbackIngester interface {
	Ingest(ctx context.Context, payload []byte, meta usecase.CallbackMeta) (*usecase.IngestResult, error)
}

type WebhookHandler struct {
	callbacks       CallbackIngester
	signatureHeader string
	maxBodyBytes    int64
	logger          *zap.Logger
}

func NewWebhookHandler(callbacks CallbackIngester, signatureHeader string, maxBodyBytes int64, logger *zap.Logger) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &WebhookHandler{
		callbacks:       callbacks,
		signatureHeader: signatureHeader,
		maxBodyBytes:    maxBodyBytes,
		logger:          logger,
	}
}

type WebhookResponse struct {
	Received  bool   `json:"received"`
	Outcome   string `json:"outcome"`
	Reference string `json:"reference,omitempty"`
}

// HandleWebhook acknowledges every callback it managed to record, whatever
// its outcome, so the gateway stops redelivering. Only a storage failure
// asks for a retry. An oversized body is recorded truncated as malformed.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, h.maxBodyBytes+1))
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "Error reading request body")
	}

	meta := usecase.CallbackMeta{
		SourceIP:    c.RealIP(),
		ContentType: c.Request().Header.Get(echo.HeaderContentType),
		UserAgent:   c.Request().UserAgent(),
	}
	if h.signatureHeader != "" {
		meta.Signature = c.Request().Header.Get(h.signatureHeader)
	}
	if int64(len(body)) > h.maxBodyBytes {
		h.logger.Warn("Webhook body too large",
			zap.String("source_ip", meta.SourceIP),
			zap.Int64("limit", h.maxBodyBytes))
		body = body[:h.maxBodyBytes]
		meta.TruncatedAt = h.maxBodyBytes
	}

	result, err := h.callbacks.Ingest(c.Request().Context(), body, meta)
	if err != nil {
		appErr := appErrors.NewAppError(appErrors.ErrUnavailable, "Callback could not be recorded", err)
		appErrors.LogError(h.logger, appErr, "Webhook not recorded",
			zap.String("source_ip", meta.SourceIP))
		return appErrors.ToHTTPError(appErr)
	}

	if result.Outcome == model.CallbackOutcomeSignatureInvalid {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid signature")
	}

	return c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		Outcome:   string(result.Outcome),
		Reference: result.Reference,
	})
}
