package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/entity"
)

// PaymentStatusReader answers storefront status polls
type PaymentStatusReader interface {
	GetPaymentStatus(ctx context.Context, orderID string) (*entity.PaymentStatusView, error)
}

type StatusHandler struct {
	status PaymentStatusReader
	logger *zap.Logger
}

func NewStatusHandler(status PaymentStatusReader, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		status: status,
		logger: logger,
	}
}

// GetPaymentStatus handles GET /api/v1/orders/:orderId/payment-status
func (h *StatusHandler) GetPaymentStatus(c echo.Context) error {
	orderID := c.Param("orderId")

	view, err := h.status.GetPaymentStatus(c.Request().Context(), orderID)
	if err != nil {
		return httpError(c, h.logger, err)
	}

	// polled every few seconds
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, view)
}
