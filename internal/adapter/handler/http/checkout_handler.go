package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/entity"
)

// CheckoutService opens payment sessions
type CheckoutService interface {
	CreateSession(ctx context.Context, orderID string, amount decimal.Decimal) (*entity.CheckoutSession, error)
}

type CheckoutHandler struct {
	sessions CheckoutService
	logger   *zap.Logger
}

func NewCheckoutHandler(sessions CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type CreateCheckoutRequest struct {
	OrderID string          `json:"orderId" validate:"required,max=64"`
	Amount  decimal.Decimal `json:"amount"`
}

// CreateSession handles POST /api/v1/checkout/sessions. A fallback session
// is still a 201; the client reads fallbackUsed and warning.
func (h *CheckoutHandler) CreateSession(c echo.Context) error {
	var req CreateCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return httpError(c, h.logger, err)
	}

	session, err := h.sessions.CreateSession(c.Request().Context(), req.OrderID, req.Amount)
	if err != nil {
		return httpError(c, h.logger.With(
			zap.String("order_id", req.OrderID),
			zap.String("amount", req.Amount.String())), err)
	}

	return c.JSON(http.StatusCreated, session)
}
