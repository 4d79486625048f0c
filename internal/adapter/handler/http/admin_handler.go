package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/entity"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/middleware/auth"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/usecase"
)

// PaymentVerifier applies an operator-confirmed status
type PaymentVerifier interface {
	Verify(ctx context.Context, reference, status, operator string) (*usecase.ApplyResult, error)
}

// CallbackAuditor lists the callback audit trail
type CallbackAuditor interface {
	ListCallbacks(ctx context.Context, reference string, params entity.PaginationParams) (*entity.PaginatedCallbacksResponse, error)
}

// AdminHandler serves the back office endpoints
type AdminHandler struct {
	verifier PaymentVerifier
	auditor  CallbackAuditor
	logger   *zap.Logger
}

func NewAdminHandler(verifier PaymentVerifier, auditor CallbackAuditor, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		verifier: verifier,
		auditor:  auditor,
		logger:   logger,
	}
}

type VerifyPaymentRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

type VerifyPaymentResponse struct {
	Reference     string `json:"reference"`
	Verdict       string `json:"verdict"`
	From          string `json:"from"`
	To            string `json:"to"`
	NeedsReview   bool   `json:"needsReview"`
	DoublePayment bool   `json:"doublePayment"`
	Reason        string `json:"reason,omitempty"`
}

// VerifyPayment handles POST /api/v1/payments/:reference/verify
func (h *AdminHandler) VerifyPayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if user == nil {
		return err
	}

	var req VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return httpError(c, h.logger, err)
	}

	operator := user.Email
	if operator == "" {
		operator = user.UserID
	}

	result, err := h.verifier.Verify(c.Request().Context(), c.Param("reference"), req.Status, operator)
	if err != nil {
		return httpError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, VerifyPaymentResponse{
		Reference:     result.Reference,
		Verdict:       string(result.Verdict),
		From:          string(result.From),
		To:            string(result.To),
		NeedsReview:   result.NeedsReview,
		DoublePayment: result.DoublePayment,
		Reason:        result.Reason,
	})
}

// ListCallbacks handles GET /api/v1/payments/:reference/callbacks
func (h *AdminHandler) ListCallbacks(c echo.Context) error {
	var params entity.PaginationParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid pagination parameters")
	}

	page, err := h.auditor.ListCallbacks(c.Request().Context(), c.Param("reference"), params)
	if err != nil {
		return httpError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, page)
}
