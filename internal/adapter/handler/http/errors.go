package http

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	appErrors "github.com/francisco-dev-ao/loja356-25-sub001/pkg/errors"
)

// toAppError classifies usecase errors into the shared error codes
func toAppError(err error) *appErrors.AppError {
	var (
		validationErr *domainErrors.ValidationError
		rejectionErr  *domainErrors.GatewayRejectionError
		appErr        *appErrors.AppError
	)

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &validationErr):
		return appErrors.NewAppError(appErrors.ErrInvalidArgument, validationErr.Error(), nil)
	case errors.As(err, &rejectionErr):
		return appErrors.NewAppError(appErrors.ErrGatewayRejected, rejectionErr.Error(), nil)
	case errors.Is(err, domainErrors.ErrOrderNotFound), errors.Is(err, domainErrors.ErrSessionNotFound):
		return appErrors.NewAppError(appErrors.ErrNotFound, err.Error(), nil)
	case errors.Is(err, domainErrors.ErrOrderAlreadyPaid), errors.Is(err, domainErrors.ErrDuplicateReference):
		return appErrors.NewAppError(appErrors.ErrConflict, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return appErrors.NewAppError(appErrors.ErrTimeout, "request timed out", err)
	default:
		return appErrors.NewAppError(appErrors.ErrInternal, "internal error", err)
	}
}

// httpError logs err with its code and converts it into the echo error
// rendered by the shared error handler
func httpError(c echo.Context, logger *zap.Logger, err error) *echo.HTTPError {
	appErr := toAppError(err)
	appErrors.LogError(logger, appErr, "Request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()))
	return appErrors.ToHTTPError(appErr)
}
