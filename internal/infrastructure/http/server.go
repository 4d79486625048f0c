package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/francisco-dev-ao/loja356-25-sub001/internal/adapter/handler/http"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/config"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/middleware/auth"
	"github.com/francisco-dev-ao/loja356-25-sub001/pkg/logger"
)

// Handlers groups the HTTP handlers the server routes to
type Handlers struct {
	Checkout *handlers.CheckoutHandler
	Status   *handlers.StatusHandler
	Webhook  *handlers.WebhookHandler
	Admin    *handlers.AdminHandler
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	handlers Handlers
}

func NewServer(cfg *config.Config, log *zap.Logger, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	e.Server.ReadTimeout = cfg.Server.HTTP.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.HTTP.WriteTimeout

	// Middleware
	logger.WithEchoLogger(e, log)
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.HTTP.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		handlers: h,
	}
	s.setupRoutes()
	return s
}

// Echo exposes the router, mainly for tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Gateway callbacks (outside API versioning, signature checked in the usecase)
	s.echo.POST("/webhook/emis", s.handlers.Webhook.HandleWebhook)

	v1 := s.echo.Group("/api/v1")

	v1.POST("/payments/callback", s.handlers.Webhook.HandleWebhook)

	// Storefront routes
	v1.POST("/checkout/sessions", s.handlers.Checkout.CreateSession)
	v1.GET("/orders/:orderId/payment-status", s.handlers.Status.GetPaymentStatus)

	// Back office routes (require an admin JWT)
	if s.config.JWT.Secret == "" {
		s.logger.Warn("jwt.secret is empty, back office routes will refuse every request")
	}
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	}
	admin := v1.Group("/payments/:reference",
		auth.JWTMiddleware(jwtConfig),
		auth.RequireRole(s.config.JWT.AdminRole, s.logger),
	)
	admin.POST("/verify", s.handlers.Admin.VerifyPayment)
	admin.GET("/callbacks", s.handlers.Admin.ListCallbacks)
}
