package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name the payment engine reports in gRPC health checks
const ServiceName = "payment.v1.PaymentEngine"

// Pinger checks a dependency the engine cannot work without
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler keeps the standard gRPC health service in sync with the
// database. Load balancers and the storefront probe it.
type HealthHandler struct {
	server   *health.Server
	db       Pinger
	interval time.Duration
	logger   *zap.Logger
}

func NewHealthHandler(db Pinger, interval time.Duration, logger *zap.Logger) *HealthHandler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthHandler{
		server:   health.NewServer(),
		db:       db,
		interval: interval,
		logger:   logger,
	}
}

// Server returns the health service to register on a gRPC server
func (h *HealthHandler) Server() healthpb.HealthServer {
	return h.server
}

// Check pings the database once and publishes the result
func (h *HealthHandler) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.interval/2)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("Database health check failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return status
}

// Run checks on every interval until ctx is done, then reports NOT_SERVING
// for the remaining shutdown.
func (h *HealthHandler) Run(ctx context.Context) {
	h.Check(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
