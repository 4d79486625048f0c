package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	grpcHandler "github.com/francisco-dev-ao/loja356-25-sub001/internal/adapter/handler/grpc"
	httpHandler "github.com/francisco-dev-ao/loja356-25-sub001/internal/adapter/handler/http"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/app"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/config"
	grpcServer "github.com/francisco-dev-ao/loja356-25-sub001/internal/infrastructure/grpc"
	httpServer "github.com/francisco-dev-ao/loja356-25-sub001/internal/infrastructure/http"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Database, repositories and usecases
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := grpcHandler.NewHealthHandler(a, 0, logger.Named("health"))
	go healthHandler.Run(ctx)

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, logger, healthHandler.Server())
	httpSrv := httpServer.NewServer(cfg, logger, httpServer.Handlers{
		Checkout: httpHandler.NewCheckoutHandler(a.Sessions, logger),
		Status:   httpHandler.NewStatusHandler(a.Status, logger),
		Webhook:  httpHandler.NewWebhookHandler(a.Callbacks, cfg.Webhook.SignatureHeader, cfg.Webhook.MaxBodyBytes, logger),
		Admin:    httpHandler.NewAdminHandler(a.Verification, a.Audit, logger),
	})

	// Expiry sweep; an empty schedule leaves expiry to status reads
	var scheduler *cron.Cron
	if cfg.Sweep.Cron != "" {
		scheduler, err = app.NewSweepScheduler(a.Expiry, cfg.Sweep.Cron, time.Minute, logger.Named("sweep"))
		if err != nil {
			logger.Fatal("Failed to schedule expiry sweep", zap.Error(err))
		}
		scheduler.Start()
	}

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			logger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down servers...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Let a running sweep finish
	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn("Expiry sweep still running at shutdown")
		}
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	logger.Info("Servers shut down successfully")
}
