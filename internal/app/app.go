// Package app wires configuration, storage, the gateway client and the
// usecases into one object shared by the server and the operator CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/config"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/infrastructure/database"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/infrastructure/notification"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/infrastructure/provider"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/usecase"
	"github.com/francisco-dev-ao/loja356-25-sub001/pkg/messaging"
)

// App holds every long-lived dependency
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Repos  *database.Repositories
	Redis  messaging.RedisClient

	Reconciler   *usecase.ReconciliationService
	Sessions     *usecase.SessionService
	Callbacks    *usecase.CallbackService
	Status       *usecase.StatusService
	Verification *usecase.VerificationService
	Expiry       *usecase.ExpiryService
	Audit        *usecase.AuditService
}

// New connects to the database (and Redis when enabled) and builds the
// usecases. Close releases what New opened.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(db, cfg.Database.Driver == "sqlite"); err != nil {
		_ = database.Close(db, logger)
		return nil, err
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Repos:  database.NewRepositories(db, logger),
	}

	notifier, err := a.notifier()
	if err != nil {
		_ = database.Close(db, logger)
		return nil, err
	}

	factory := provider.NewFactory(&cfg.Gateway, logger)
	gateway, err := factory.GatewayClient()
	if err != nil {
		a.Close()
		return nil, err
	}

	expiry := model.ExpiryPolicy{Pending: cfg.Session.ExpiryWindow, Processing: cfg.Session.ProcessingExpiryWindow}
	a.Reconciler = usecase.NewReconciliationService(a.Repos.Session, a.Repos.Transitions, notifier, expiry, logger.Named("reconciliation"))
	a.Sessions = usecase.NewSessionService(
		a.Repos.Session,
		a.Repos.Order,
		gateway,
		a.Reconciler,
		usecase.NewReferenceGenerator(cfg.Gateway.MerchantTag),
		usecase.SessionConfig{
			GatewayActive:    cfg.Gateway.Active,
			MaxAttempts:      cfg.Session.MaxAttempts,
			RetryBaseDelay:   cfg.Session.RetryBaseDelay,
			ReferenceRetries: cfg.Session.ReferenceRetries,
			Settings:         factory.Settings(),
		},
		logger.Named("session"),
	)

	var verifier usecase.SignatureVerifier
	if cfg.Webhook.SignatureSecret != "" {
		verifier = usecase.NewHMACVerifier(cfg.Webhook.SignatureSecret)
	}
	a.Callbacks = usecase.NewCallbackService(a.Repos.Callback, a.Repos.Session, a.Reconciler, verifier, logger.Named("callback"))
	a.Status = usecase.NewStatusService(a.Repos.Order, a.Repos.Session, a.Reconciler, logger.Named("status"))
	a.Verification = usecase.NewVerificationService(a.Reconciler, logger.Named("verification"))
	a.Expiry = usecase.NewExpiryService(a.Repos.Session, a.Reconciler, cfg.Sweep.BatchSize, logger.Named("expiry"))
	a.Audit = usecase.NewAuditService(a.Repos.Callback)

	return a, nil
}

func (a *App) notifier() (usecase.OrderPaidNotifier, error) {
	if !a.Config.Redis.Enabled {
		return notification.NewLogNotifier(a.Logger.Named("notification")), nil
	}
	client, err := messaging.NewRedisClient(messaging.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.Redis = client
	return notification.NewRedisNotifier(client, a.Config.Redis.OrderPaidChannel, a.Logger.Named("notification")), nil
}

// PingContext checks the database
func (a *App) PingContext(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database and Redis connections
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if err := database.Close(a.DB, a.Logger); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
}
