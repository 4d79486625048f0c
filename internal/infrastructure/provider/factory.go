package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/config"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/provider"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/infrastructure/provider/emis"
)

// Factory creates the gateway client and its merchant settings from configuration
type Factory struct {
	config *config.GatewayConfig
	logger *zap.Logger
}

// NewFactory creates a new provider factory
func NewFactory(config *config.GatewayConfig, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// GatewayClient returns the EMIS client
func (f *Factory) GatewayClient() (provider.GatewayClient, error) {
	ceiling, err := f.config.MaxAmountDecimal()
	if err != nil {
		return nil, fmt.Errorf("invalid gateway ceiling: %w", err)
	}
	if f.config.Active && f.config.FrameToken == "" {
		f.logger.Warn("EMIS frame token not configured; every checkout will use the fallback path")
	}

	return emis.NewClient(
		f.config.BaseURL,
		f.config.Timeout,
		f.logger.Named("emis"),
		emis.WithFrameURL(f.config.FrameURL),
		emis.WithMaxAmount(ceiling),
	), nil
}

// Settings returns the merchant parameters sent with every session request
func (f *Factory) Settings() provider.Settings {
	return provider.Settings{
		FrameToken:  f.config.FrameToken,
		CallbackURL: f.config.CallbackURL,
		CSSURL:      f.config.CSSURL,
		Mobile:      f.config.Methods.Mobile,
		Card:        f.config.Methods.Card,
		QRCode:      f.config.Methods.QRCode,
	}
}
