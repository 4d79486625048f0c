package app

import (
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/config"
	"github.com/francisco-dev-ao/loja356-25-sub001/pkg/logger"
)

// NewLogger builds the zap logger described by the log section
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
		Service:     cfg.Service.Name,
	})
}
