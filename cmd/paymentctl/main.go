package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/app"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/config"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "paymentctl",
		Short:         "Operator tool for the payment engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default $CONFIG_PATH or ./configs/payment.yaml)")

	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(callbacksCmd())
	rootCmd.AddCommand(eventsCmd())

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.LoadConfig()
	}
	return config.Load(path, true)
}

// loadApp opens the database and builds the usecases. The caller closes
// the returned app and syncs the logger.
func loadApp(cmd *cobra.Command) (*app.App, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, logger, nil
}
