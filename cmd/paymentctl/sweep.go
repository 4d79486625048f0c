package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/app"
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire pending sessions older than the payment window",
		Long: `Run one expiry sweep and print its summary.
With --cron the sweep is scheduled (e.g. "@every 1m" or "*/5 * * * *")
and the command runs until interrupted.`,
		RunE: runSweep,
	}

	cmd.Flags().String("cron", "", "Cron schedule; empty runs a single sweep")
	cmd.Flags().Duration("timeout", time.Minute, "Time limit for one sweep")

	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	schedule, _ := cmd.Flags().GetString("cron")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	a, logger, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer a.Close()

	if schedule == "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return sweepOnce(ctx, cmd.OutOrStdout(), a.Expiry)
	}

	scheduler, err := app.NewSweepScheduler(a.Expiry, schedule, timeout, logger.Named("sweep"))
	if err != nil {
		return err
	}
	scheduler.Start()
	fmt.Fprintf(cmd.OutOrStdout(), "Sweeping on schedule %q, press Ctrl+C to stop\n", schedule)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	<-scheduler.Stop().Done()
	return nil
}

func sweepOnce(ctx context.Context, out io.Writer, sweeper app.Sweeper) error {
	summary, err := sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
