package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/usecase"
)

// Sweeper is the expiry sweep the scheduler drives
type Sweeper interface {
	Sweep(ctx context.Context) (usecase.SweepSummary, error)
}

// NewSweepScheduler runs sweeper on a cron schedule. Overlapping runs are skipped
// while a previous sweep is still in progress. The returned cron is not started.
func NewSweepScheduler(sweeper Sweeper, schedule string, timeout time.Duration, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		summary, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.Error("Expiry sweep failed", zap.Error(err))
			return
		}
		if summary.Scanned > 0 {
			logger.Info("Expiry sweep finished",
				zap.Int("scanned", summary.Scanned),
				zap.Int("expired", summary.Expired),
				zap.Int("skipped", summary.Skipped),
				zap.Int("failed", summary.Failed))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return c, nil
}
