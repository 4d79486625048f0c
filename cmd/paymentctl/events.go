package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/usecase"
	"github.com/francisco-dev-ao/loja356-25-sub001/pkg/messaging"
)

func eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print order-paid notifications published on Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.Redis.Enabled {
				return fmt.Errorf("redis is disabled; set redis.enabled to subscribe")
			}

			client, err := messaging.NewRedisClient(messaging.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runEvents(ctx, cmd.OutOrStdout(), client, cfg.Redis.OrderPaidChannel)
		},
	}
}

func runEvents(ctx context.Context, out io.Writer, client messaging.RedisClient, channel string) error {
	messages, err := client.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Subscribed to %s\n", channel)

	for msg := range messages {
		var event usecase.OrderPaidEvent
		if err := msg.Decode(&event); err != nil {
			fmt.Fprintf(out, "%s undecodable message: %s\n", msg.Time.Format("15:04:05"), msg.Payload)
			continue
		}
		fmt.Fprintf(out, "%s order %s paid %s via %s (reference %s)\n",
			msg.Time.Format("15:04:05"), event.OrderID, event.Amount.StringFixed(2), event.Source, event.Reference)
	}
	return nil
}
