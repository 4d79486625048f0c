package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/pkg/statuspoller"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <orderId>",
		Short: "Poll an order's payment status until it is paid or failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL, _ := cmd.Flags().GetString("base-url")
			interval, _ := cmd.Flags().GetDuration("interval")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			client := statuspoller.NewClient(baseURL, 5*time.Second, zap.NewNop())
			return runWatch(cmd.Context(), cmd.OutOrStdout(), client, args[0], statuspoller.Options{
				Interval: interval,
				Timeout:  timeout,
			})
		},
	}

	cmd.Flags().String("base-url", "http://localhost:8080", "Payment API base URL")
	cmd.Flags().Duration("interval", statuspoller.DefaultInterval, "Polling interval")
	cmd.Flags().Duration("timeout", statuspoller.DefaultTimeout, "Give up after this long; negative waits forever")

	return cmd
}

func runWatch(ctx context.Context, out io.Writer, client *statuspoller.Client, orderID string, opts statuspoller.Options) error {
	fmt.Fprintf(out, "Watching order %s\n", orderID)

	w := client.Watch(ctx, orderID, func(s statuspoller.Status) {
		fmt.Fprintf(out, "order %s: %s", s.OrderID, s.PaymentStatus)
		if s.Reference != "" {
			fmt.Fprintf(out, " (reference %s, session %s)", s.Reference, s.SessionStatus)
		}
		fmt.Fprintln(out)
	}, opts)
	<-w.Done()

	switch w.Outcome() {
	case statuspoller.OutcomeTerminal:
		return nil
	case statuspoller.OutcomeTimedOut:
		return fmt.Errorf("order %s still unpaid after %s", orderID, opts.Timeout)
	default:
		return ctx.Err()
	}
}
