package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/usecase"
	"github.com/francisco-dev-ao/loja356-25-sub001/pkg/messaging"
)

// DefaultChannel carries order-paid events to the mailer
const DefaultChannel = "order.paid"

// RedisNotifier publishes order-paid events for the confirmation mailer
type RedisNotifier struct {
	client  messaging.RedisClient
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier creates a notifier publishing on channel
func NewRedisNotifier(client messaging.RedisClient, channel string, logger *zap.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

func (n *RedisNotifier) NotifyOrderPaid(ctx context.Context, event usecase.OrderPaidEvent) error {
	if err := n.client.Publish(ctx, n.channel, event); err != nil {
		return fmt.Errorf("failed to publish order paid event: %w", err)
	}
	n.logger.Info("Order paid event published",
		zap.String("channel", n.channel),
		zap.String("order_id", event.OrderID),
		zap.String("reference", event.Reference))
	return nil
}

// LogNotifier only logs. It is used when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyOrderPaid(ctx context.Context, event usecase.OrderPaidEvent) error {
	n.logger.Info("Order paid",
		zap.String("order_id", event.OrderID),
		zap.String("reference", event.Reference),
		zap.String("amount", event.Amount.String()),
		zap.String("source", event.Source),
		zap.Time("paid_at", event.PaidAt))
	return nil
}

var (
	_ usecase.OrderPaidNotifier = (*RedisNotifier)(nil)
	_ usecase.OrderPaidNotifier = (*LogNotifier)(nil)
)
