package consumer

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/metrics"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

// DriftConsumer records ledger.drift reports sent by the order service so the
// inventory side exposes them next to its own stock gauges.
type DriftConsumer struct {
	logger *zap.Logger
}

func NewDriftConsumer(logger *zap.Logger) *DriftConsumer {
	return &DriftConsumer{logger: logger}
}

// Run processes deliveries until the channel closes or ctx is done.
func (c *DriftConsumer) Run(ctx context.Context, messages <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.handle(msg)
		}
	}
}

func (c *DriftConsumer) handle(msg amqp.Delivery) {
	var event models.LedgerDriftEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.Kind == "" {
		c.logger.Warn("discarding malformed drift report", zap.Error(err))
		msg.Nack(false, false) // Don't requeue bad messages
		return
	}

	metrics.LedgerDrift.WithLabelValues(string(event.Kind)).Inc()
	c.logger.Error("ledger drift reported",
		zap.String("kind", string(event.Kind)),
		zap.String("order_id", event.OrderID),
		zap.String("product_id", event.ProductID),
		zap.Int("quantity", event.Quantity),
		zap.String("reason", event.Reason),
		zap.String("event_id", event.EventID),
	)
	msg.Ack(false)
}
