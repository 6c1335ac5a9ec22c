package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

const (
	OrderCreatedQueue   = "order.created"
	OrderCancelledQueue = "order.cancelled"
	LedgerDriftQueue    = "ledger.drift"
)

// Broker is the subset of messaging.RabbitMQ the publisher needs.
type Broker interface {
	DeclareQueue(name string) error
	Publish(ctx context.Context, queue string, message []byte) error
}

type OrderPublisher struct {
	mq  Broker
	now func() time.Time
}

func NewOrderPublisher(mq Broker) (*OrderPublisher, error) {
	for _, q := range []string{OrderCreatedQueue, OrderCancelledQueue, LedgerDriftQueue} {
		if err := mq.DeclareQueue(q); err != nil {
			return nil, err
		}
	}

	return &OrderPublisher{mq: mq, now: func() time.Time { return time.Now().UTC() }}, nil
}

// PublishOrderCreated publishes an order.created event
func (p *OrderPublisher) PublishOrderCreated(ctx context.Context, order models.Order) error {
	return p.publish(ctx, OrderCreatedQueue, models.OrderCreatedEvent{
		EventID:    uuid.NewString(),
		OrderID:    order.OrderID,
		ProductID:  order.ProductID,
		Quantity:   order.Quantity,
		CustomerID: order.CustomerID,
		TotalPrice: order.TotalPrice,
		OccurredAt: p.now(),
	})
}

// PublishOrderCancelled publishes an order.cancelled event
func (p *OrderPublisher) PublishOrderCancelled(ctx context.Context, order models.Order, releaseApplied bool) error {
	return p.publish(ctx, OrderCancelledQueue, models.OrderCancelledEvent{
		EventID:        uuid.NewString(),
		OrderID:        order.OrderID,
		ProductID:      order.ProductID,
		Quantity:       order.Quantity,
		ReleaseApplied: releaseApplied,
		OccurredAt:     p.now(),
	})
}

// PublishLedgerDrift publishes a ledger.drift report
func (p *OrderPublisher) PublishLedgerDrift(ctx context.Context, event models.LedgerDriftEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now()
	}
	return p.publish(ctx, LedgerDriftQueue, event)
}

func (p *OrderPublisher) publish(ctx context.Context, queue string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.mq.Publish(ctx, queue, data)
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishOrderCreated(context.Context, models.Order) error           { return nil }
func (Nop) PublishOrderCancelled(context.Context, models.Order, bool) error   { return nil }
func (Nop) PublishLedgerDrift(context.Context, models.LedgerDriftEvent) error { return nil }
