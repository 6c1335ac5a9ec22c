package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is published when an order is confirmed
type OrderCreatedEvent struct {
	EventID    string          `json:"event_id"`
	OrderID    string          `json:"order_id"`
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	CustomerID string          `json:"customer_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// OrderCancelledEvent is published when an order moves to cancelled
type OrderCancelledEvent struct {
	EventID        string    `json:"event_id"`
	OrderID        string    `json:"order_id"`
	ProductID      string    `json:"product_id"`
	Quantity       int       `json:"quantity"`
	ReleaseApplied bool      `json:"release_applied"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type DriftKind string

const (
	// DriftOrphanedReservation: stock reserved remotely, order never persisted.
	DriftOrphanedReservation DriftKind = "orphaned_reservation"
	// DriftAmbiguousReservation: reserve call failed in transport, remote commit unknown.
	DriftAmbiguousReservation DriftKind = "ambiguous_reservation"
	// DriftInventoryLeak: order cancelled but release never applied.
	DriftInventoryLeak DriftKind = "inventory_leak"
)

// LedgerDriftEvent reports a point where the order and inventory ledgers may disagree.
type LedgerDriftEvent struct {
	EventID    string    `json:"event_id"`
	Kind       DriftKind `json:"kind"`
	OrderID    string    `json:"order_id,omitempty"`
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
