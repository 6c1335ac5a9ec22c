package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// GuestCustomer is used when an order is placed without a customer_id.
const GuestCustomer = "guest"

type Order struct {
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	Quantity    int             `json:"quantity"`
	CustomerID  string          `json:"customer_id"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

type CreateOrderRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	Quantity   *int   `json:"quantity" binding:"required"`
	CustomerID string `json:"customer_id"`
}

type OrderList struct {
	Orders     []Order `json:"orders"`
	TotalCount int     `json:"total_count"`
}
