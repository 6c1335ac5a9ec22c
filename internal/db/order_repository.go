package db

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

// OrderRepository is the in-memory order ledger. Orders are never deleted.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	ids    []string // insertion order
	seq    atomic.Uint64
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*models.Order)}
}

// NextID hands out a unique order id. Safe for concurrent use.
func (r *OrderRepository) NextID() string {
	return fmt.Sprintf("ORD%04d", r.seq.Add(1))
}

// Create inserts a new order
func (r *OrderRepository) Create(order models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.OrderID]; exists {
		return fmt.Errorf("order %s: %w", order.OrderID, ErrAlreadyExists)
	}
	r.orders[order.OrderID] = &order
	r.ids = append(r.ids, order.OrderID)
	return nil
}

// GetByID returns a single order
func (r *OrderRepository) GetByID(orderID string) (models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return models.Order{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return *order, nil
}

// GetAll returns all orders in creation order
func (r *OrderRepository) GetAll() []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]models.Order, 0, len(r.ids))
	for _, id := range r.ids {
		orders = append(orders, *r.orders[id])
	}
	return orders
}

// Update applies fn to a copy of the order and stores it when fn succeeds
func (r *OrderRepository) Update(orderID string, fn func(*models.Order) error) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return models.Order{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}

	next := *order
	if err := fn(&next); err != nil {
		return *order, err
	}
	*order = next
	return next, nil
}
