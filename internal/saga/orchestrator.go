// Package saga sequences the order service's calls to the inventory service
// with its own order ledger: check, reserve, persist on create; release,
// mark cancelled on cancel.
package saga

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/cache"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/client"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/db"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/metrics"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

// Inventory is the remote inventory ledger as seen from the order service.
type Inventory interface {
	Check(ctx context.Context, productID string, quantity int) client.CheckResult
	Reserve(ctx context.Context, productID string, quantity int) client.ReserveResult
	Release(ctx context.Context, productID string, quantity int) client.ReleaseResult
}

type OrderStore interface {
	NextID() string
	Create(order models.Order) error
	GetByID(orderID string) (models.Order, error)
	GetAll() []models.Order
	Update(orderID string, fn func(*models.Order) error) (models.Order, error)
}

type Events interface {
	PublishOrderCreated(ctx context.Context, order models.Order) error
	PublishOrderCancelled(ctx context.Context, order models.Order, releaseApplied bool) error
	PublishLedgerDrift(ctx context.Context, event models.LedgerDriftEvent) error
}

type CreateOrderInput struct {
	ProductID      string
	Quantity       int
	CustomerID     string
	IdempotencyKey string
}

type CreateResult struct {
	Order models.Order
	// Replayed is set when the order was created earlier under the same idempotency key.
	Replayed  bool
	Execution *Execution
}

type CancelResult struct {
	Order            models.Order
	AlreadyCancelled bool
	Execution        *Execution
}

type Orchestrator struct {
	inventory   Inventory
	orders      OrderStore
	events      Events
	idempotency cache.IdempotencyStore
	logger      *zap.Logger
	now         func() time.Time
	cancelLocks *keyedMutex
}

type Option func(*Orchestrator)

func WithIdempotencyStore(store cache.IdempotencyStore) Option {
	return func(o *Orchestrator) { o.idempotency = store }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(inventory Inventory, orders OrderStore, events Events, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inventory:   inventory,
		orders:      orders,
		events:      events,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		cancelLocks: newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) GetOrder(orderID string) (models.Order, error) {
	order, err := o.orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Order{}, apperr.NotFound("Order not found")
		}
		return models.Order{}, err
	}
	return order, nil
}

func (o *Orchestrator) ListOrders() []models.Order {
	return o.orders.GetAll()
}

// CreateOrder runs check -> reserve -> persist. An order exists only if the
// reservation succeeded. A failed reserve is never compensated: either
// nothing was reserved, or (transport failure) nobody knows.
func (o *Orchestrator) CreateOrder(ctx context.Context, in CreateOrderInput) (res CreateResult, err error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.ProductID == "" {
		return res, apperr.InvalidArgument("Missing required fields: product_id, quantity")
	}
	if in.Quantity <= 0 {
		return res, apperr.InvalidArgument("Quantity must be positive")
	}
	if in.CustomerID == "" {
		in.CustomerID = models.GuestCustomer
	}

	// Remote calls are not interrupted when the caller goes away; the client timeout bounds them.
	ctx = context.WithoutCancel(ctx)

	if in.IdempotencyKey != "" && o.idempotency != nil {
		var replay CreateResult
		var claimed bool
		replay, claimed, err = o.claim(ctx, in.IdempotencyKey)
		if err != nil || !claimed {
			return replay, err
		}
		defer func() {
			if err != nil {
				o.abandon(ctx, in.IdempotencyKey)
			}
		}()
	}

	exec := newExecution()
	res.Execution = exec
	log := o.logger.With(
		zap.String("saga_id", exec.ID),
		zap.String("product_id", in.ProductID),
		zap.Int("quantity", in.Quantity),
	)

	check := o.inventory.Check(ctx, in.ProductID, in.Quantity)
	exec.record(log, StepCheck, check.Result)
	switch check.Outcome {
	case client.OutcomeUnreachable:
		return res, apperr.Upstream("Unable to verify inventory availability", check.Err)
	case client.OutcomeRejected:
		if check.StatusCode == http.StatusNotFound {
			return res, apperr.InvalidArgument("Product not found").With("product_id", in.ProductID)
		}
		return res, apperr.InvalidArgument("Inventory check failed").With("details", check.Body)
	}
	if !check.Available {
		return res, apperr.InsufficientStock(in.Quantity, check.AvailableQuantity)
	}

	reserve := o.inventory.Reserve(ctx, in.ProductID, in.Quantity)
	exec.record(log, StepReserve, reserve.Result)
	switch reserve.Outcome {
	case client.OutcomeUnreachable:
		o.drift(ctx, log, models.LedgerDriftEvent{
			Kind:      models.DriftAmbiguousReservation,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Reason:    reserve.Err.Error(),
		})
		return res, apperr.Upstream("Unable to reserve inventory", reserve.Err).With("reservation", "unknown")
	case client.OutcomeRejected:
		return res, apperr.New(apperr.KindInsufficientStock, "Failed to reserve inventory").With("details", reserve.Body)
	}

	order := models.Order{
		OrderID:    o.orders.NextID(),
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		CustomerID: in.CustomerID,
		Status:     models.OrderStatusConfirmed,
		CreatedAt:  o.now(),
		TotalPrice: check.Price.Mul(decimal.NewFromInt(int64(in.Quantity))),
	}
	if err := o.orders.Create(order); err != nil {
		exec.Steps = append(exec.Steps, StepRecord{Step: StepPersist, Outcome: client.OutcomeRejected, Err: err})
		o.drift(ctx, log, models.LedgerDriftEvent{
			Kind:      models.DriftOrphanedReservation,
			OrderID:   order.OrderID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Reason:    err.Error(),
		})
		return res, apperr.Wrap(apperr.KindInternal, "failed to persist order", err)
	}
	exec.Steps = append(exec.Steps, StepRecord{Step: StepPersist, Outcome: client.OutcomeSucceeded})

	metrics.Orders.WithLabelValues(string(models.OrderStatusConfirmed)).Inc()
	log.Info("order created", zap.String("order_id", order.OrderID), zap.String("total_price", order.TotalPrice.String()))

	if err := o.events.PublishOrderCreated(ctx, order); err != nil {
		log.Warn("failed to publish order.created", zap.Error(err))
	}
	if in.IdempotencyKey != "" && o.idempotency != nil {
		if err := o.idempotency.Complete(ctx, in.IdempotencyKey, order.OrderID); err != nil {
			// An unrecorded claim would answer 409 until it expires.
			log.Warn("failed to record idempotency key", zap.String("order_id", order.OrderID), zap.Error(err))
			o.abandon(ctx, in.IdempotencyKey)
		}
	}

	res.Order = order
	return res, nil
}

// CancelOrder releases the order's stock and marks it cancelled. The order is
// cancelled even if the release never lands; that case is reported as drift.
func (o *Orchestrator) CancelOrder(ctx context.Context, orderID string) (CancelResult, error) {
	unlock := o.cancelLocks.Lock(orderID)
	defer unlock()

	order, err := o.GetOrder(orderID)
	if err != nil {
		return CancelResult{}, err
	}
	if order.IsCancelled() {
		return CancelResult{Order: order, AlreadyCancelled: true}, nil
	}

	ctx = context.WithoutCancel(ctx)
	exec := newExecution()
	log := o.logger.With(
		zap.String("saga_id", exec.ID),
		zap.String("order_id", orderID),
		zap.String("product_id", order.ProductID),
	)

	release := o.inventory.Release(ctx, order.ProductID, order.Quantity)
	exec.record(log, StepRelease, release.Result)
	released := release.Outcome == client.OutcomeSucceeded
	if !released {
		reason := "inventory service rejected release"
		if release.Err != nil {
			reason = release.Err.Error()
		}
		o.drift(ctx, log, models.LedgerDriftEvent{
			Kind:      models.DriftInventoryLeak,
			OrderID:   orderID,
			ProductID: order.ProductID,
			Quantity:  order.Quantity,
			Reason:    reason,
		})
	}

	cancelled, err := o.orders.Update(orderID, func(ord *models.Order) error {
		now := o.now()
		ord.Status = models.OrderStatusCancelled
		ord.CancelledAt = &now
		return nil
	})
	if err != nil {
		return CancelResult{Execution: exec}, apperr.Wrap(apperr.KindInternal, "failed to cancel order", err)
	}

	metrics.Orders.WithLabelValues(string(models.OrderStatusCancelled)).Inc()
	log.Info("order cancelled", zap.Bool("release_applied", released))

	if err := o.events.PublishOrderCancelled(ctx, cancelled, released); err != nil {
		log.Warn("failed to publish order.cancelled", zap.Error(err))
	}
	return CancelResult{Order: cancelled, Execution: exec}, nil
}

func (o *Orchestrator) claim(ctx context.Context, key string) (CreateResult, bool, error) {
	existing, claimed, err := o.idempotency.Begin(ctx, key)
	if err != nil {
		return CreateResult{}, false, apperr.Upstream("Idempotency store unavailable", err)
	}
	if claimed {
		return CreateResult{}, true, nil
	}
	if existing.InFlight() {
		return CreateResult{}, false, apperr.New(apperr.KindConflict, "A request with this Idempotency-Key is in progress")
	}

	order, err := o.GetOrder(existing.OrderID)
	if err != nil {
		return CreateResult{}, false, apperr.New(apperr.KindConflict, "Idempotency-Key refers to an unknown order").
			With("order_id", existing.OrderID)
	}
	o.logger.Info("replaying order for idempotency key", zap.String("order_id", order.OrderID))
	return CreateResult{Order: order, Replayed: true}, false, nil
}

func (o *Orchestrator) abandon(ctx context.Context, key string) {
	if err := o.idempotency.Abandon(ctx, key); err != nil {
		o.logger.Warn("failed to release idempotency key", zap.Error(err))
	}
}

// drift makes a possible divergence between the two ledgers visible.
func (o *Orchestrator) drift(ctx context.Context, log *zap.Logger, event models.LedgerDriftEvent) {
	metrics.LedgerDrift.WithLabelValues(string(event.Kind)).Inc()

	var msg string
	switch event.Kind {
	case models.DriftOrphanedReservation:
		msg = "orphaned reservation"
	case models.DriftAmbiguousReservation:
		msg = "ambiguous reservation"
	case models.DriftInventoryLeak:
		msg = "inventory leak"
	}
	log.Error(msg, zap.String("kind", string(event.Kind)), zap.String("reason", event.Reason))

	if err := o.events.PublishLedgerDrift(ctx, event); err != nil {
		log.Warn("failed to publish ledger.drift", zap.Error(err))
	}
}
