// Package inventory implements the stock ledger: the only code allowed to
// move units between available and reserved.
package inventory

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/db"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/metrics"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

// Store is a keyed stock store whose Update is atomic per product.
type Store interface {
	Add(record models.StockRecord) error
	GetByID(productID string) (models.StockRecord, error)
	GetAll() []models.StockRecord
	Update(productID string, fn func(*models.StockRecord) error) (models.StockRecord, error)
}

type CheckResult struct {
	Available         bool
	AvailableQuantity int
	UnitPrice         decimal.Decimal
}

type Ledger struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewLedger(store Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Seed loads the initial catalog. Counters start as given.
func (l *Ledger) Seed(records []models.StockRecord) error {
	for _, r := range records {
		if err := l.store.Add(r); err != nil {
			return err
		}
		l.observe(r)
	}
	return nil
}

func (l *Ledger) List() []models.StockRecord {
	return l.store.GetAll()
}

func (l *Ledger) Get(productID string) (models.StockRecord, error) {
	rec, err := l.store.GetByID(productID)
	if err != nil {
		return models.StockRecord{}, translate(err)
	}
	return rec, nil
}

// Check reports whether quantity units are sellable right now. The answer is
// advisory: only Reserve decides.
func (l *Ledger) Check(productID string, quantity int) (CheckResult, error) {
	if err := validQuantity(quantity); err != nil {
		return CheckResult{}, l.count("check", err)
	}

	rec, err := l.store.GetByID(productID)
	if err != nil {
		return CheckResult{}, l.count("check", translate(err))
	}

	result := CheckResult{
		Available:         rec.AvailableQuantity >= quantity,
		AvailableQuantity: rec.AvailableQuantity,
		UnitPrice:         rec.UnitPrice,
	}
	l.logger.Info("availability check",
		zap.String("product_id", productID),
		zap.Int("requested", quantity),
		zap.Int("available", rec.AvailableQuantity),
		zap.Bool("result", result.Available),
	)
	return result, l.count("check", nil)
}

// Reserve moves quantity units from available to reserved, or fails with
// InsufficientStock without touching the record.
func (l *Ledger) Reserve(productID string, quantity int) (models.StockRecord, error) {
	return l.mutate("reserve", productID, quantity, func(r *models.StockRecord) error {
		if r.AvailableQuantity < quantity {
			return apperr.InsufficientStock(quantity, r.AvailableQuantity)
		}
		r.AvailableQuantity -= quantity
		r.ReservedQuantity += quantity
		return nil
	})
}

// Release returns quantity units to available. Releasing more than is
// reserved is tolerated: reserved is clamped at zero.
func (l *Ledger) Release(productID string, quantity int) (models.StockRecord, error) {
	return l.mutate("release", productID, quantity, func(r *models.StockRecord) error {
		if err := fits(r.AvailableQuantity, quantity); err != nil {
			return err
		}
		r.AvailableQuantity += quantity
		r.ReservedQuantity = max(0, r.ReservedQuantity-quantity)
		return nil
	})
}

func (l *Ledger) Restock(productID string, quantity int) (models.StockRecord, error) {
	return l.mutate("restock", productID, quantity, func(r *models.StockRecord) error {
		if err := fits(r.AvailableQuantity, quantity); err != nil {
			return err
		}
		r.AvailableQuantity += quantity
		return nil
	})
}

func (l *Ledger) mutate(op, productID string, quantity int, apply func(*models.StockRecord) error) (models.StockRecord, error) {
	if err := validQuantity(quantity); err != nil {
		return models.StockRecord{}, l.count(op, err)
	}

	rec, err := l.store.Update(productID, func(r *models.StockRecord) error {
		if err := apply(r); err != nil {
			return err
		}
		now := l.now()
		r.LastUpdated = &now
		return nil
	})
	if err != nil {
		err = translate(err)
		if apperr.Is(err, apperr.KindInsufficientStock) {
			l.logger.Info("reservation rejected",
				zap.String("product_id", productID),
				zap.Int("requested", quantity),
				zap.Int("available", rec.AvailableQuantity),
			)
		}
		return rec, l.count(op, err)
	}

	l.observe(rec)
	l.logger.Info("stock "+op,
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Int("available", rec.AvailableQuantity),
		zap.Int("reserved", rec.ReservedQuantity),
	)
	return rec, l.count(op, nil)
}

func (l *Ledger) observe(rec models.StockRecord) {
	metrics.AvailableQuantity.WithLabelValues(rec.ProductID).Set(float64(rec.AvailableQuantity))
	metrics.ReservedQuantity.WithLabelValues(rec.ProductID).Set(float64(rec.ReservedQuantity))
}

// count records the operation result and passes err through.
func (l *Ledger) count(op string, err error) error {
	result := "ok"
	if err != nil {
		result = string(apperr.KindOf(err))
	}
	metrics.InventoryOperations.WithLabelValues(op, result).Inc()
	return err
}

func validQuantity(quantity int) error {
	if quantity <= 0 {
		return apperr.InvalidArgument("Quantity must be positive")
	}
	return nil
}

// fits rejects an increase that would overflow available.
func fits(available, quantity int) error {
	if quantity > math.MaxInt-available {
		return apperr.InvalidArgument("Quantity too large").With("available_quantity", available)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("Product not found")
	}
	return err
}
