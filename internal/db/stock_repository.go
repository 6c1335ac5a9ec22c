package db

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// stockEntry guards a single product. Mutations on different products never contend.
type stockEntry struct {
	mu     sync.Mutex
	record models.StockRecord
}

// StockRepository is the in-memory stock ledger keyed by product_id.
type StockRepository struct {
	mu      sync.RWMutex
	entries map[string]*stockEntry
}

func NewStockRepository() *StockRepository {
	return &StockRepository{entries: make(map[string]*stockEntry)}
}

// Add inserts a new product record
func (r *StockRepository) Add(record models.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[record.ProductID]; exists {
		return fmt.Errorf("product %s: %w", record.ProductID, ErrAlreadyExists)
	}
	r.entries[record.ProductID] = &stockEntry{record: record}
	return nil
}

func (r *StockRepository) entry(productID string) (*stockEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[productID]
	return e, ok
}

// GetByID returns a snapshot of one product
func (r *StockRepository) GetByID(productID string) (models.StockRecord, error) {
	e, ok := r.entry(productID)
	if !ok {
		return models.StockRecord{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record, nil
}

// GetAll returns snapshots of every product ordered by product_id
func (r *StockRepository) GetAll() []models.StockRecord {
	r.mu.RLock()
	entries := make([]*stockEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	records := make([]models.StockRecord, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		records = append(records, e.record)
		e.mu.Unlock()
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ProductID < records[j].ProductID
	})
	return records
}

// Update runs fn against a copy of the record while holding the product's lock.
// The copy is written back only when fn returns nil, so a rejected mutation
// leaves the stored record untouched.
func (r *StockRepository) Update(productID string, fn func(*models.StockRecord) error) (models.StockRecord, error) {
	e, ok := r.entry(productID)
	if !ok {
		return models.StockRecord{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.record
	if err := fn(&next); err != nil {
		return e.record, err
	}
	e.record = next
	return next, nil
}
