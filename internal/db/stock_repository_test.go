package db

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

func newSeededStock(t *testing.T) *StockRepository {
	t.Helper()
	repo := NewStockRepository()
	require.NoError(t, repo.Add(models.StockRecord{ProductID: "P002", Name: "Wireless Mouse", UnitPrice: decimal.RequireFromString("29.99"), AvailableQuantity: 200}))
	require.NoError(t, repo.Add(models.StockRecord{ProductID: "P001", Name: "Laptop", UnitPrice: decimal.RequireFromString("999.99"), AvailableQuantity: 50}))
	return repo
}

func TestStockRepository_AddDuplicate(t *testing.T) {
	repo := newSeededStock(t)
	err := repo.Add(models.StockRecord{ProductID: "P001"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestStockRepository_GetAllSorted(t *testing.T) {
	repo := newSeededStock(t)
	records := repo.GetAll()
	require.Len(t, records, 2)
	assert.Equal(t, "P001", records[0].ProductID)
	assert.Equal(t, "P002", records[1].ProductID)
}

func TestStockRepository_GetByIDMissing(t *testing.T) {
	repo := newSeededStock(t)
	_, err := repo.GetByID("P999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStockRepository_UpdateRejectedLeavesRecord(t *testing.T) {
	repo := newSeededStock(t)
	boom := errors.New("rejected")

	_, err := repo.Update("P001", func(r *models.StockRecord) error {
		r.AvailableQuantity = -1
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := repo.GetByID("P001")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.AvailableQuantity)
}

func TestStockRepository_UpdateIsSerializedPerProduct(t *testing.T) {
	repo := newSeededStock(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update("P002", func(r *models.StockRecord) error {
				r.AvailableQuantity--
				r.ReservedQuantity++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := repo.GetByID("P002")
	require.NoError(t, err)
	assert.Equal(t, 100, rec.AvailableQuantity)
	assert.Equal(t, 100, rec.ReservedQuantity)
}
