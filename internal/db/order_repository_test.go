package db

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

func TestOrderRepository_NextIDFormat(t *testing.T) {
	repo := NewOrderRepository()
	assert.Equal(t, "ORD0001", repo.NextID())
	assert.Equal(t, "ORD0002", repo.NextID())
}

func TestOrderRepository_NextIDUniqueUnderConcurrency(t *testing.T) {
	repo := NewOrderRepository()

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := repo.NextID()
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 200)
}

func TestOrderRepository_CreateAndList(t *testing.T) {
	repo := NewOrderRepository()
	for _, id := range []string{"ORD0002", "ORD0001"} {
		require.NoError(t, repo.Create(models.Order{OrderID: id, Status: models.OrderStatusConfirmed}))
	}

	orders := repo.GetAll()
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD0002", orders[0].OrderID)

	err := repo.Create(models.Order{OrderID: "ORD0001"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestOrderRepository_Update(t *testing.T) {
	repo := NewOrderRepository()
	require.NoError(t, repo.Create(models.Order{OrderID: "ORD0001", Status: models.OrderStatusConfirmed}))

	now := time.Now().UTC()
	updated, err := repo.Update("ORD0001", func(o *models.Order) error {
		o.Status = models.OrderStatusCancelled
		o.CancelledAt = &now
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.IsCancelled())

	stored, err := repo.GetByID("ORD0001")
	require.NoError(t, err)
	assert.Equal(t, now, *stored.CancelledAt)

	_, err = repo.Update("ORD9999", func(*models.Order) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}
