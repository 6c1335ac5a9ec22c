package saga_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/client"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/db"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/handlers"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/inventory"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/publisher"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/saga"
)

func startInventory(t *testing.T) (*inventory.Ledger, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	records, err := inventory.LoadSeed("")
	require.NoError(t, err)
	ledger := inventory.NewLedger(db.NewStockRepository(), zap.NewNop())
	require.NoError(t, ledger.Seed(records))

	router := gin.New()
	handlers.RegisterInventoryRoutes(router, handlers.NewInventoryHandler(ledger))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return ledger, srv
}

func newOrchestrator(url string) *saga.Orchestrator {
	return saga.New(client.NewInventoryClient(url, 2*time.Second), db.NewOrderRepository(), publisher.Nop{}, zap.NewNop())
}

func TestSaga_CreateThenCancelRestoresStock(t *testing.T) {
	ledger, srv := startInventory(t)
	orch := newOrchestrator(srv.URL)
	ctx := context.Background()

	res, err := orch.CreateOrder(ctx, saga.CreateOrderInput{ProductID: "P001", Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, "4999.95", res.Order.TotalPrice.String())

	rec, err := ledger.Get("P001")
	require.NoError(t, err)
	assert.Equal(t, 45, rec.AvailableQuantity)
	assert.Equal(t, 5, rec.ReservedQuantity)

	cancelled, err := orch.CancelOrder(ctx, res.Order.OrderID)
	require.NoError(t, err)
	assert.True(t, cancelled.Order.IsCancelled())

	rec, err = ledger.Get("P001")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.AvailableQuantity)
	assert.Equal(t, 0, rec.ReservedQuantity)
}

func TestSaga_InsufficientStockChangesNothing(t *testing.T) {
	ledger, srv := startInventory(t)
	orch := newOrchestrator(srv.URL)

	_, err := orch.CreateOrder(context.Background(), saga.CreateOrderInput{ProductID: "P001", Quantity: 1000})
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.Empty(t, orch.ListOrders())

	rec, err := ledger.Get("P001")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.AvailableQuantity)
	assert.Equal(t, 0, rec.ReservedQuantity)
}

func TestSaga_ConcurrentOrdersNeverOversell(t *testing.T) {
	ledger, srv := startInventory(t)
	orch := newOrchestrator(srv.URL)

	const (
		workers  = 20
		quantity = 4
		stock    = 30 // P004
	)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orch.CreateOrder(context.Background(), saga.CreateOrderInput{ProductID: "P004", Quantity: quantity})
			if err == nil {
				succeeded.Add(1)
				return
			}
			assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err), err.Error())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(stock/quantity), succeeded.Load())
	assert.Len(t, orch.ListOrders(), stock/quantity)

	rec, err := ledger.Get("P004")
	require.NoError(t, err)
	assert.Equal(t, stock%quantity, rec.AvailableQuantity)
	assert.Equal(t, (stock/quantity)*quantity, rec.ReservedQuantity)
}

func TestSaga_CancelWithInventoryDownStillCancels(t *testing.T) {
	ledger, srv := startInventory(t)
	orch := newOrchestrator(srv.URL)

	res, err := orch.CreateOrder(context.Background(), saga.CreateOrderInput{ProductID: "P003", Quantity: 10})
	require.NoError(t, err)
	srv.Close()

	cancelled, err := orch.CancelOrder(context.Background(), res.Order.OrderID)
	require.NoError(t, err)
	assert.True(t, cancelled.Order.IsCancelled())

	// The release never arrived: the units stay reserved.
	rec, err := ledger.Get("P003")
	require.NoError(t, err)
	assert.Equal(t, 10, rec.ReservedQuantity)
}
