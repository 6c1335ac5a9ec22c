package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/cache"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/client"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/db"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/inventory"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/publisher"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/saga"
)

type orderFixture struct {
	router    *gin.Engine
	ledger    *inventory.Ledger
	inventory *httptest.Server
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	invRouter, ledger := newInventoryRouter(t)
	invServer := httptest.NewServer(invRouter)
	t.Cleanup(invServer.Close)

	orch := saga.New(
		client.NewInventoryClient(invServer.URL, 2*time.Second),
		db.NewOrderRepository(),
		publisher.Nop{},
		zap.NewNop(),
		saga.WithIdempotencyStore(cache.NewMemoryIdempotencyStore(time.Hour)),
	)

	router := gin.New()
	RegisterOrderRoutes(router, NewOrderHandler(orch))
	return &orderFixture{router: router, ledger: ledger, inventory: invServer}
}

func TestOrders_CreateGetCancel(t *testing.T) {
	f := newOrderFixture(t)

	code, order := doJSON(t, f.router, http.MethodPost, "/orders", map[string]any{"product_id": "P001", "quantity": 5})
	require.Equal(t, http.StatusCreated, code, order)
	assert.Equal(t, "ORD0001", order["order_id"])
	assert.Equal(t, "confirmed", order["status"])
	assert.Equal(t, "guest", order["customer_id"])
	assert.EqualValues(t, 4999.95, order["total_price"])

	rec, err := f.ledger.Get("P001")
	require.NoError(t, err)
	assert.Equal(t, 45, rec.AvailableQuantity)
	assert.Equal(t, 5, rec.ReservedQuantity)

	code, got := doJSON(t, f.router, http.MethodGet, "/orders/ORD0001", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, order["created_at"], got["created_at"])

	code, list := doJSON(t, f.router, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, list["total_count"])

	code, cancelled := doJSON(t, f.router, http.MethodDelete, "/orders/ORD0001", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cancelled", cancelled["status"])
	assert.NotEmpty(t, cancelled["cancelled_at"])

	code, again := doJSON(t, f.router, http.MethodDelete, "/orders/ORD0001", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Order already cancelled", again["message"])

	rec, err = f.ledger.Get("P001")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.AvailableQuantity)
	assert.Equal(t, 0, rec.ReservedQuantity)
}

func TestOrders_CreateRejections(t *testing.T) {
	f := newOrderFixture(t)

	code, body := doJSON(t, f.router, http.MethodPost, "/orders", map[string]any{"product_id": "P001", "quantity": 1000})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Insufficient inventory", body["error"])
	assert.EqualValues(t, 50, body["available_quantity"])

	code, _ = doJSON(t, f.router, http.MethodPost, "/orders", map[string]any{"product_id": "P999", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, f.router, http.MethodPost, "/orders", map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, f.router, http.MethodPost, "/orders", map[string]any{"product_id": "P001", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, code)

	code, list := doJSON(t, f.router, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, list["total_count"])
}

func TestOrders_UpstreamUnavailable(t *testing.T) {
	f := newOrderFixture(t)
	f.inventory.Close()

	code, body := doJSON(t, f.router, http.MethodPost, "/orders", map[string]any{"product_id": "P001", "quantity": 1})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "Unable to verify inventory availability", body["error"])
}

func TestOrders_NotFound(t *testing.T) {
	f := newOrderFixture(t)

	code, _ := doJSON(t, f.router, http.MethodGet, "/orders/ORD9999", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = doJSON(t, f.router, http.MethodDelete, "/orders/ORD9999", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOrders_IdempotencyKeyReplays(t *testing.T) {
	f := newOrderFixture(t)
	req := map[string]any{"product_id": "P002", "quantity": 2, "customer_id": "c-42"}

	code, first := doJSON(t, f.router, http.MethodPost, "/orders", req, IdempotencyKeyHeader, "abc")
	require.Equal(t, http.StatusCreated, code)

	code, second := doJSON(t, f.router, http.MethodPost, "/orders", req, IdempotencyKeyHeader, "abc")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, first["order_id"], second["order_id"])

	rec, err := f.ledger.Get("P002")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.ReservedQuantity)
}
