package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/saga"
)

// IdempotencyKeyHeader lets clients retry POST /orders safely.
const IdempotencyKeyHeader = "Idempotency-Key"

type OrderHandler struct {
	orchestrator *saga.Orchestrator
}

func NewOrderHandler(orchestrator *saga.Orchestrator) *OrderHandler {
	return &OrderHandler{orchestrator: orchestrator}
}

func RegisterOrderRoutes(r gin.IRouter, h *OrderHandler) {
	r.GET("/health", h.HealthCheck)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:order_id", h.GetOrder)
	r.POST("/orders", h.CreateOrder)
	r.DELETE("/orders/:order_id", h.CancelOrder)
}

// HealthCheck returns server status
func (h *OrderHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "order-service"})
}

// ListOrders returns all orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders := h.orchestrator.ListOrders()
	c.JSON(http.StatusOK, models.OrderList{Orders: orders, TotalCount: len(orders)})
}

// GetOrder returns a single order
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orchestrator.GetOrder(c.Param("order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CreateOrder checks and reserves stock, then records the order
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: product_id, quantity"})
		return
	}

	res, err := h.orchestrator.CreateOrder(c.Request.Context(), saga.CreateOrderInput{
		ProductID:      req.ProductID,
		Quantity:       *req.Quantity,
		CustomerID:     req.CustomerID,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if res.Replayed {
		c.JSON(http.StatusOK, res.Order)
		return
	}
	c.JSON(http.StatusCreated, res.Order)
}

// CancelOrder releases the order's stock and marks it cancelled
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	res, err := h.orchestrator.CancelOrder(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if res.AlreadyCancelled {
		c.JSON(http.StatusOK, gin.H{"message": "Order already cancelled"})
		return
	}
	c.JSON(http.StatusOK, res.Order)
}
