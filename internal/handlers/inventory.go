package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/inventory"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

type InventoryHandler struct {
	ledger *inventory.Ledger
}

func NewInventoryHandler(ledger *inventory.Ledger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

func RegisterInventoryRoutes(r gin.IRouter, h *InventoryHandler) {
	r.GET("/health", h.HealthCheck)
	r.GET("/inventory", h.ListInventory)
	r.GET("/inventory/:product_id", h.GetProduct)
	r.POST("/inventory/check", h.CheckAvailability)
	r.POST("/inventory/reserve", h.Reserve)
	r.POST("/inventory/release", h.Release)
	r.POST("/inventory/:product_id/restock", h.Restock)
}

// HealthCheck returns server status
func (h *InventoryHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "inventory-service"})
}

// ListInventory returns every product and its stock levels
func (h *InventoryHandler) ListInventory(c *gin.Context) {
	products := h.ledger.List()
	c.JSON(http.StatusOK, models.InventoryList{Products: products, TotalProducts: len(products)})
}

// GetProduct returns a single product
func (h *InventoryHandler) GetProduct(c *gin.Context) {
	product, err := h.ledger.Get(c.Param("product_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *InventoryHandler) CheckAvailability(c *gin.Context) {
	req, ok := bindStockRequest(c)
	if !ok {
		return
	}

	res, err := h.ledger.Check(req.ProductID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CheckResponse{
		Available:         res.Available,
		ProductID:         req.ProductID,
		RequestedQuantity: *req.Quantity,
		AvailableQuantity: res.AvailableQuantity,
		Price:             res.UnitPrice,
	})
}

func (h *InventoryHandler) Reserve(c *gin.Context) {
	req, ok := bindStockRequest(c)
	if !ok {
		return
	}

	rec, err := h.ledger.Reserve(req.ProductID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ReserveResponse{
		Success:            true,
		ProductID:          req.ProductID,
		ReservedQuantity:   *req.Quantity,
		RemainingAvailable: rec.AvailableQuantity,
	})
}

func (h *InventoryHandler) Release(c *gin.Context) {
	req, ok := bindStockRequest(c)
	if !ok {
		return
	}

	rec, err := h.ledger.Release(req.ProductID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ReleaseResponse{
		Success:           true,
		ProductID:         req.ProductID,
		ReleasedQuantity:  *req.Quantity,
		AvailableQuantity: rec.AvailableQuantity,
	})
}

func (h *InventoryHandler) Restock(c *gin.Context) {
	var req models.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required field: quantity"})
		return
	}

	productID := c.Param("product_id")
	rec, err := h.ledger.Restock(productID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RestockResponse{
		Success:              true,
		ProductID:            productID,
		RestockedQuantity:    *req.Quantity,
		NewAvailableQuantity: rec.AvailableQuantity,
	})
}

func bindStockRequest(c *gin.Context) (models.StockRequest, bool) {
	var req models.StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: product_id, quantity"})
		return req, false
	}
	return req, true
}
