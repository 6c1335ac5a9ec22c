package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, matching what clients of the original services expect.
	decimal.MarshalJSONWithoutQuotes = true
}

// StockRecord is the inventory ledger entry for one product.
type StockRecord struct {
	ProductID         string          `json:"product_id"`
	Name              string          `json:"name"`
	UnitPrice         decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"available_quantity"`
	ReservedQuantity  int             `json:"reserved_quantity"`
	LastUpdated       *time.Time      `json:"last_updated,omitempty"`
}

// StockRequest is the body of check, reserve and release calls.
type StockRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required"`
}

type RestockRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CheckResponse struct {
	Available         bool            `json:"available"`
	ProductID         string          `json:"product_id"`
	RequestedQuantity int             `json:"requested_quantity"`
	AvailableQuantity int             `json:"available_quantity"`
	Price             decimal.Decimal `json:"price"`
}

type ReserveResponse struct {
	Success            bool   `json:"success"`
	ProductID          string `json:"product_id"`
	ReservedQuantity   int    `json:"reserved_quantity"`
	RemainingAvailable int    `json:"remaining_available"`
}

type ReleaseResponse struct {
	Success           bool   `json:"success"`
	ProductID         string `json:"product_id"`
	ReleasedQuantity  int    `json:"released_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
}

type RestockResponse struct {
	Success              bool   `json:"success"`
	ProductID            string `json:"product_id"`
	RestockedQuantity    int    `json:"restocked_quantity"`
	NewAvailableQuantity int    `json:"new_available_quantity"`
}

type InventoryList struct {
	Products      []StockRecord `json:"products"`
	TotalProducts int           `json:"total_products"`
}
