// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	InventoryOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_operations_total",
		Help: "Inventory ledger operations by operation and result.",
	}, []string{"op", "result"})

	AvailableQuantity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inventory_available_quantity",
		Help: "Units sellable now, per product.",
	}, []string{"product_id"})

	ReservedQuantity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inventory_reserved_quantity",
		Help: "Units held by confirmed orders, per product.",
	}, []string{"product_id"})

	SagaSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_saga_steps_total",
		Help: "Order saga remote steps by step and outcome.",
	}, []string{"step", "outcome"})

	Orders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_total",
		Help: "Order transitions by resulting status.",
	}, []string{"status"})

	LedgerDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_drift_total",
		Help: "Detected or reported divergence between the order and inventory ledgers.",
	}, []string{"kind"})
)

// Handler exposes the default registry for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
