package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts successfully committed orders.
	OrdersPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Total number of orders committed",
		},
	)

	// OrdersFailed counts rejected or aborted placements by reason.
	OrdersFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_failed_total",
			Help: "Total number of failed order placements",
		},
		[]string{"reason"},
	)

	// OrderAmount tracks committed order totals.
	OrderAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_amount",
			Help:    "Order grand totals",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000},
		},
	)
)
