package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartLines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_cart_lines",
		Help: "Number of distinct lines in the cart.",
	})

	cartItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_cart_items",
		Help: "Total quantity of items in the cart.",
	})

	cartEstimatedTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_cart_estimated_total",
		Help: "Client-side estimate of the cart total.",
	})

	checkoutOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_outcomes_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"stage", "outcome"})

	orderActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_actions_total",
		Help: "Order cancel and delete attempts by outcome.",
	}, []string{"action", "outcome"})
)

// CartGauges returns a cart observer that keeps the cart gauges current.
func CartGauges(cart *CartService) func() {
	return func() {
		snap := cart.Snapshot()
		total, _ := snap.TotalAmount().Float64()
		cartLines.Set(float64(snap.LineCount()))
		cartItems.Set(float64(snap.ItemCount()))
		cartEstimatedTotal.Set(total)
	}
}
