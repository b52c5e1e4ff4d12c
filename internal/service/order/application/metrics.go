// internal/service/order/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Number of orders that completed the creation saga.",
	})
	orderFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_failures_total",
		Help: "Number of order creation sagas that failed and were compensated.",
	})
	compensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_compensations_total",
		Help: "Number of successful multi-resource compensations.",
	})
	compensationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_compensation_failures_total",
		Help: "Number of compensations with at least one failed sub-step.",
	})
	expiredOrdersCanceledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "expired_orders_canceled_total",
		Help: "Number of pending orders canceled by the expiration sweeper.",
	})
	sweepFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_sweep_failures_total",
		Help: "Number of per-order failures during expiration sweeps.",
	})
)
