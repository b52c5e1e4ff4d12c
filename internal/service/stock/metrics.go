// internal/service/stock/metrics.go
package stock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_reservations_total",
		Help: "Number of successful stock reservations.",
	})
	reservationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservation_failures_total",
		Help: "Number of failed stock reservations by reason.",
	}, []string{"reason"})
	releasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_releases_total",
		Help: "Number of stock releases.",
	})
	reconcileCorrectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_reconcile_corrections_total",
		Help: "Number of cache entries overwritten by the reconciler.",
	})
	reconcileSeedsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_reconcile_seeds_total",
		Help: "Number of missing cache entries seeded by the gap-fill sweep.",
	})
)
