package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BarsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_bars_processed_total", Help: "Bars replayed through the engine"},
		[]string{"symbol"},
	)
	OrdersSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_orders_submitted_total", Help: "Orders submitted to the executor"},
		[]string{"symbol", "side"},
	)
	OrdersFilledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_orders_filled_total", Help: "Orders filled by the executor"},
		[]string{"symbol", "side"},
	)
	SignalsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_signals_rejected_total", Help: "Signals rejected by the admission gate"},
		[]string{"symbol"},
	)
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_runs_total", Help: "Completed backtest runs by outcome"},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		BarsProcessedTotal,
		OrdersSubmittedTotal,
		OrdersFilledTotal,
		SignalsRejectedTotal,
		RunsTotal,
	)
}

// Handler exposes the default registry for mounting on a router.
func Handler() http.Handler {
	return promhttp.Handler()
}
