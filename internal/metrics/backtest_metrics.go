package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by method and status",
	}, []string{"method", "status"})
)

// Backtest gauges
var (
	BacktestROI = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_roi",
		Help:      "Return on investment of the latest backtest run by method",
	}, []string{"method"})
	BacktestBrier = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_brier",
		Help:      "Brier score of the latest backtest run by method",
	}, []string{"method"})
)

// BacktestDuration tracks backtest wall time.
var BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "backtest_duration_seconds",
	Help:      "Duration of backtest runs in seconds",
	Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
})

// RecordBacktestRun records a backtest run event.
// method should be one of: "replay", "walk_forward"
// status should be one of: "success", "failure"
func RecordBacktestRun(method, status string) {
	BacktestRunsTotal.WithLabelValues(method, status).Inc()
}

// RecordBacktestResult records the headline numbers of a finished run.
func RecordBacktestResult(method string, roi, brier, durationSeconds float64) {
	BacktestROI.WithLabelValues(method).Set(roi)
	BacktestBrier.WithLabelValues(method).Set(brier)
	BacktestDuration.Observe(durationSeconds)
}
