// Package metrics provides the centralized Prometheus metrics registry.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linelogic"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	GamesProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "games_processed_total",
		Help:      "Total number of games run through the feature pipeline",
	}, []string{"mode"})
	GamesSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "games_skipped_total",
		Help:      "Total number of games skipped by reason",
	}, []string{"reason"})
	RecommendationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendations_total",
		Help:      "Total number of stake decisions emitted",
	}, []string{"side"})
	NoPicksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "no_picks_total",
		Help:      "Total number of selections declined by reason",
	}, []string{"reason"})
	SettlementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Total number of settled decisions by outcome",
	}, []string{"outcome"})
	PublishFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_failures_total",
		Help:      "Total number of failed decision publishes by sink",
	}, []string{"sink"})
	IngestedRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingested_records_total",
		Help:      "Total number of provider records ingested by kind and status",
	}, []string{"kind", "status"})
)

// Gauge metrics
var (
	CurrentBankroll = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_bankroll",
		Help:      "Current bankroll in currency units",
	})
	DailyExposure = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daily_exposure",
		Help:      "Total stake recommended for the most recent date",
	})
	RatedTeams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rated_teams",
		Help:      "Number of teams with a stored rating",
	})
	RealizedPnL = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realized_pnl",
		Help:      "Cumulative realized profit and loss",
	})
)

// Histogram metrics
var (
	PipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of pipeline runs in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	EdgeDistribution = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "edge",
		Help:      "Distribution of edges on qualifying selections",
		Buckets:   []float64{0.01, 0.02, 0.03, 0.05, 0.075, 0.1, 0.15, 0.2},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(GamesProcessedTotal)
		registry.MustRegister(GamesSkippedTotal)
		registry.MustRegister(RecommendationsTotal)
		registry.MustRegister(NoPicksTotal)
		registry.MustRegister(SettlementsTotal)
		registry.MustRegister(PublishFailuresTotal)
		registry.MustRegister(IngestedRecordsTotal)

		registry.MustRegister(CurrentBankroll)
		registry.MustRegister(DailyExposure)
		registry.MustRegister(RatedTeams)
		registry.MustRegister(RealizedPnL)

		registry.MustRegister(PipelineDuration)
		registry.MustRegister(EdgeDistribution)

		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestROI)
		registry.MustRegister(BacktestBrier)
		registry.MustRegister(BacktestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler. It also serves collectors
// registered on the default registry by other packages.
func Handler() http.Handler {
	return promhttp.HandlerFor(
		prometheus.Gatherers{GetRegistry(), prometheus.DefaultGatherer},
		promhttp.HandlerOpts{},
	)
}

// RecordGamesProcessed counts games run through the pipeline in a mode such
// as "replay" or "extract".
func RecordGamesProcessed(mode string, n int) {
	GamesProcessedTotal.WithLabelValues(mode).Add(float64(n))
}

// RecordGameSkipped records a skipped game.
func RecordGameSkipped(reason string) {
	GamesSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordRecommendation records an emitted decision and its edge.
func RecordRecommendation(side string, edge float64) {
	RecommendationsTotal.WithLabelValues(side).Inc()
	EdgeDistribution.Observe(edge)
}

// RecordNoPick records a declined selection.
func RecordNoPick(reason string) {
	NoPicksTotal.WithLabelValues(reason).Inc()
}

// RecordSettlement records a settled decision.
func RecordSettlement(outcome string) {
	SettlementsTotal.WithLabelValues(outcome).Inc()
}

// RecordPublishFailure records a sink that failed to accept decisions.
func RecordPublishFailure(sink string) {
	PublishFailuresTotal.WithLabelValues(sink).Inc()
}

// RecordIngested counts ingested records, e.g. kind "game" with status
// "stored", "duplicate" or "invalid".
func RecordIngested(kind, status string, n int) {
	if n > 0 {
		IngestedRecordsTotal.WithLabelValues(kind, status).Add(float64(n))
	}
}

// UpdateBankroll updates the current bankroll gauge.
func UpdateBankroll(amount float64) {
	CurrentBankroll.Set(amount)
}

// UpdateDailyExposure updates the daily exposure gauge.
func UpdateDailyExposure(amount float64) {
	DailyExposure.Set(amount)
}

// UpdateRatedTeams updates the rated teams gauge.
func UpdateRatedTeams(n int) {
	RatedTeams.Set(float64(n))
}

// UpdateRealizedPnL updates the realized P&L gauge.
func UpdateRealizedPnL(pnl float64) {
	RealizedPnL.Set(pnl)
}

// RecordPipelineDuration records how long an operation took.
func RecordPipelineDuration(operation string, durationSeconds float64) {
	PipelineDuration.WithLabelValues(operation).Observe(durationSeconds)
}
