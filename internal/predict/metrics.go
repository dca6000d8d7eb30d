package predict

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionsTotal tracks predictions served
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linelogic",
			Name:      "model_predictions_total",
			Help:      "Total number of model predictions made",
		},
		[]string{"stage"},
	)

	// CacheLookupsTotal tracks prediction cache lookups
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linelogic",
			Name:      "model_cache_lookups_total",
			Help:      "Total number of prediction cache lookups",
		},
		[]string{"result"},
	)

	// PredictionLatency tracks model prediction latency
	PredictionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "linelogic",
			Name:      "model_prediction_latency_seconds",
			Help:      "Model prediction latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model_type"},
	)

	// PredictionErrorsTotal tracks failed predictions
	PredictionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linelogic",
			Name:      "model_prediction_errors_total",
			Help:      "Total number of failed model predictions",
		},
		[]string{"model_version", "reason"},
	)

	// CacheHitRatio tracks the prediction cache hit ratio
	CacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "linelogic",
			Name:      "model_cache_hit_ratio",
			Help:      "Prediction cache hit ratio",
		},
	)
)
