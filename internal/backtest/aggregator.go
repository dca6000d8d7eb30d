package backtest

import (
	"encoding/json"
	"math"
)

// AggregatedResult represents combined backtest outcomes
type AggregatedResult struct {
	HistoricalReplayMetrics Metrics            `json:"historical_replay_metrics"`
	MonteCarloResult        MonteCarloResult   `json:"monte_carlo_result"`
	WalkForwardResult       WalkForwardResult  `json:"walk_forward_result"`
	CompositeScore          float64            `json:"composite_score"`
	Weights                 AggregationWeights `json:"weights"`
	Recommendation          string             `json:"recommendation"`
	Features                map[string]float64 `json:"features"`
}

// AggregationWeights define weighting per method
type AggregationWeights struct {
	HistoricalReplay float64 `json:"historical_replay"`
	MonteCarlo       float64 `json:"monte_carlo"`
	WalkForward      float64 `json:"walk_forward"`
}

// DefaultWeights favours the realized replay
func DefaultWeights() AggregationWeights {
	return AggregationWeights{HistoricalReplay: 0.5, MonteCarlo: 0.2, WalkForward: 0.3}
}

// AggregateResults aggregates results with weights
func AggregateResults(historical Metrics, monteCarlo MonteCarloResult, walkForward WalkForwardResult, weights AggregationWeights) AggregatedResult {
	historicalScore := CalculateCompositeScore(historical)
	monteCarloScore := normalize(monteCarlo.MeanReturn, -0.5, 1.0)
	walkForwardScore := normalize(walkForward.AggregatedMetrics.ROI, -0.1, 0.1)
	composite := historicalScore*weights.HistoricalReplay + monteCarloScore*weights.MonteCarlo + walkForwardScore*weights.WalkForward

	return AggregatedResult{
		HistoricalReplayMetrics: historical,
		MonteCarloResult:        monteCarlo,
		WalkForwardResult:       walkForward,
		CompositeScore:          composite,
		Weights:                 weights,
		Recommendation:          GenerateRecommendation(composite, walkForward.ConsistencyScore, historical.ROI, walkForward.AggregatedMetrics.ROI),
		Features:                extractFeatures(historical, monteCarlo, walkForward),
	}
}

// CalculateCompositeScore scores a replay in [0, 1]. Forecast quality counts
// alongside returns: a Brier of 0.25 is a coin flip.
func CalculateCompositeScore(m Metrics) float64 {
	sharpeScore := normalize(m.SharpeRatio, -2, 3)
	roiScore := normalize(m.ROI, -0.1, 0.1)
	profitFactorScore := normalize(m.ProfitFactor, 0, 3)
	drawdownPenalty := 1.0 - normalize(m.MaxDrawdown, 0, 0.5)
	brierScore := 1.0 - normalize(m.Brier, 0.18, 0.25)

	weighted := 0.0
	weighted += sharpeScore * 0.25
	weighted += roiScore * 0.25
	weighted += profitFactorScore * 0.15
	weighted += drawdownPenalty * 0.15
	weighted += brierScore * 0.20
	return weighted
}

// GenerateRecommendation determines whether the configuration is acceptable
func GenerateRecommendation(score, consistency, historicalROI, walkForwardROI float64) string {
	if score > 0.7 && historicalROI > 0 && walkForwardROI > 0 && consistency > 0.6 {
		return "ACCEPT"
	}
	if score < 0.4 || historicalROI < 0 || walkForwardROI < 0 || consistency < 0.4 {
		return "REJECT"
	}
	return "NEEDS_REVIEW"
}

// ToJSON exports the aggregated result
func (a AggregatedResult) ToJSON() string {
	data, _ := json.Marshal(a)
	return string(data)
}

func extractFeatures(h Metrics, mc MonteCarloResult, wf WalkForwardResult) map[string]float64 {
	return map[string]float64{
		"roi":               h.ROI,
		"total_return":      h.TotalReturn,
		"sharpe_ratio":      h.SharpeRatio,
		"max_drawdown":      h.MaxDrawdown,
		"profit_factor":     h.ProfitFactor,
		"win_rate":          h.WinRate,
		"brier":             h.Brier,
		"log_loss":          h.LogLoss,
		"monte_carlo_var95": mc.VaR95,
		"monte_carlo_ruin":  mc.ProbabilityOfRuin,
		"consistency_score": wf.ConsistencyScore,
	}
}

func normalize(value, min, max float64) float64 {
	if max-min == 0 {
		return 0
	}
	v := (value - min) / (max - min)
	return math.Max(0, math.Min(1, v))
}
