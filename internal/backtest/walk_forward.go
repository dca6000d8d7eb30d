package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/linelogic/internal/metrics"
)

// WalkForwardConfig configures walk-forward validation
type WalkForwardConfig struct {
	Windows          int
	MinBetsPerWindow int
}

// WalkForwardWindow represents one out-of-sample window
type WalkForwardWindow struct {
	WindowID int       `json:"window_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Metrics  Metrics   `json:"metrics"`
}

// WalkForwardResult represents walk-forward validation result
type WalkForwardResult struct {
	Windows           []WalkForwardWindow `json:"windows"`
	AggregatedMetrics Metrics             `json:"aggregated_metrics"`
	ConsistencyScore  float64             `json:"consistency_score"`
}

// RunWalkForward splits the configured range into consecutive windows and
// replays each with a fresh bankroll. Ratings always come from the games
// preceding a window, so every window is out of sample.
func RunWalkForward(ctx context.Context, engine *Engine, cfg WalkForwardConfig) (WalkForwardResult, error) {
	if engine == nil {
		return WalkForwardResult{}, fmt.Errorf("engine is required")
	}
	if cfg.Windows <= 0 {
		cfg.Windows = 1
	}

	start := engine.config.StartDate
	end := engine.config.EndDate
	totalDays := int(end.Sub(start).Hours()/24) + 1
	if cfg.Windows > totalDays {
		cfg.Windows = totalDays
	}
	size := totalDays / cfg.Windows

	windows := []WalkForwardWindow{}
	for i := 0; i < cfg.Windows; i++ {
		wStart := start.AddDate(0, 0, i*size)
		wEnd := wStart.AddDate(0, 0, size-1)
		if i == cfg.Windows-1 {
			wEnd = end
		}

		state, m, err := engine.Run(ctx, wStart, wEnd)
		if err != nil {
			metrics.RecordBacktestRun("walk_forward", "error")
			return WalkForwardResult{}, fmt.Errorf("window %d: %w", i+1, err)
		}
		if cfg.MinBetsPerWindow > 0 && len(state.Bets) < cfg.MinBetsPerWindow {
			continue
		}
		windows = append(windows, WalkForwardWindow{
			WindowID: i + 1,
			Start:    wStart,
			End:      wEnd,
			Metrics:  m,
		})
	}

	result := WalkForwardResult{
		Windows:           windows,
		AggregatedMetrics: aggregateWalkForward(windows),
		ConsistencyScore:  CalculateConsistency(windows),
	}
	metrics.RecordBacktestRun("walk_forward", "success")
	return result, nil
}

// CalculateConsistency calculates percentage of profitable windows
func CalculateConsistency(windows []WalkForwardWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	profitable := 0
	for _, w := range windows {
		if w.Metrics.TotalReturn > 0 {
			profitable++
		}
	}
	return float64(profitable) / float64(len(windows))
}

func aggregateWalkForward(windows []WalkForwardWindow) Metrics {
	if len(windows) == 0 {
		return Metrics{}
	}
	m := Metrics{
		StartDate: windows[0].Start,
		EndDate:   windows[len(windows)-1].End,
	}
	for _, w := range windows {
		m.TotalReturn += w.Metrics.TotalReturn
		m.ROI += w.Metrics.ROI
		m.SharpeRatio += w.Metrics.SharpeRatio
		m.MaxDrawdown += w.Metrics.MaxDrawdown
		m.Brier += w.Metrics.Brier
		m.TotalBets += w.Metrics.TotalBets
	}
	n := float64(len(windows))
	m.TotalReturn /= n
	m.ROI /= n
	m.SharpeRatio /= n
	m.MaxDrawdown /= n
	m.Brier /= n
	return m
}

// ToJSON exports the walk-forward result
func (w WalkForwardResult) ToJSON() string {
	data, _ := json.Marshal(w)
	return string(data)
}
