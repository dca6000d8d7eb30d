package backtest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yourusername/linelogic/internal/eval"
	"github.com/yourusername/linelogic/internal/models"
)

// Metrics represents backtest performance metrics
type Metrics struct {
	TotalReturn   float64   `json:"total_return"`
	ROI           float64   `json:"roi"`
	CAGR          float64   `json:"cagr"`
	MaxDrawdown   float64   `json:"max_drawdown"`
	SharpeRatio   float64   `json:"sharpe_ratio"`
	SortinoRatio  float64   `json:"sortino_ratio"`
	CalmarRatio   float64   `json:"calmar_ratio"`
	ValueAtRisk95 float64   `json:"var_95"`
	ValueAtRisk99 float64   `json:"var_99"`
	TotalBets     int       `json:"total_bets"`
	WinningBets   int       `json:"winning_bets"`
	LosingBets    int       `json:"losing_bets"`
	PushedBets    int       `json:"pushed_bets"`
	WinRate       float64   `json:"win_rate"`
	ProfitFactor  float64   `json:"profit_factor"`
	AverageWin    float64   `json:"average_win"`
	AverageLoss   float64   `json:"average_loss"`
	Expectancy    float64   `json:"expectancy"`
	LargestWin    float64   `json:"largest_win"`
	LargestLoss   float64   `json:"largest_loss"`
	TotalStaked   float64   `json:"total_staked"`
	NetProfit     float64   `json:"net_profit"`
	AverageEdge   float64   `json:"average_edge"`
	Forecasts     int       `json:"forecasts"`
	Brier         float64   `json:"brier"`
	LogLoss       float64   `json:"log_loss"`
	Accuracy      float64   `json:"accuracy"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	BettingDays   int       `json:"betting_days"`
	SkippedGames  int       `json:"skipped_games"`
}

// CalculateMetrics calculates metrics from backtest state
func CalculateMetrics(state *State, start, end time.Time, riskFreeRate float64) Metrics {
	m := Metrics{
		StartDate: models.Day(start),
		EndDate:   models.Day(end),
	}
	if state == nil || len(state.EquityCurve) == 0 {
		return m
	}
	m.BettingDays = state.BettingDays
	m.SkippedGames = state.SkippedGames

	initial, final := state.EquityCurve.Endpoints()
	if initial > 0 {
		m.TotalReturn = (final - initial) / initial
		m.CAGR = calculateCAGR(initial, final, int(m.EndDate.Sub(m.StartDate).Hours()/24)+1)
	}

	m.MaxDrawdown = state.EquityCurve.MaxDrawdown()
	returns := state.EquityCurve.Returns()
	m.SharpeRatio = calculateSharpeRatio(returns, riskFreeRate)
	m.SortinoRatio = calculateSortinoRatio(returns, riskFreeRate)
	if m.MaxDrawdown > 0 {
		m.CalmarRatio = m.CAGR / m.MaxDrawdown
	}
	m.ValueAtRisk95 = calculateVaR(returns, 0.95)
	m.ValueAtRisk99 = calculateVaR(returns, 0.99)

	m.TotalBets = len(state.Bets)
	m.TotalStaked = state.Staked.InexactFloat64()
	calculateBetStats(state.Bets, &m)
	m.WinRate = calculateWinRate(m.WinningBets, m.WinningBets+m.LosingBets)
	m.ProfitFactor = calculateProfitFactor(state.Bets)
	if m.TotalBets > 0 {
		m.Expectancy = m.NetProfit / float64(m.TotalBets)
	}
	if m.TotalStaked > 0 {
		m.ROI = m.NetProfit / m.TotalStaked
	}

	preds := make([]float64, len(state.Forecasts))
	outcomes := make([]bool, len(state.Forecasts))
	for i, f := range state.Forecasts {
		preds[i], outcomes[i] = f.Prob, f.HomeWin
	}
	if s, err := eval.Summarize(preds, outcomes); err == nil {
		m.Forecasts = s.Count
		m.Brier = s.Brier
		m.LogLoss = s.LogLoss
		m.Accuracy = s.Accuracy
	}

	return m
}

// ToJSON exports metrics to JSON
func (m Metrics) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

func calculateSharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := average(returns)
	std := stddev(returns)
	if std == 0 {
		return 0
	}
	return (mean - riskFreeRate/252.0) / std * math.Sqrt(252)
}

func calculateSortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := average(returns)
	std := downsideStddev(returns)
	if std == 0 {
		return 0
	}
	return (mean - riskFreeRate/252.0) / std * math.Sqrt(252)
}

func calculateProfitFactor(bets []Bet) float64 {
	grossProfit := 0.0
	grossLoss := 0.0
	for _, bet := range bets {
		pl := bet.PnL()
		if pl > 0 {
			grossProfit += pl
		} else {
			grossLoss += math.Abs(pl)
		}
	}
	if grossLoss == 0 {
		if grossProfit > 0 {
			return 999
		}
		return 0
	}
	return grossProfit / grossLoss
}

func calculateCAGR(initial, final float64, days int) float64 {
	if initial <= 0 || final <= 0 || days <= 0 {
		return 0
	}
	years := float64(days) / 365.0
	return math.Pow(final/initial, 1.0/years) - 1.0
}

func calculateVaR(returns []float64, level float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := append([]float64{}, returns...)
	sort.Float64s(sorted)
	index := int(math.Floor((1.0 - level) * float64(len(sorted))))
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func calculateBetStats(bets []Bet, m *Metrics) {
	winSum := 0.0
	lossSum := 0.0
	edgeSum := 0.0
	for _, bet := range bets {
		pl := bet.PnL()
		edgeSum += bet.Decision.Edge
		m.NetProfit += pl
		switch bet.Settlement.Outcome {
		case models.OutcomeWin:
			m.WinningBets++
			winSum += pl
			if pl > m.LargestWin {
				m.LargestWin = pl
			}
		case models.OutcomeLoss:
			m.LosingBets++
			lossSum += pl
			if pl < m.LargestLoss {
				m.LargestLoss = pl
			}
		default:
			m.PushedBets++
		}
	}

	if m.WinningBets > 0 {
		m.AverageWin = winSum / float64(m.WinningBets)
	}
	if m.LosingBets > 0 {
		m.AverageLoss = lossSum / float64(m.LosingBets)
	}
	if len(bets) > 0 {
		m.AverageEdge = edgeSum / float64(len(bets))
	}
}

func calculateWinRate(wins, decided int) float64 {
	if decided == 0 {
		return 0
	}
	return float64(wins) / float64(decided)
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	return mean / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func downsideStddev(values []float64) float64 {
	negatives := make([]float64, 0)
	for _, v := range values {
		if v < 0 {
			negatives = append(negatives, v)
		}
	}
	return stddev(negatives)
}

// HashParameters creates a stable hash for parameter maps
func HashParameters(params map[string]interface{}) string {
	data, _ := json.Marshal(params)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}
