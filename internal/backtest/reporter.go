package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Summary summarizes a backtest run
type Summary struct {
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
	FinalCapital   float64   `json:"final_capital"`
	TotalBets      int       `json:"total_bets"`
	ParameterHash  string    `json:"parameter_hash"`
}

// Export is the full result written to disk
type Export struct {
	Summary     Summary          `json:"summary"`
	Result      AggregatedResult `json:"result"`
	Bets        []Bet            `json:"bets"`
	EquityCurve EquityCurve      `json:"equity_curve"`
}

// NewExport assembles an export from a replay state and its aggregate
func NewExport(state *State, result AggregatedResult, params map[string]interface{}) Export {
	m := result.HistoricalReplayMetrics
	return Export{
		Summary: Summary{
			StartDate:      m.StartDate,
			EndDate:        m.EndDate,
			InitialCapital: state.InitialBankroll.InexactFloat64(),
			FinalCapital:   state.Bankroll.InexactFloat64(),
			TotalBets:      len(state.Bets),
			ParameterHash:  HashParameters(params),
		},
		Result:      result,
		Bets:        state.Bets,
		EquityCurve: state.EquityCurve,
	}
}

// GenerateConsoleReport formats metrics for terminal output
func GenerateConsoleReport(result AggregatedResult) string {
	m := result.HistoricalReplayMetrics
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Period: %s to %s (%d betting days)\n",
		m.StartDate.Format("2006-01-02"), m.EndDate.Format("2006-01-02"), m.BettingDays))
	builder.WriteString(fmt.Sprintf("Composite Score: %.2f\n", result.CompositeScore))
	builder.WriteString(fmt.Sprintf("Recommendation: %s\n", result.Recommendation))
	builder.WriteString(fmt.Sprintf("Bets: %d (W %d / L %d / P %d)\n", m.TotalBets, m.WinningBets, m.LosingBets, m.PushedBets))
	builder.WriteString(fmt.Sprintf("Staked: %.2f  Net: %+.2f  ROI: %.2f%%\n", m.TotalStaked, m.NetProfit, m.ROI*100))
	builder.WriteString(fmt.Sprintf("Total Return: %.2f%%\n", m.TotalReturn*100))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %.2f\n", m.SharpeRatio))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", m.MaxDrawdown*100))
	builder.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", m.WinRate*100))
	builder.WriteString(fmt.Sprintf("Profit Factor: %.2f\n", m.ProfitFactor))
	builder.WriteString(fmt.Sprintf("Forecasts: %d  Brier: %.4f  Log Loss: %.4f  Accuracy: %.2f%%\n",
		m.Forecasts, m.Brier, m.LogLoss, m.Accuracy*100))
	if len(result.WalkForwardResult.Windows) > 0 {
		builder.WriteString(fmt.Sprintf("Walk-Forward Windows: %d  Consistency: %.2f\n",
			len(result.WalkForwardResult.Windows), result.WalkForwardResult.ConsistencyScore))
	}
	if result.MonteCarloResult.Iterations > 0 {
		builder.WriteString(fmt.Sprintf("Monte Carlo: mean %.2f%%  P(profit) %.2f  P(ruin) %.4f\n",
			result.MonteCarloResult.MeanReturn*100, result.MonteCarloResult.ProbabilityOfProfit, result.MonteCarloResult.ProbabilityOfRuin))
	}
	return builder.String()
}

// WriteOutputs writes report.json, equity.csv and metrics.csv into dir
func WriteOutputs(export Export, dir string) error {
	if dir == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "equity.csv"), []byte(export.EquityCurve.ToCSV()), 0o644); err != nil {
		return fmt.Errorf("failed to write equity curve: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "metrics.csv"), []byte(metricsCSV(export.Result)), 0o644)
}

func metricsCSV(result AggregatedResult) string {
	m := result.HistoricalReplayMetrics
	return "metric,value\n" +
		fmt.Sprintf("composite_score,%.4f\n", result.CompositeScore) +
		fmt.Sprintf("roi,%.4f\n", m.ROI) +
		fmt.Sprintf("total_return,%.4f\n", m.TotalReturn) +
		fmt.Sprintf("sharpe_ratio,%.4f\n", m.SharpeRatio) +
		fmt.Sprintf("max_drawdown,%.4f\n", m.MaxDrawdown) +
		fmt.Sprintf("win_rate,%.4f\n", m.WinRate) +
		fmt.Sprintf("profit_factor,%.4f\n", m.ProfitFactor) +
		fmt.Sprintf("brier,%.4f\n", m.Brier) +
		fmt.Sprintf("log_loss,%.4f\n", m.LogLoss) +
		fmt.Sprintf("recommendation,%s\n", result.Recommendation)
}
