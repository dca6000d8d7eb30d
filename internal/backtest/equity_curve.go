package backtest

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yourusername/linelogic/internal/models"
)

// EquityPoint is the bankroll at the close of one slate
type EquityPoint struct {
	Day      time.Time `json:"day"`
	Bankroll float64   `json:"bankroll"`
	Drawdown float64   `json:"drawdown"`
	DailyPnL float64   `json:"daily_pnl"`
	Bets     int       `json:"bets"`
}

// EquityCurve is the day-by-day bankroll history of a backtest
type EquityCurve []EquityPoint

// Returns gives slate-over-slate bankroll returns. A zero bankroll yields a
// zero return rather than a division by zero.
func (e EquityCurve) Returns() []float64 {
	if len(e) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		prev := e[i-1].Bankroll
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (e[i].Bankroll-prev)/prev)
	}
	return returns
}

// MaxDrawdown is the largest peak-to-trough fall as a fraction of the peak.
func (e EquityCurve) MaxDrawdown() float64 {
	worst, peak := 0.0, 0.0
	for _, p := range e {
		peak = math.Max(peak, p.Bankroll)
		if peak == 0 {
			continue
		}
		worst = math.Max(worst, (peak-p.Bankroll)/peak)
	}
	return worst
}

// Endpoints returns the opening and closing bankroll.
func (e EquityCurve) Endpoints() (float64, float64) {
	if len(e) == 0 {
		return 0, 0
	}
	return e[0].Bankroll, e[len(e)-1].Bankroll
}

// ToCSV renders the curve with one row per slate.
func (e EquityCurve) ToCSV() string {
	var b strings.Builder
	b.WriteString("date,bankroll,drawdown,daily_pnl,bets\n")
	for _, p := range e {
		fmt.Fprintf(&b, "%s,%.2f,%.6f,%.2f,%d\n",
			p.Day.Format(models.DateLayout), p.Bankroll, p.Drawdown, p.DailyPnL, p.Bets)
	}
	return b.String()
}
