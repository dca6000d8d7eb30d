package backtest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/linelogic/internal/models"
)

// Bet is a decision together with its settlement
type Bet struct {
	Decision   models.StakeDecision `json:"decision"`
	Settlement models.Settlement    `json:"settlement"`
}

// PnL returns the realized profit or loss
func (b Bet) PnL() float64 {
	return b.Settlement.ProfitLoss.InexactFloat64()
}

// Forecast is the home-win probability issued for a completed game
type Forecast struct {
	GameID  string  `json:"game_id"`
	Prob    float64 `json:"prob"`
	HomeWin bool    `json:"home_win"`
}

// State tracks current backtest state
type State struct {
	InitialBankroll decimal.Decimal
	Bankroll        decimal.Decimal
	PeakBankroll    decimal.Decimal
	Staked          decimal.Decimal
	Bets            []Bet
	Forecasts       []Forecast
	EquityCurve     EquityCurve
	DailyPnL        map[time.Time]float64
	dailyBets       map[time.Time]int
	BettingDays     int
	SkippedGames    int
}

// NewState initializes backtest state with an opening equity point
func NewState(initialBankroll decimal.Decimal, start time.Time) *State {
	state := &State{
		InitialBankroll: initialBankroll,
		Bankroll:        initialBankroll,
		PeakBankroll:    initialBankroll,
		Staked:          decimal.Zero,
		Bets:            []Bet{},
		Forecasts:       []Forecast{},
		EquityCurve:     EquityCurve{},
		DailyPnL:        make(map[time.Time]float64),
		dailyBets:       make(map[time.Time]int),
	}
	state.recordEquityPoint(models.Day(start))
	return state
}

// CurrentBankroll lets the state size stakes in the recommendation pipeline
func (s *State) CurrentBankroll(ctx context.Context) (decimal.Decimal, error) {
	return s.Bankroll, nil
}

// Settle applies a settled bet to the bankroll
func (s *State) Settle(bet Bet) {
	s.Bankroll = s.Bankroll.Add(bet.Settlement.ProfitLoss)
	if s.Bankroll.GreaterThan(s.PeakBankroll) {
		s.PeakBankroll = s.Bankroll
	}
	s.Staked = s.Staked.Add(bet.Decision.StakeAmount)
	s.Bets = append(s.Bets, bet)

	day := models.Day(bet.Decision.GameDate)
	s.DailyPnL[day] += bet.PnL()
	s.dailyBets[day]++
}

// CloseDay records the end-of-day equity point
func (s *State) CloseDay(day time.Time) {
	s.BettingDays++
	s.recordEquityPoint(models.Day(day))
}

// GetCurrentDrawdown calculates peak-to-trough drawdown
func (s *State) GetCurrentDrawdown() float64 {
	if s.PeakBankroll.IsZero() {
		return 0
	}
	drawdown := s.PeakBankroll.Sub(s.Bankroll).Div(s.PeakBankroll).InexactFloat64()
	if drawdown < 0 {
		return 0
	}
	return drawdown
}

// recordEquityPoint appends the bankroll as it stands after day's settlements
func (s *State) recordEquityPoint(day time.Time) {
	s.EquityCurve = append(s.EquityCurve, EquityPoint{
		Day:      day,
		Bankroll: s.Bankroll.InexactFloat64(),
		Drawdown: s.GetCurrentDrawdown(),
		DailyPnL: s.DailyPnL[day],
		Bets:     s.dailyBets[day],
	})
}
