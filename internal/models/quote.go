package models

import "time"

// MarketQuote is a moneyline/spread/total snapshot for one matchup. Implied
// probabilities still carry the bookmaker margin.
type MarketQuote struct {
	GameID          string    `db:"game_id" json:"game_id"`
	Date            time.Time `db:"game_date" json:"date"`
	HomeTeam        string    `db:"home_team" json:"home_team"`
	AwayTeam        string    `db:"away_team" json:"away_team"`
	Bookmaker       string    `db:"bookmaker" json:"bookmaker"`
	HomePrice       int       `db:"home_price" json:"home_price"`
	AwayPrice       int       `db:"away_price" json:"away_price"`
	HomeImpliedProb float64   `db:"home_implied_prob" json:"home_implied_prob"`
	AwayImpliedProb float64   `db:"away_implied_prob" json:"away_implied_prob"`
	Spread          float64   `db:"spread" json:"spread"`
	Total           float64   `db:"total" json:"total"`
	CapturedAt      time.Time `db:"captured_at" json:"captured_at"`
}

// Key returns the matchup key used to join quotes with games.
func (q MarketQuote) Key() string {
	return MatchupKey(q.Date, q.HomeTeam, q.AwayTeam)
}

// Overround returns the summed implied probability minus one.
func (q MarketQuote) Overround() float64 {
	return q.HomeImpliedProb + q.AwayImpliedProb - 1
}
