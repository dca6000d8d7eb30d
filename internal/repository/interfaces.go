package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/rating"
)

// GameRepository defines the interface for game data access
type GameRepository interface {
	// UpsertGames inserts games or updates their scores by game id
	UpsertGames(ctx context.Context, games []models.GameRecord) error
	// GamesBetween returns games dated in [start, end] ordered by date
	GamesBetween(ctx context.Context, start, end time.Time) ([]models.GameRecord, error)
	GetByID(ctx context.Context, id string) (*models.GameRecord, error)
	Name() string
}

// QuoteRepository defines the interface for market quote snapshots
type QuoteRepository interface {
	InsertQuotes(ctx context.Context, quotes []models.MarketQuote) error
	// QuotesOn returns the latest snapshot per matchup and bookmaker
	QuotesOn(ctx context.Context, date time.Time) ([]models.MarketQuote, error)
	// ClosingQuote returns the last snapshot captured for a matchup
	ClosingQuote(ctx context.Context, date time.Time, home, away string) (*models.MarketQuote, error)
	Name() string
}

// DecisionRepository defines the interface for stake decision data access
type DecisionRepository interface {
	SaveDecisions(ctx context.Context, decisions []models.StakeDecision) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StakeDecision, error)
	GetByDate(ctx context.Context, date time.Time) ([]models.StakeDecision, error)
	// GetOpen returns unsettled decisions for games dated on or before through
	GetOpen(ctx context.Context, through time.Time) ([]models.StakeDecision, error)
}

// SettlementRepository defines the interface for settlement data access
type SettlementRepository interface {
	SaveSettlements(ctx context.Context, settlements []models.Settlement) error
	GetByDecisionID(ctx context.Context, decisionID uuid.UUID) (*models.Settlement, error)
	GetBetween(ctx context.Context, start, end time.Time) ([]models.Settlement, error)
	TotalProfitLoss(ctx context.Context) (decimal.Decimal, error)
}

// CheckpointRepository persists rating checkpoints
type CheckpointRepository interface {
	rating.CheckpointStore
}
