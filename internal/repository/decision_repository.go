package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/linelogic/internal/database"
	"github.com/yourusername/linelogic/internal/models"
)

const uniqueViolation = "23505"

const decisionColumns = `
	d.id, d.game_id, d.game_date, d.selection, d.side, d.team, d.opponent, d.model_prob,
	d.fair_market_prob, d.market_implied_prob, d.edge, d.american_odds, d.decimal_odds,
	d.kelly_fraction_raw, d.kelly_fraction_applied, d.stake_amount, d.bankroll_at_time,
	d.model_version, d.notes, d.created_at`

// PostgresDecisionRepository implements DecisionRepository for PostgreSQL
type PostgresDecisionRepository struct {
	db *database.DB
}

// NewPostgresDecisionRepository creates a new decision repository
func NewPostgresDecisionRepository(db *database.DB) DecisionRepository {
	return &PostgresDecisionRepository{db: db}
}

// SaveDecisions inserts decisions in one transaction. Decisions are
// immutable, so an existing id is reported as ErrDuplicateKey.
func (r *PostgresDecisionRepository) SaveDecisions(ctx context.Context, decisions []models.StakeDecision) error {
	if len(decisions) == 0 {
		return nil
	}

	query := `
		INSERT INTO stake_decisions (id, game_id, game_date, selection, side, team, opponent, model_prob,
		                             fair_market_prob, market_implied_prob, edge, american_odds, decimal_odds,
		                             kelly_fraction_raw, kelly_fraction_applied, stake_amount, bankroll_at_time,
		                             model_version, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		batch := &pgx.Batch{}
		for _, d := range decisions {
			batch.Queue(query,
				d.ID, d.GameID, models.Day(d.GameDate), d.Selection, d.Side, d.Team, d.Opponent, d.ModelProb,
				d.FairMarketProb, d.MarketImpliedProb, d.Edge, d.AmericanOdds, d.DecimalOdds,
				d.KellyFractionRaw, d.KellyFractionApplied, d.StakeAmount, d.BankrollAtTime,
				d.ModelVersion, d.Notes, d.CreatedAt,
			)
		}

		results := r.db.Querier(txCtx).SendBatch(txCtx, batch)
		defer results.Close()
		for range decisions {
			if _, err := results.Exec(); err != nil {
				return mapWriteError("failed to insert decision", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a decision by ID
func (r *PostgresDecisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StakeDecision, error) {
	query := `SELECT` + decisionColumns + ` FROM stake_decisions d WHERE d.id = $1`

	d, err := scanDecision(r.db.Querier(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return &d, nil
}

// GetByDate retrieves all decisions for games on a date
func (r *PostgresDecisionRepository) GetByDate(ctx context.Context, date time.Time) ([]models.StakeDecision, error) {
	query := `SELECT` + decisionColumns + `
		FROM stake_decisions d
		WHERE d.game_date = $1
		ORDER BY d.created_at ASC
	`
	return r.queryDecisions(ctx, query, models.Day(date))
}

// GetOpen retrieves unsettled decisions dated on or before through
func (r *PostgresDecisionRepository) GetOpen(ctx context.Context, through time.Time) ([]models.StakeDecision, error) {
	query := `SELECT` + decisionColumns + `
		FROM stake_decisions d
		LEFT JOIN settlements s ON s.decision_id = d.id
		WHERE s.id IS NULL AND d.game_date <= $1
		ORDER BY d.game_date ASC, d.created_at ASC
	`
	return r.queryDecisions(ctx, query, models.Day(through))
}

func (r *PostgresDecisionRepository) queryDecisions(ctx context.Context, query string, args ...interface{}) ([]models.StakeDecision, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	decisions := []models.StakeDecision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

func scanDecision(row pgx.Row) (models.StakeDecision, error) {
	var d models.StakeDecision
	err := row.Scan(
		&d.ID, &d.GameID, &d.GameDate, &d.Selection, &d.Side, &d.Team, &d.Opponent, &d.ModelProb,
		&d.FairMarketProb, &d.MarketImpliedProb, &d.Edge, &d.AmericanOdds, &d.DecimalOdds,
		&d.KellyFractionRaw, &d.KellyFractionApplied, &d.StakeAmount, &d.BankrollAtTime,
		&d.ModelVersion, &d.Notes, &d.CreatedAt,
	)
	d.GameDate = models.Day(d.GameDate)
	return d, err
}

func mapWriteError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", msg, models.ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
