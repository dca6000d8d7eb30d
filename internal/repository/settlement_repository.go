package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/yourusername/linelogic/internal/database"
	"github.com/yourusername/linelogic/internal/models"
)

// PostgresSettlementRepository implements SettlementRepository for PostgreSQL
type PostgresSettlementRepository struct {
	db *database.DB
}

// NewPostgresSettlementRepository creates a new settlement repository
func NewPostgresSettlementRepository(db *database.DB) SettlementRepository {
	return &PostgresSettlementRepository{db: db}
}

// SaveSettlements inserts settlements in one transaction. A decision can be
// settled once; a second attempt returns ErrAlreadySettled.
func (r *PostgresSettlementRepository) SaveSettlements(ctx context.Context, settlements []models.Settlement) error {
	if len(settlements) == 0 {
		return nil
	}

	query := `
		INSERT INTO settlements (id, decision_id, outcome, home_score, away_score, profit_loss, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		batch := &pgx.Batch{}
		for _, s := range settlements {
			batch.Queue(query, s.ID, s.DecisionID, s.Outcome, s.HomeScore, s.AwayScore, s.ProfitLoss, s.SettledAt)
		}

		results := r.db.Querier(txCtx).SendBatch(txCtx, batch)
		defer results.Close()
		for range settlements {
			if _, err := results.Exec(); err != nil {
				err = mapWriteError("failed to insert settlement", err)
				if errors.Is(err, models.ErrDuplicateKey) {
					return fmt.Errorf("%w: %v", models.ErrAlreadySettled, err)
				}
				return err
			}
		}
		return nil
	})
}

// GetByDecisionID retrieves the settlement for a decision
func (r *PostgresSettlementRepository) GetByDecisionID(ctx context.Context, decisionID uuid.UUID) (*models.Settlement, error) {
	query := `
		SELECT id, decision_id, outcome, home_score, away_score, profit_loss, settled_at
		FROM settlements WHERE decision_id = $1
	`

	s := &models.Settlement{}
	err := r.db.Querier(ctx).QueryRow(ctx, query, decisionID).Scan(
		&s.ID, &s.DecisionID, &s.Outcome, &s.HomeScore, &s.AwayScore, &s.ProfitLoss, &s.SettledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return s, nil
}

// GetBetween retrieves settlements recorded in a time range
func (r *PostgresSettlementRepository) GetBetween(ctx context.Context, start, end time.Time) ([]models.Settlement, error) {
	query := `
		SELECT id, decision_id, outcome, home_score, away_score, profit_loss, settled_at
		FROM settlements
		WHERE settled_at >= $1 AND settled_at <= $2
		ORDER BY settled_at ASC
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	settlements := []models.Settlement{}
	for rows.Next() {
		var s models.Settlement
		if err := rows.Scan(&s.ID, &s.DecisionID, &s.Outcome, &s.HomeScore, &s.AwayScore, &s.ProfitLoss, &s.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}

// TotalProfitLoss sums realized profit and loss across all settlements
func (r *PostgresSettlementRepository) TotalProfitLoss(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Querier(ctx).QueryRow(ctx, `SELECT COALESCE(SUM(profit_loss), 0) FROM settlements`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum profit and loss: %w", err)
	}
	return total, nil
}
