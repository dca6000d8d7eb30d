package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/linelogic/internal/database"
	"github.com/yourusername/linelogic/internal/rating"
)

// PostgresCheckpointRepository keeps every rating checkpoint as a JSONB row
// and serves the newest.
type PostgresCheckpointRepository struct {
	db *database.DB
}

// NewPostgresCheckpointRepository creates a new checkpoint repository
func NewPostgresCheckpointRepository(db *database.DB) CheckpointRepository {
	return &PostgresCheckpointRepository{db: db}
}

// Save appends a checkpoint
func (r *PostgresCheckpointRepository) Save(ctx context.Context, cp *rating.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode rating checkpoint: %w", err)
	}

	_, err = r.db.Querier(ctx).Exec(ctx,
		`INSERT INTO rating_checkpoints (checkpoint, saved_at) VALUES ($1, $2)`, data, cp.SavedAt)
	if err != nil {
		return fmt.Errorf("failed to save rating checkpoint: %w", err)
	}
	return nil
}

// Load returns the most recent checkpoint
func (r *PostgresCheckpointRepository) Load(ctx context.Context) (*rating.Checkpoint, error) {
	var data []byte
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT checkpoint FROM rating_checkpoints ORDER BY saved_at DESC, id DESC LIMIT 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rating.ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rating checkpoint: %w", err)
	}

	var cp rating.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse rating checkpoint: %w", err)
	}
	if cp.Ratings == nil {
		cp.Ratings = map[string]float64{}
	}
	return &cp, nil
}
