package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/linelogic/internal/database"
	"github.com/yourusername/linelogic/internal/models"
)

// PostgresGameRepository implements GameRepository for PostgreSQL
type PostgresGameRepository struct {
	db *database.DB
}

// NewPostgresGameRepository creates a new game repository
func NewPostgresGameRepository(db *database.DB) GameRepository {
	return &PostgresGameRepository{db: db}
}

// Name identifies the repository when it is used as a game source.
func (r *PostgresGameRepository) Name() string {
	return "postgres_games"
}

// UpsertGames inserts games, replacing scores for ids already stored
func (r *PostgresGameRepository) UpsertGames(ctx context.Context, games []models.GameRecord) error {
	if len(games) == 0 {
		return nil
	}

	query := `
		INSERT INTO games (game_id, game_date, home_team, away_team, home_score, away_score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (game_id) DO UPDATE SET
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, g := range games {
		if err := g.Validate(); err != nil {
			return err
		}
		batch.Queue(query, g.Key(), g.Day(), g.HomeTeam, g.AwayTeam, g.HomeScore, g.AwayScore)
	}

	results := r.db.Querier(ctx).SendBatch(ctx, batch)
	defer results.Close()
	for range games {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert game: %w", err)
		}
	}
	return nil
}

// GamesBetween retrieves games in a date range
func (r *PostgresGameRepository) GamesBetween(ctx context.Context, start, end time.Time) ([]models.GameRecord, error) {
	query := `
		SELECT game_id, game_date, home_team, away_team, home_score, away_score
		FROM games
		WHERE game_date >= $1 AND game_date <= $2
		ORDER BY game_date ASC, game_id ASC
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, models.Day(start), models.Day(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	games := []models.GameRecord{}
	for rows.Next() {
		var g models.GameRecord
		if err := rows.Scan(&g.ID, &g.Date, &g.HomeTeam, &g.AwayTeam, &g.HomeScore, &g.AwayScore); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		g.Date = models.Day(g.Date)
		games = append(games, g)
	}

	return games, rows.Err()
}

// GetByID retrieves a game by provider id
func (r *PostgresGameRepository) GetByID(ctx context.Context, id string) (*models.GameRecord, error) {
	query := `
		SELECT game_id, game_date, home_team, away_team, home_score, away_score
		FROM games WHERE game_id = $1
	`

	g := &models.GameRecord{}
	err := r.db.Querier(ctx).QueryRow(ctx, query, id).Scan(
		&g.ID, &g.Date, &g.HomeTeam, &g.AwayTeam, &g.HomeScore, &g.AwayScore,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	g.Date = models.Day(g.Date)
	return g, nil
}
