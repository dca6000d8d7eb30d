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

var quoteColumns = []string{
	"game_date", "home_team", "away_team", "bookmaker", "game_id", "home_price", "away_price",
	"home_implied_prob", "away_implied_prob", "spread", "total", "captured_at",
}

// PostgresQuoteRepository implements QuoteRepository for PostgreSQL
type PostgresQuoteRepository struct {
	db *database.DB
}

// NewPostgresQuoteRepository creates a new quote repository
func NewPostgresQuoteRepository(db *database.DB) QuoteRepository {
	return &PostgresQuoteRepository{db: db}
}

// Name identifies the repository when it is used as a quote source.
func (q *PostgresQuoteRepository) Name() string {
	return "postgres_quotes"
}

// InsertQuotes inserts quote snapshots using COPY
func (q *PostgresQuoteRepository) InsertQuotes(ctx context.Context, quotes []models.MarketQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(quotes))
	for i, mq := range quotes {
		captured := mq.CapturedAt
		if captured.IsZero() {
			captured = time.Now().UTC()
		}
		rows[i] = []interface{}{
			models.Day(mq.Date), mq.HomeTeam, mq.AwayTeam, mq.Bookmaker, mq.GameID, mq.HomePrice, mq.AwayPrice,
			mq.HomeImpliedProb, mq.AwayImpliedProb, mq.Spread, mq.Total, captured,
		}
	}

	count, err := q.db.Querier(ctx).CopyFrom(ctx, pgx.Identifier{"market_quotes"}, quoteColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to batch insert quotes: %w", err)
	}
	if count != int64(len(quotes)) {
		return fmt.Errorf("inserted %d rows, expected %d", count, len(quotes))
	}
	return nil
}

// QuotesOn retrieves the latest snapshot per matchup and bookmaker for a day
func (q *PostgresQuoteRepository) QuotesOn(ctx context.Context, date time.Time) ([]models.MarketQuote, error) {
	query := `
		SELECT DISTINCT ON (home_team, away_team, bookmaker)
		       game_date, home_team, away_team, bookmaker, COALESCE(game_id, ''), home_price, away_price,
		       home_implied_prob, away_implied_prob, spread, total, captured_at
		FROM market_quotes
		WHERE game_date = $1
		ORDER BY home_team, away_team, bookmaker, captured_at DESC
	`

	rows, err := q.db.Querier(ctx).Query(ctx, query, models.Day(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	quotes := []models.MarketQuote{}
	for rows.Next() {
		mq, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, mq)
	}
	return quotes, rows.Err()
}

// ClosingQuote retrieves the last captured snapshot for a matchup
func (q *PostgresQuoteRepository) ClosingQuote(ctx context.Context, date time.Time, home, away string) (*models.MarketQuote, error) {
	query := `
		SELECT game_date, home_team, away_team, bookmaker, COALESCE(game_id, ''), home_price, away_price,
		       home_implied_prob, away_implied_prob, spread, total, captured_at
		FROM market_quotes
		WHERE game_date = $1 AND home_team = $2 AND away_team = $3
		ORDER BY captured_at DESC
		LIMIT 1
	`

	mq, err := scanQuote(q.db.Querier(ctx).QueryRow(ctx, query, models.Day(date), home, away))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mq, nil
}

func scanQuote(row pgx.Row) (models.MarketQuote, error) {
	var mq models.MarketQuote
	err := row.Scan(
		&mq.Date, &mq.HomeTeam, &mq.AwayTeam, &mq.Bookmaker, &mq.GameID, &mq.HomePrice, &mq.AwayPrice,
		&mq.HomeImpliedProb, &mq.AwayImpliedProb, &mq.Spread, &mq.Total, &mq.CapturedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mq, err
		}
		return mq, fmt.Errorf("failed to scan quote: %w", err)
	}
	mq.Date = models.Day(mq.Date)
	return mq, nil
}
