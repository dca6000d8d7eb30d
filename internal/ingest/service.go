// Package ingest fetches games and market snapshots from the providers,
// validates them and stores them for replay and settlement.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/datasource"
	"github.com/yourusername/linelogic/internal/metrics"
	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/repository"
)

// Service handles the data ingestion workflow
type Service struct {
	games     datasource.GameSource
	quotes    datasource.QuoteSource
	gameRepo  repository.GameRepository
	quoteRepo repository.QuoteRepository
	validator *Validator
	logger    *logrus.Logger
	batchSize int
}

// NewService creates a new ingestion service. Either source may be nil when
// its provider is disabled.
func NewService(
	games datasource.GameSource,
	quotes datasource.QuoteSource,
	gameRepo repository.GameRepository,
	quoteRepo repository.QuoteRepository,
	logger *logrus.Logger,
	batchSize int,
) *Service {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Service{
		games:     games,
		quotes:    quotes,
		gameRepo:  gameRepo,
		quoteRepo: quoteRepo,
		validator: NewValidator(),
		logger:    logger,
		batchSize: batchSize,
	}
}

// IngestGames fetches games in [start, end] and upserts the valid ones. A
// failing batch is counted and the rest still get stored.
func (s *Service) IngestGames(ctx context.Context, start, end time.Time) (*Stats, error) {
	if s.games == nil {
		return nil, fmt.Errorf("no game source configured")
	}
	stats := NewStats()
	defer stats.finish()

	fetched, err := s.games.GamesBetween(ctx, start, end)
	if err != nil {
		stats.RecordError()
		return stats, fmt.Errorf("failed to fetch games from %s: %w", s.games.Name(), err)
	}
	stats.RecordFetched(len(fetched))

	// The last record for an id wins; a later page may carry the final score.
	index := make(map[string]int, len(fetched))
	games := make([]models.GameRecord, 0, len(fetched))
	for _, g := range fetched {
		if problems := s.validator.ValidateGame(g); len(problems) > 0 {
			stats.RecordValidationError()
			s.logger.WithFields(logrus.Fields{
				"game":   g.Key(),
				"errors": strings.Join(problems, "; "),
			}).Warn("Game validation failed")
			continue
		}
		if i, ok := index[g.Key()]; ok {
			stats.RecordDuplicate()
			games[i] = g
			continue
		}
		index[g.Key()] = len(games)
		games = append(games, g)
	}

	for i := 0; i < len(games); i += s.batchSize {
		stop := i + s.batchSize
		if stop > len(games) {
			stop = len(games)
		}
		batch := games[i:stop]
		if err := s.gameRepo.UpsertGames(ctx, batch); err != nil {
			stats.RecordError()
			s.logger.WithError(err).WithField("batch_size", len(batch)).Error("Error storing game batch")
			continue
		}
		stats.RecordStored(len(batch))
	}

	s.report("game", stats)
	return stats, nil
}

// CaptureQuotes stores one snapshot per matchup and bookmaker for day.
// Snapshots are append-only, so repeated captures build the line history
// settlement reads the closing line from.
func (s *Service) CaptureQuotes(ctx context.Context, day time.Time) (*Stats, error) {
	if s.quotes == nil {
		return nil, fmt.Errorf("no quote source configured")
	}
	stats := NewStats()
	defer stats.finish()

	fetched, err := s.quotes.QuotesOn(ctx, day)
	if err != nil {
		stats.RecordError()
		return stats, fmt.Errorf("failed to fetch quotes from %s: %w", s.quotes.Name(), err)
	}
	stats.RecordFetched(len(fetched))

	seen := make(map[string]int, len(fetched))
	quotes := make([]models.MarketQuote, 0, len(fetched))
	for _, q := range fetched {
		if problems := s.validator.ValidateQuote(q); len(problems) > 0 {
			stats.RecordValidationError()
			s.logger.WithFields(logrus.Fields{
				"matchup": q.Key(),
				"errors":  strings.Join(problems, "; "),
			}).Warn("Quote validation failed")
			continue
		}
		key := q.Key() + "|" + q.Bookmaker
		if i, ok := seen[key]; ok {
			stats.RecordDuplicate()
			if q.CapturedAt.After(quotes[i].CapturedAt) {
				quotes[i] = q
			}
			continue
		}
		seen[key] = len(quotes)
		quotes = append(quotes, q)
	}

	if len(quotes) > 0 {
		if err := s.quoteRepo.InsertQuotes(ctx, quotes); err != nil {
			stats.RecordError()
			return stats, fmt.Errorf("failed to store quotes: %w", err)
		}
		stats.RecordStored(len(quotes))
	}

	s.report("quote", stats)
	return stats, nil
}

// CaptureDay refreshes yesterday's and today's games, picking up final
// scores, then snapshots today's quotes. It runs as a scheduled job.
func (s *Service) CaptureDay(ctx context.Context, day time.Time) error {
	var errs []error
	if s.games != nil {
		if _, err := s.IngestGames(ctx, day.AddDate(0, 0, -1), day); err != nil {
			errs = append(errs, err)
		}
	}
	if s.quotes != nil {
		if _, err := s.CaptureQuotes(ctx, day); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) report(kind string, stats *Stats) {
	metrics.RecordIngested(kind, "stored", stats.Stored)
	metrics.RecordIngested(kind, "duplicate", stats.Duplicates)
	metrics.RecordIngested(kind, "invalid", stats.ValidationErrors)

	s.logger.WithFields(logrus.Fields{
		"kind":              kind,
		"fetched":           stats.Fetched,
		"stored":            stats.Stored,
		"duplicates":        stats.Duplicates,
		"validation_errors": stats.ValidationErrors,
		"errors":            stats.Errors,
		"duration":          time.Since(stats.StartTime).String(),
	}).Info("Ingestion complete")
}
