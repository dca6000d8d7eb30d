package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/yourusername/linelogic/internal/database"
	"github.com/yourusername/linelogic/internal/datasource"
	"github.com/yourusername/linelogic/internal/health"
	"github.com/yourusername/linelogic/internal/ingest"
	"github.com/yourusername/linelogic/internal/logger"
	"github.com/yourusername/linelogic/internal/metrics"
	"github.com/yourusername/linelogic/internal/predict"
	"github.com/yourusername/linelogic/internal/publisher"
	"github.com/yourusername/linelogic/internal/rating"
	"github.com/yourusername/linelogic/internal/recommend"
	"github.com/yourusername/linelogic/internal/repository"
	"github.com/yourusername/linelogic/internal/settlement"
	"github.com/yourusername/linelogic/internal/staking"
)

// application holds the collaborators shared by every command
type application struct {
	db          *database.DB
	redis       *redis.Client
	repos       *repository.Repositories
	sources     *datasource.Factory
	checkpoints rating.CheckpointStore
	staking     *staking.Engine
	ledger      *settlement.Ledger
	router      *predict.ABRouter
}

func setupDependencies(ctx context.Context) error {
	metrics.InitRegistry()

	a := &application{
		sources: datasource.NewFactory(cfg, appLog),
		staking: staking.NewEngine(cfg.Staking.Config, appLog),
	}
	app = a

	if cfg.Database.Enabled {
		db, err := database.Initialize(ctx, cfg, appLog)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
		if a.repos, err = repository.NewRepositories(db); err != nil {
			return fmt.Errorf("failed to initialize repositories: %w", err)
		}
		a.checkpoints = a.repos.Checkpoint
	} else {
		appLog.Warn("Database disabled, decisions and settlements are kept in memory")
		a.repos = repository.NewMemoryRepositories()
		a.checkpoints = a.repos.Checkpoint
		if cfg.Rating.CheckpointPath != "" {
			a.checkpoints = rating.NewFileCheckpointStore(cfg.Rating.CheckpointPath)
		}
	}

	a.ledger = settlement.NewLedger(decimal.NewFromFloat(cfg.Staking.Bankroll), a.repos.Settlement)
	return nil
}

// Close releases connections. It is safe to call on a partly built application.
func (a *application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && appLog != nil {
			appLog.WithError(err).Warn("Failed to close redis client")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// predictor builds the model router on first use.
func (a *application) predictor() (*predict.ABRouter, error) {
	if a.router != nil {
		return a.router, nil
	}
	router, err := predict.NewFromConfig(cfg, appLog)
	if err != nil {
		return nil, fmt.Errorf("failed to build predictor: %w", err)
	}
	a.router = router
	return router, nil
}

// gameSource prefers the live provider and falls back to stored games.
func (a *application) gameSource() (datasource.GameSource, error) {
	if !cfg.Providers.Games.Enabled {
		return a.repos.Game, nil
	}
	return a.sources.GameSource()
}

// quoteSource prefers the live provider and falls back to stored snapshots.
func (a *application) quoteSource() (datasource.QuoteSource, error) {
	if !cfg.Providers.Odds.Enabled {
		return a.repos.Quote, nil
	}
	return a.sources.QuoteSource()
}

// decisionSink fans decisions out to the ledger, the redis stream, the JSONL
// log and the audit log. Only the ledger write is required.
func (a *application) decisionSink(ctx context.Context) (*publisher.MultiSink, error) {
	sinks := []publisher.NamedSink{{Name: "ledger", Sink: a.repos.Decision}}

	if cfg.Redis.Enabled {
		if a.redis == nil {
			client, err := publisher.NewRedisClient(ctx, cfg.Redis)
			if err != nil {
				return nil, err
			}
			a.redis = client
		}
		sinks = append(sinks, publisher.NamedSink{
			Name: "redis",
			Sink: publisher.NewRedisPublisher(a.redis, cfg.Redis.Stream, cfg.Redis.MaxLen, appLog),
		})
	}
	if cfg.App.DecisionLogPath != "" {
		sinks = append(sinks, publisher.NamedSink{Name: "jsonl", Sink: logger.NewDecisionLogger(cfg.App.DecisionLogPath)})
	}
	sinks = append(sinks, publisher.NamedSink{Name: "audit", Sink: logger.NewAuditLogger(appLog)})

	return publisher.NewMultiSink(appLog, sinks...), nil
}

func (a *application) orchestrator(ctx context.Context) (*recommend.Orchestrator, error) {
	games, err := a.gameSource()
	if err != nil {
		return nil, err
	}
	quotes, err := a.quoteSource()
	if err != nil {
		return nil, err
	}
	router, err := a.predictor()
	if err != nil {
		return nil, err
	}
	sink, err := a.decisionSink(ctx)
	if err != nil {
		return nil, err
	}

	return recommend.NewOrchestrator(recommend.ConfigFromApp(cfg), recommend.Dependencies{
		Games:      games,
		Quotes:     quotes,
		SideTables: a.sources.SideTableSource(),
		Predictor:  router,
		Staking:    a.staking,
		Sink:       sink,
		Bankroll:   a.ledger,
	}, appLog)
}

func (a *application) settler() (*settlement.Settler, error) {
	games, err := a.gameSource()
	if err != nil {
		return nil, err
	}
	router, err := a.predictor()
	if err != nil {
		return nil, err
	}
	return settlement.NewSettler(games, a.repos.Decision, a.repos.Settlement, a.repos.Quote, router, appLog), nil
}

// ingester stores provider data. A disabled provider leaves its half of the
// service unset.
func (a *application) ingester() *ingest.Service {
	var games datasource.GameSource
	if src, err := a.sources.GameSource(); err == nil {
		games = src
	} else {
		appLog.WithError(err).Debug("Game ingestion unavailable")
	}
	var quotes datasource.QuoteSource
	if src, err := a.sources.QuoteSource(); err == nil {
		quotes = src
	} else {
		appLog.WithError(err).Debug("Quote capture unavailable")
	}
	return ingest.NewService(games, quotes, a.repos.Game, a.repos.Quote, appLog, 0)
}

// healthChecks lists the dependencies readiness depends on.
func (a *application) healthChecks() map[string]health.Pinger {
	checks := map[string]health.Pinger{}
	if a.db != nil {
		checks["database"] = a.db
	}
	if a.redis != nil {
		checks["redis"] = health.PingerFunc(func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	return checks
}
