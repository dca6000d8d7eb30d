// Package api exposes recommendations, stake sizing, ratings and settlement
// summaries over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/health"
	"github.com/yourusername/linelogic/internal/metrics"
	"github.com/yourusername/linelogic/internal/rating"
	"github.com/yourusername/linelogic/internal/recommend"
	"github.com/yourusername/linelogic/internal/repository"
	"github.com/yourusername/linelogic/internal/staking"
)

// Recommender runs the recommendation pipeline for a date.
type Recommender interface {
	RecommendDate(ctx context.Context, date time.Time) (*recommend.Report, error)
}

// Config holds server settings
type Config struct {
	Port           int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MetricsPath    string
}

// Dependencies are the collaborators the handlers read from. Recommender and
// Staking are required; the rest disable their routes when nil.
type Dependencies struct {
	Recommender Recommender
	Staking     *staking.Engine
	Bankroll    recommend.BankrollSource
	Decisions   repository.DecisionRepository
	Settlements repository.SettlementRepository
	Checkpoints rating.CheckpointStore
	Health      *health.Server
}

// Server is the HTTP API server
type Server struct {
	cfg      Config
	deps     Dependencies
	logger   *logrus.Logger
	validate *validator.Validate
	router   chi.Router
	server   *http.Server
}

// NewServer creates an API server and builds its routes
func NewServer(cfg Config, deps Dependencies, logger *logrus.Logger) (*Server, error) {
	if deps.Recommender == nil || deps.Staking == nil {
		return nil, errors.New("api: recommender and staking engine are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 55 * time.Second
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}

	s := &Server{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		validate: validator.New(),
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.deps.Health != nil {
		s.deps.Health.Mount(r)
	}
	r.Handle(s.cfg.MetricsPath, metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/recommendations/{date}", s.handleRecommendations)
		r.Post("/stake", s.handleStake)
		if s.deps.Decisions != nil {
			r.Get("/decisions/{date}", s.handleDecisions)
		}
		if s.deps.Decisions != nil && s.deps.Settlements != nil {
			r.Get("/settlements/{date}", s.handleSettlements)
		}
		if s.deps.Checkpoints != nil {
			r.Get("/ratings", s.handleRatings)
		}
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("port", s.cfg.Port).Info("Starting API server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Shutting down API server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown api server: %w", err)
	}
	return nil
}

func (s *Server) bankroll(ctx context.Context, override float64) (decimal.Decimal, error) {
	if override > 0 {
		return decimal.NewFromFloat(override), nil
	}
	if s.deps.Bankroll == nil {
		return decimal.Zero, errors.New("no bankroll given and no bankroll source configured")
	}
	return s.deps.Bankroll.CurrentBankroll(ctx)
}
