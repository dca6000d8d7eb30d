// Package recommend turns a date's slate into stake decisions by running the
// rating and feature pipeline, a probability model, odds math and the staking
// engine in order.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/config"
	"github.com/yourusername/linelogic/internal/datasource"
	"github.com/yourusername/linelogic/internal/features"
	"github.com/yourusername/linelogic/internal/metrics"
	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/odds"
	"github.com/yourusername/linelogic/internal/predict"
	"github.com/yourusername/linelogic/internal/rating"
	"github.com/yourusername/linelogic/internal/staking"
)

// ErrMissingDependency is returned when a required collaborator is nil.
var ErrMissingDependency = errors.New("missing dependency")

// DecisionSink receives the decisions emitted for a date.
type DecisionSink interface {
	SaveDecisions(ctx context.Context, decisions []models.StakeDecision) error
}

// BankrollSource reports the bankroll stakes are sized against.
type BankrollSource interface {
	CurrentBankroll(ctx context.Context) (decimal.Decimal, error)
}

// Config controls a recommendation run.
type Config struct {
	HistoryDays int
	BothSides   bool
	Bankroll    decimal.Decimal
	Isolation   features.Isolation
	Timeout     time.Duration
	Rating      rating.Config
	Features    features.Config
}

// ConfigFromApp derives a run config from application config.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		HistoryDays: cfg.Recommend.HistoryDays,
		BothSides:   cfg.Recommend.BothSides,
		Bankroll:    decimal.NewFromFloat(cfg.Staking.Bankroll),
		Isolation:   cfg.Features.Isolation,
		Timeout:     config.Seconds(cfg.Recommend.TimeoutSeconds, time.Minute),
		Rating:      cfg.Rating.Config,
		Features:    cfg.Features,
	}
}

// Dependencies holds the collaborators. Sink, SideTables and Bankroll are
// optional.
type Dependencies struct {
	Games      datasource.GameSource
	Quotes     datasource.QuoteSource
	SideTables datasource.SideTableSource
	Predictor  predict.Predictor
	Staking    *staking.Engine
	Sink       DecisionSink
	Bankroll   BankrollSource
}

// Orchestrator coordinates a single date's recommendation run
type Orchestrator struct {
	cfg       Config
	games     datasource.GameSource
	quotes    datasource.QuoteSource
	tables    datasource.SideTableSource
	predictor predict.Predictor
	staking   *staking.Engine
	sink      DecisionSink
	bankroll  BankrollSource
	logger    *logrus.Logger
	now       func() time.Time
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(cfg Config, deps Dependencies, logger *logrus.Logger) (*Orchestrator, error) {
	switch {
	case deps.Games == nil:
		return nil, fmt.Errorf("%w: game source", ErrMissingDependency)
	case deps.Quotes == nil:
		return nil, fmt.Errorf("%w: quote source", ErrMissingDependency)
	case deps.Predictor == nil:
		return nil, fmt.Errorf("%w: predictor", ErrMissingDependency)
	case deps.Staking == nil:
		return nil, fmt.Errorf("%w: staking engine", ErrMissingDependency)
	}
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 120
	}
	if cfg.Isolation == "" {
		cfg.Isolation = features.IsolationRecord
	}
	tables := deps.SideTables
	if tables == nil {
		tables = datasource.StaticSideTables{}
	}

	return &Orchestrator{
		cfg:       cfg,
		games:     deps.Games,
		quotes:    deps.Quotes,
		tables:    tables,
		predictor: deps.Predictor,
		staking:   deps.Staking,
		sink:      deps.Sink,
		bankroll:  deps.Bankroll,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// pricedQuote is a quote with the vig removed.
type pricedQuote struct {
	quote    models.MarketQuote
	fairHome float64
	fairAway float64
}

// gameError carries the skip reason for a game that failed evaluation.
type gameError struct {
	reason Reason
	err    error
}

func (e *gameError) Error() string { return string(e.reason) + ": " + e.err.Error() }
func (e *gameError) Unwrap() error { return e.err }

// RecommendDate builds decisions for every game on date. State is rebuilt from
// the preceding HistoryDays of completed games, so nothing from date itself
// reaches a feature vector. Under batch isolation the first failing game
// aborts the run and the partial report is returned with the error.
func (o *Orchestrator) RecommendDate(ctx context.Context, date time.Time) (*Report, error) {
	started := o.now()
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}
	day := models.Day(date)

	bankroll, err := o.currentBankroll(ctx)
	if err != nil {
		return nil, err
	}
	report := newReport(day, bankroll)

	history, slate, err := o.loadGames(ctx, day)
	if err != nil {
		return nil, err
	}
	report.SlateGames = len(slate)

	quotes, err := o.quotes.QuotesOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes from %s: %w", o.quotes.Name(), err)
	}
	priced, invalid, lines := o.priceQuotes(quotes)

	tables := o.loadTables(ctx).WithOdds(lines)
	fcfg := o.cfg.Features
	fcfg.Isolation = o.cfg.Isolation
	pipe := features.NewPipeline(fcfg, features.NewState(o.cfg.Rating), tables, o.logger)

	applied, err := pipe.Replay(history)
	if err != nil {
		return nil, fmt.Errorf("failed to replay history: %w", err)
	}
	report.HistoryGames = applied
	metrics.RecordGamesProcessed("replay", applied)
	metrics.UpdateRatedTeams(len(pipe.State().Ratings().Ratings()))

	tracker := staking.NewExposureTracker(o.staking.Config().Caps, bankroll, o.logger)

	for _, g := range slate {
		if err := ctx.Err(); err != nil {
			report.finalize()
			return report, fmt.Errorf("recommendation run cancelled: %w", err)
		}

		key := models.MatchupKey(g.Date, g.HomeTeam, g.AwayTeam)
		pq, ok := priced[key]
		if !ok {
			reason := ReasonNoQuote
			if qerr, bad := invalid[key]; bad {
				reason = ReasonInvalidQuote
				err = qerr
			} else {
				err = nil
			}
			report.skip(g, reason, err)
			metrics.RecordGameSkipped(string(reason))
			continue
		}

		if err := o.evaluateGame(ctx, pipe, g, pq, tracker, bankroll, report); err != nil {
			var ge *gameError
			reason := ReasonMalformed
			if errors.As(err, &ge) {
				reason = ge.reason
			}
			metrics.RecordGameSkipped(string(reason))
			if o.cfg.Isolation == features.IsolationBatch {
				report.finalize()
				return report, fmt.Errorf("failed to evaluate game %s: %w", g.Key(), err)
			}
			o.logger.WithFields(logrus.Fields{
				"game":   g.Key(),
				"reason": reason,
				"error":  err,
			}).Warn("Skipping game")
			report.skip(g, reason, err)
		}
	}
	metrics.RecordGamesProcessed("extract", len(slate))

	report.finalize()
	report.Duration = o.now().Sub(started)

	if len(report.Decisions) > 0 && o.sink != nil {
		if err := o.sink.SaveDecisions(ctx, report.Decisions); err != nil {
			return report, fmt.Errorf("failed to save decisions: %w", err)
		}
	}

	metrics.UpdateBankroll(bankroll.InexactFloat64())
	metrics.UpdateDailyExposure(report.TotalStaked.InexactFloat64())
	metrics.RecordPipelineDuration("recommend", report.Duration.Seconds())

	o.logger.WithFields(logrus.Fields{
		"date":         day.Format(models.DateLayout),
		"games":        len(slate),
		"history":      applied,
		"decisions":    len(report.Decisions),
		"no_picks":     len(report.NoPicks),
		"skipped":      len(report.Skipped),
		"total_staked": report.TotalStaked.StringFixed(2),
	}).Info("Recommendation run complete")

	return report, nil
}

func (o *Orchestrator) currentBankroll(ctx context.Context) (decimal.Decimal, error) {
	if o.bankroll == nil {
		return o.cfg.Bankroll, nil
	}
	b, err := o.bankroll.CurrentBankroll(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load bankroll: %w", err)
	}
	return b, nil
}

// loadGames fetches the history window and the slate in one call and splits
// them by day.
func (o *Orchestrator) loadGames(ctx context.Context, day time.Time) (history, slate []models.GameRecord, err error) {
	from := day.AddDate(0, 0, -o.cfg.HistoryDays)
	games, err := o.games.GamesBetween(ctx, from, day)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch games from %s: %w", o.games.Name(), err)
	}
	for _, g := range games {
		switch {
		case g.Date.IsZero():
			// Malformed rows surface during extraction or replay depending
			// on which side of the cutoff they were meant for.
			history = append(history, g)
		case g.Day().Equal(day):
			slate = append(slate, g)
		case g.Day().Before(day):
			history = append(history, g)
		}
	}
	return history, slate, nil
}

// loadTables returns the side tables, degrading to empty ones on failure.
func (o *Orchestrator) loadTables(ctx context.Context) *features.SideTables {
	tables, err := o.tables.LoadSideTables(ctx)
	if err != nil || tables == nil {
		o.logger.WithError(err).Info("Side tables unavailable, using neutral defaults")
		return features.NewSideTables()
	}
	return tables
}

// priceQuotes removes the vig from each quote and keys the result by matchup.
// Quotes that cannot be priced are reported separately.
func (o *Orchestrator) priceQuotes(quotes []models.MarketQuote) (map[string]pricedQuote, map[string]error, []features.OddsLine) {
	priced := make(map[string]pricedQuote, len(quotes))
	invalid := make(map[string]error)
	lines := make([]features.OddsLine, 0, len(quotes))

	for _, q := range quotes {
		key := models.MatchupKey(q.Date, q.HomeTeam, q.AwayTeam)
		homeImplied, awayImplied := q.HomeImpliedProb, q.AwayImpliedProb
		if homeImplied == 0 && awayImplied == 0 {
			homeImplied = odds.AmericanToImpliedProb(q.HomePrice)
			awayImplied = odds.AmericanToImpliedProb(q.AwayPrice)
			q.HomeImpliedProb, q.AwayImpliedProb = homeImplied, awayImplied
		}

		fairHome, fairAway, err := odds.RemoveVigTwoWay(homeImplied, awayImplied)
		if err != nil {
			o.logger.WithFields(logrus.Fields{
				"matchup":   key,
				"bookmaker": q.Bookmaker,
				"error":     err,
			}).Warn("Dropping unpriceable quote")
			invalid[key] = err
			continue
		}

		priced[key] = pricedQuote{quote: q, fairHome: fairHome, fairAway: fairAway}
		lines = append(lines, features.OddsLine{
			Date:            q.Date,
			HomeTeam:        q.HomeTeam,
			AwayTeam:        q.AwayTeam,
			ImpliedHomeProb: fairHome,
			SpreadHome:      q.Spread,
			Total:           q.Total,
		})
	}
	return priced, invalid, lines
}

// selection is one side of a matchup under evaluation.
type selection struct {
	side       models.Side
	team       string
	opponent   string
	modelProb  float64
	fairProb   float64
	impliedRaw float64
	price      int
}

func (o *Orchestrator) evaluateGame(
	ctx context.Context,
	pipe *features.Pipeline,
	g models.GameRecord,
	pq pricedQuote,
	tracker *staking.ExposureTracker,
	bankroll decimal.Decimal,
	report *Report,
) error {
	vec, err := pipe.Extract(g)
	if err != nil {
		return &gameError{reason: ReasonMalformed, err: err}
	}

	pred, err := o.predictor.PredictGame(ctx, g.Key(), vec)
	if err != nil {
		return &gameError{reason: ReasonPredictionFailed, err: err}
	}

	sides := []selection{{
		side:       models.SideHome,
		team:       g.HomeTeam,
		opponent:   g.AwayTeam,
		modelProb:  pred.Probability,
		fairProb:   pq.fairHome,
		impliedRaw: pq.quote.HomeImpliedProb,
		price:      pq.quote.HomePrice,
	}}
	if o.cfg.BothSides {
		sides = append(sides, selection{
			side:       models.SideAway,
			team:       g.AwayTeam,
			opponent:   g.HomeTeam,
			modelProb:  1 - pred.Probability,
			fairProb:   pq.fairAway,
			impliedRaw: pq.quote.AwayImpliedProb,
			price:      pq.quote.AwayPrice,
		})
	}

	for _, s := range sides {
		edge := odds.Edge(s.modelProb, s.fairProb)
		declined := NoPick{
			GameID:    g.Key(),
			Matchup:   matchup(g),
			Side:      s.side,
			ModelProb: s.modelProb,
			FairProb:  s.fairProb,
			Edge:      edge,
		}

		if !o.staking.Qualifies(edge) {
			declined.Reason = ReasonBelowThreshold
			report.NoPicks = append(report.NoPicks, declined)
			metrics.RecordNoPick(string(declined.Reason))
			continue
		}

		decimalOdds, err := odds.AmericanToDecimal(s.price)
		if err != nil {
			return &gameError{reason: ReasonInvalidQuote, err: err}
		}

		res, err := o.staking.Stake(s.modelProb, decimalOdds, bankroll)
		if err != nil {
			return &gameError{reason: ReasonStakingFailed, err: err}
		}
		if !res.Stake.IsPositive() {
			declined.Reason = ReasonNoKelly
			report.NoPicks = append(report.NoPicks, declined)
			metrics.RecordNoPick(string(declined.Reason))
			continue
		}

		cand := staking.Candidate{GameID: g.Key(), Day: g.Day(), Team: s.team}
		allowed, err := tracker.Reserve(cand, res.Stake)
		if errors.Is(err, staking.ErrExposureLimit) {
			declined.Reason = ReasonExposureLimit
			report.NoPicks = append(report.NoPicks, declined)
			metrics.RecordNoPick(string(declined.Reason))
			continue
		}
		if err != nil {
			return &gameError{reason: ReasonStakingFailed, err: err}
		}

		notes := res.Explanation
		if allowed.LessThan(res.Stake) {
			notes += fmt.Sprintf(" -> trimmed to exposure cap: $%s", allowed.StringFixed(2))
		}
		applied := res.CappedFraction
		if bankroll.IsPositive() {
			applied = allowed.Div(bankroll).InexactFloat64()
		}

		decision := models.StakeDecision{
			ID:                   uuid.New(),
			GameID:               g.Key(),
			GameDate:             g.Day(),
			Selection:            s.team + " ML",
			Side:                 s.side,
			Team:                 s.team,
			Opponent:             s.opponent,
			ModelProb:            s.modelProb,
			FairMarketProb:       s.fairProb,
			MarketImpliedProb:    s.impliedRaw,
			Edge:                 edge,
			AmericanOdds:         s.price,
			DecimalOdds:          decimalOdds,
			KellyFractionRaw:     res.FullKelly,
			KellyFractionApplied: applied,
			StakeAmount:          allowed,
			BankrollAtTime:       bankroll,
			ModelVersion:         pred.ModelVersion,
			Notes:                notes,
			CreatedAt:            o.now().UTC(),
		}
		report.Decisions = append(report.Decisions, decision)
		metrics.RecordRecommendation(string(s.side), edge)

		o.logger.WithFields(logrus.Fields{
			"game":       g.Key(),
			"selection":  decision.Selection,
			"edge":       edge,
			"stake":      allowed.StringFixed(2),
			"model":      pred.ModelVersion,
			"model_prob": s.modelProb,
		}).Info("Stake recommended")
	}
	return nil
}
