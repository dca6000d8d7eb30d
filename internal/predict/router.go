package predict

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/eval"
	"github.com/yourusername/linelogic/internal/features"
)

// Stage names the variant a request was routed to.
type Stage string

const (
	StageProduction Stage = "production"
	StageStaging    Stage = "staging"
)

const outcomeFilePrefix = "outcomes_"

// Prediction is a routed model output.
type Prediction struct {
	Probability  float64
	ModelVersion string
	Stage        Stage
}

// Predictor produces a prediction for a routing id, usually a game key.
type Predictor interface {
	PredictGame(ctx context.Context, id string, v features.FeatureVector) (Prediction, error)
}

// OutcomeLog is one line of the outcome log.
type OutcomeLog struct {
	ID         string    `json:"id"`
	Stage      Stage     `json:"model_stage"`
	Version    string    `json:"model_version,omitempty"`
	Prediction float64   `json:"prediction"`
	Actual     *bool     `json:"actual"`
	Timestamp  time.Time `json:"timestamp"`
}

// StageMetrics compares variants over settled outcomes.
type StageMetrics struct {
	Count    int      `json:"count"`
	LogLoss  *float64 `json:"log_loss"`
	Accuracy *float64 `json:"accuracy"`
}

// ABRouter splits traffic between a production and an optional staging model
// by hashing the routing id, so the same id always lands on the same variant.
type ABRouter struct {
	production Model
	staging    Model
	percentage float64
	logDir     string
	logger     *logrus.Logger
	mu         sync.Mutex
	now        func() time.Time
}

// NewABRouter creates a router. percentage is the share of ids (0-100) sent
// to staging; it is ignored when staging is nil.
func NewABRouter(production, staging Model, percentage float64, logDir string, logger *logrus.Logger) (*ABRouter, error) {
	if production == nil {
		return nil, fmt.Errorf("production model is required")
	}
	if percentage < 0 || percentage > 100 {
		return nil, fmt.Errorf("staging percentage must be 0-100, got %v", percentage)
	}
	if logger == nil {
		logger = logrus.New()
	}
	if staging == nil {
		percentage = 0
	}

	logger.WithFields(logrus.Fields{
		"production": production.Version(),
		"staging":    percentage,
	}).Info("Model router initialized")

	return &ABRouter{
		production: production,
		staging:    staging,
		percentage: percentage,
		logDir:     logDir,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Bucket maps id onto [0, 100) using the MD5 digest.
func Bucket(id string) int {
	sum := md5.Sum([]byte(id))
	n := new(big.Int).SetBytes(sum[:])
	return int(n.Mod(n, big.NewInt(100)).Int64())
}

// Route returns the stage for id.
func (r *ABRouter) Route(id string) Stage {
	if r.staging != nil && float64(Bucket(id)) < r.percentage {
		return StageStaging
	}
	return StageProduction
}

func (r *ABRouter) model(stage Stage) Model {
	if stage == StageStaging {
		return r.staging
	}
	return r.production
}

// PredictGame routes id and queries the chosen model.
func (r *ABRouter) PredictGame(ctx context.Context, id string, v features.FeatureVector) (Prediction, error) {
	stage := r.Route(id)
	m := r.model(stage)

	p, err := m.Predict(ctx, v)
	if err != nil {
		return Prediction{}, fmt.Errorf("%s model %s: %w", stage, m.Version(), err)
	}
	if err := checkProbability(p); err != nil {
		return Prediction{}, err
	}

	PredictionsTotal.WithLabelValues(string(stage)).Inc()
	r.logger.WithFields(logrus.Fields{
		"id":          id,
		"stage":       stage,
		"probability": p,
	}).Debug("Routed prediction")
	return Prediction{Probability: p, ModelVersion: m.Version(), Stage: stage}, nil
}

// LogOutcome appends a prediction and its result, if known, to the day's
// JSONL file. It is a no-op without a log directory.
func (r *ABRouter) LogOutcome(id string, prediction float64, actual *bool) error {
	if r.logDir == "" {
		return nil
	}
	stage := r.Route(id)
	entry := OutcomeLog{
		ID:         id,
		Stage:      stage,
		Version:    r.model(stage).Version(),
		Prediction: prediction,
		Actual:     actual,
		Timestamp:  r.now().UTC(),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create outcome log dir: %w", err)
	}
	path := filepath.Join(r.logDir, outcomeFilePrefix+entry.Timestamp.Format("20060102")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open outcome log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write outcome log: %w", err)
	}
	return nil
}

// LoadOutcomes reads logged outcomes whose file date falls in [start, end].
// Zero times leave that side open.
func (r *ABRouter) LoadOutcomes(start, end time.Time) ([]OutcomeLog, error) {
	if r.logDir == "" {
		return nil, nil
	}
	paths, err := filepath.Glob(filepath.Join(r.logDir, outcomeFilePrefix+"*.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []OutcomeLog
	for _, path := range paths {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), outcomeFilePrefix), ".jsonl")
		day, err := time.Parse("20060102", stamp)
		if err != nil {
			continue
		}
		if (!start.IsZero() && day.Before(start)) || (!end.IsZero() && day.After(end)) {
			continue
		}
		entries, err := readOutcomes(path)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func readOutcomes(path string) ([]OutcomeLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open outcome log: %w", err)
	}
	defer f.Close()

	var out []OutcomeLog
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		var o OutcomeLog
		if err := json.Unmarshal(scanner.Bytes(), &o); err != nil {
			return nil, fmt.Errorf("failed to parse outcome log %s: %w", path, err)
		}
		out = append(out, o)
	}
	return out, scanner.Err()
}

// Metrics computes log loss and accuracy per stage over outcomes with a
// known result.
func (r *ABRouter) Metrics(start, end time.Time) (map[Stage]StageMetrics, error) {
	outcomes, err := r.LoadOutcomes(start, end)
	if err != nil {
		return nil, err
	}
	return StageComparison(outcomes), nil
}

// StageComparison groups settled outcomes by stage and scores each group.
func StageComparison(outcomes []OutcomeLog) map[Stage]StageMetrics {
	preds := map[Stage][]float64{}
	actuals := map[Stage][]bool{}
	for _, o := range outcomes {
		if o.Actual == nil {
			continue
		}
		preds[o.Stage] = append(preds[o.Stage], o.Prediction)
		actuals[o.Stage] = append(actuals[o.Stage], *o.Actual)
	}

	out := map[Stage]StageMetrics{}
	for _, stage := range []Stage{StageStaging, StageProduction} {
		m := StageMetrics{Count: len(preds[stage])}
		if m.Count > 0 {
			if ll, err := eval.LogLoss(preds[stage], actuals[stage]); err == nil {
				m.LogLoss = &ll
			}
			if acc, err := eval.Accuracy(preds[stage], actuals[stage]); err == nil {
				m.Accuracy = &acc
			}
		}
		out[stage] = m
	}
	return out
}

// CompareVariants renders a short report naming the better variant by log loss.
func (r *ABRouter) CompareVariants() (string, error) {
	metrics, err := r.Metrics(time.Time{}, time.Time{})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A/B Test Results\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(&b, "Staging Percentage: %.1f%%\n", r.percentage)
	for _, stage := range []Stage{StageStaging, StageProduction} {
		m := metrics[stage]
		fmt.Fprintf(&b, "\n%s:\n  Predictions: %d\n", strings.ToUpper(string(stage)), m.Count)
		if m.LogLoss == nil || m.Accuracy == nil {
			b.WriteString("  (No completed predictions)\n")
			continue
		}
		fmt.Fprintf(&b, "  Log Loss: %.4f\n  Accuracy: %.4f\n", *m.LogLoss, *m.Accuracy)
	}

	s, p := metrics[StageStaging], metrics[StageProduction]
	if s.LogLoss != nil && p.LogLoss != nil && *p.LogLoss > 0 {
		staging, production := *s.LogLoss, *p.LogLoss
		change := (production - staging) / production * 100
		if staging < production {
			fmt.Fprintf(&b, "\nWINNER: STAGING (log_loss improved by %.1f%%)\n", change)
		} else {
			fmt.Fprintf(&b, "\nWINNER: PRODUCTION (staging degraded by %.1f%%)\n", -change)
		}
	}
	return b.String(), nil
}
