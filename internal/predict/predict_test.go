package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linelogic/internal/config"
	"github.com/yourusername/linelogic/internal/datasource"
	"github.com/yourusername/linelogic/internal/features"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func eloVector(home, away float64) features.FeatureVector {
	return features.NewFeatureVector(
		[]string{features.FeatHomeElo, features.FeatAwayElo},
		[]float64{home, away},
	)
}

type countingModel struct {
	calls atomic.Int32
	p     float64
	err   error
}

func (m *countingModel) Predict(ctx context.Context, v features.FeatureVector) (float64, error) {
	m.calls.Add(1)
	return m.p, m.err
}

func (m *countingModel) Version() string { return "counting-v1" }

func TestEloModel(t *testing.T) {
	m := NewEloModel(100, "")
	assert.Equal(t, "elo", m.Version())

	p, err := m.Predict(context.Background(), eloVector(1500, 1500))
	require.NoError(t, err)
	assert.InDelta(t, 0.640065, p, 1e-6)

	p, err = NewEloModel(0, "elo-v2").Predict(context.Background(), eloVector(1500, 1500))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)

	_, err = m.Predict(context.Background(), features.NewFeatureVector([]string{features.FeatHomeElo}, []float64{1500}))
	assert.ErrorIs(t, err, ErrInvalidPrediction)
}

func TestLogisticModel(t *testing.T) {
	m, err := NewLogisticModel(LogisticWeights{
		Version:      "lr-v1",
		Intercept:    0,
		Features:     []string{"x", "absent"},
		Coefficients: []float64{1, 5},
		Means:        []float64{1, 0},
		Scales:       []float64{2, 0},
	})
	require.NoError(t, err)

	v := features.NewFeatureVector([]string{"x"}, []float64{3})
	p, err := m.Predict(context.Background(), v)
	require.NoError(t, err)
	// z = (3-1)/2 = 1; the absent feature contributes 0.
	assert.InDelta(t, 0.7310585786, p, 1e-9)
	assert.Equal(t, "lr-v1", m.Version())
	assert.Equal(t, []string{"x", "absent"}, m.Features())
}

func TestLogisticWeightsValidation(t *testing.T) {
	tests := []struct {
		name string
		w    LogisticWeights
	}{
		{"no features", LogisticWeights{}},
		{"coefficient mismatch", LogisticWeights{Features: []string{"a", "b"}, Coefficients: []float64{1}}},
		{"means mismatch", LogisticWeights{Features: []string{"a"}, Coefficients: []float64{1}, Means: []float64{1, 2}}},
		{"scales mismatch", LogisticWeights{Features: []string{"a"}, Coefficients: []float64{1}, Scales: []float64{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogisticModel(tt.w)
			assert.ErrorIs(t, err, ErrInvalidWeights)
		})
	}
}

func TestLoadLogisticModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	data, err := json.Marshal(LogisticWeights{
		Intercept:    0.1,
		Features:     []string{features.FeatEloDiff},
		Coefficients: []float64{0.004},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	m, err := LoadLogisticModel(path)
	require.NoError(t, err)
	assert.Equal(t, "logistic", m.Version())

	_, err = LoadLogisticModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = LoadLogisticModel(bad)
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestCachedModel(t *testing.T) {
	inner := &countingModel{p: 0.6}
	cached := NewCachedModel(inner, NewPredictionCache(time.Minute, 10), quietLogger())

	v := eloVector(1550, 1500)
	for i := 0; i < 3; i++ {
		p, err := cached.Predict(context.Background(), v)
		require.NoError(t, err)
		assert.Equal(t, 0.6, p)
	}
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err := cached.Predict(context.Background(), eloVector(1400, 1500))
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())

	hits, misses, _ := cached.GetCacheStats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(2), misses)
	assert.Equal(t, "counting-v1", cached.Version())
}

func TestCachedModelDoesNotCacheErrors(t *testing.T) {
	inner := &countingModel{err: ErrModelUnavailable}
	cached := NewCachedModel(inner, NewPredictionCache(time.Minute, 10), quietLogger())

	for i := 0; i < 2; i++ {
		_, err := cached.Predict(context.Background(), eloVector(1500, 1500))
		assert.ErrorIs(t, err, ErrModelUnavailable)
	}
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestKeyForIsStable(t *testing.T) {
	a, err := KeyFor("v1", eloVector(1500, 1490))
	require.NoError(t, err)
	b, err := KeyFor("v1", eloVector(1500, 1490))
	require.NoError(t, err)
	c, err := KeyFor("v2", eloVector(1500, 1490))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.String(), c.String())
}

func testHTTPClient() *datasource.RateLimitedHTTPClient {
	return datasource.NewRateLimitedHTTPClient(datasource.HTTPClientConfig{
		Timeout:           2 * time.Second,
		RateLimit:         1000,
		CircuitBreakerMax: 5,
	}, quietLogger())
}

func TestHTTPModel(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    float64
		wantErr error
	}{
		{"ok", http.StatusOK, `{"probability":0.62,"model_version":"remote-v3"}`, 0.62, nil},
		{"out of range", http.StatusOK, `{"probability":1.5}`, 0, ErrInvalidPrediction},
		{"garbage", http.StatusOK, `not json`, 0, ErrInvalidPrediction},
		{"unavailable", http.StatusServiceUnavailable, `down`, 0, ErrModelUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				var req map[string]json.RawMessage
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.JSONEq(t, `{"home_elo":1500,"away_elo":1480}`, string(req["features"]))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			m := NewHTTPModel(testHTTPClient(), srv.URL, "remote-v3", quietLogger())
			p, err := m.Predict(context.Background(), eloVector(1500, 1480))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestBucketIsDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("game_%d_home", i)
		b := Bucket(id)
		assert.Equal(t, b, Bucket(id))
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 100)
	}
}

func TestRouterSplit(t *testing.T) {
	prod := &countingModel{p: 0.55}
	stag := &countingModel{p: 0.65}

	all, err := NewABRouter(prod, stag, 100, "", quietLogger())
	require.NoError(t, err)
	none, err := NewABRouter(prod, stag, 0, "", quietLogger())
	require.NoError(t, err)
	noStaging, err := NewABRouter(prod, nil, 100, "", quietLogger())
	require.NoError(t, err)
	tenth, err := NewABRouter(prod, stag, 10, "", quietLogger())
	require.NoError(t, err)

	staged := 0
	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("game_%d", i)
		assert.Equal(t, StageStaging, all.Route(id))
		assert.Equal(t, StageProduction, none.Route(id))
		assert.Equal(t, StageProduction, noStaging.Route(id))
		if tenth.Route(id) == StageStaging {
			staged++
		}
	}
	assert.InDelta(t, 200, staged, 60)

	pred, err := all.PredictGame(context.Background(), "g1", eloVector(1500, 1500))
	require.NoError(t, err)
	assert.Equal(t, Prediction{Probability: 0.65, ModelVersion: "counting-v1", Stage: StageStaging}, pred)

	_, err = NewABRouter(prod, stag, 101, "", nil)
	assert.Error(t, err)
	_, err = NewABRouter(nil, stag, 10, "", nil)
	assert.Error(t, err)
}

func TestRouterRejectsOutOfRangeModelOutput(t *testing.T) {
	r, err := NewABRouter(&countingModel{p: 1}, nil, 0, "", quietLogger())
	require.NoError(t, err)

	_, err = r.PredictGame(context.Background(), "g1", eloVector(1500, 1500))
	assert.ErrorIs(t, err, ErrInvalidPrediction)
}

func TestRouterOutcomeLog(t *testing.T) {
	dir := t.TempDir()
	r, err := NewABRouter(&countingModel{p: 0.6}, &countingModel{p: 0.4}, 50, dir, quietLogger())
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC) }

	won, lost := true, false
	require.NoError(t, r.LogOutcome("a", 0.8, &won))
	require.NoError(t, r.LogOutcome("b", 0.3, &lost))
	require.NoError(t, r.LogOutcome("c", 0.5, nil))

	_, err = os.Stat(filepath.Join(dir, "outcomes_20240115.jsonl"))
	require.NoError(t, err)

	outcomes, err := r.LoadOutcomes(time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, r.Route("a"), outcomes[0].Stage)
	assert.Nil(t, outcomes[2].Actual)

	outcomes, err = r.LoadOutcomes(time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, outcomes)

	report, err := r.CompareVariants()
	require.NoError(t, err)
	assert.Contains(t, report, "Staging Percentage: 50.0%")
}

func TestStageComparison(t *testing.T) {
	won, lost := true, false
	outcomes := []OutcomeLog{
		{Stage: StageStaging, Prediction: 0.9, Actual: &won},
		{Stage: StageStaging, Prediction: 0.2, Actual: &lost},
		{Stage: StageProduction, Prediction: 0.4, Actual: &won},
		{Stage: StageProduction, Prediction: 0.6, Actual: nil},
	}

	m := StageComparison(outcomes)
	require.NotNil(t, m[StageStaging].Accuracy)
	assert.Equal(t, 2, m[StageStaging].Count)
	assert.Equal(t, 1.0, *m[StageStaging].Accuracy)
	assert.Equal(t, 1, m[StageProduction].Count)
	assert.Equal(t, 0.0, *m[StageProduction].Accuracy)
	assert.Less(t, *m[StageStaging].LogLoss, *m[StageProduction].LogLoss)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	r, err := NewFromConfig(cfg, quietLogger())
	require.NoError(t, err)

	pred, err := r.PredictGame(context.Background(), "g1", eloVector(1500, 1500))
	require.NoError(t, err)
	assert.Equal(t, StageProduction, pred.Stage)
	assert.Equal(t, "elo-v1", pred.ModelVersion)
	assert.InDelta(t, 0.640065, pred.Probability, 1e-6)

	cfg.Predictor.Production = config.ModelSpec{Type: "logistic", WeightsPath: filepath.Join(t.TempDir(), "none.json")}
	_, err = NewFromConfig(cfg, quietLogger())
	assert.Error(t, err)
}
