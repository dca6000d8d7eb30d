package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/yourusername/linelogic/internal/features"
	"github.com/yourusername/linelogic/internal/odds"
)

// LogisticWeights is the on-disk form of a trained logistic regression.
// Means and Scales, when present, standardize each feature before the dot
// product.
type LogisticWeights struct {
	Version      string    `json:"version"`
	Intercept    float64   `json:"intercept"`
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Means        []float64 `json:"means,omitempty"`
	Scales       []float64 `json:"scales,omitempty"`
}

// Validate checks that the arrays line up.
func (w LogisticWeights) Validate() error {
	n := len(w.Features)
	if n == 0 {
		return fmt.Errorf("%w: no features", ErrInvalidWeights)
	}
	if len(w.Coefficients) != n {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrInvalidWeights, len(w.Coefficients), n)
	}
	if len(w.Means) != 0 && len(w.Means) != n {
		return fmt.Errorf("%w: %d means for %d features", ErrInvalidWeights, len(w.Means), n)
	}
	if len(w.Scales) != 0 && len(w.Scales) != n {
		return fmt.Errorf("%w: %d scales for %d features", ErrInvalidWeights, len(w.Scales), n)
	}
	return nil
}

// LogisticModel scores a vector with fixed logistic regression weights.
// Features absent from the vector count as 0.
type LogisticModel struct {
	w LogisticWeights
}

// NewLogisticModel validates w and builds a model.
func NewLogisticModel(w LogisticWeights) (*LogisticModel, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if w.Version == "" {
		w.Version = "logistic"
	}
	return &LogisticModel{w: w}, nil
}

// LoadLogisticModel reads weights from a JSON file.
func LoadLogisticModel(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights %s: %w", path, err)
	}
	var w LogisticWeights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}
	return NewLogisticModel(w)
}

// Predict returns sigmoid(intercept + coefficients . standardized features).
func (m *LogisticModel) Predict(ctx context.Context, v features.FeatureVector) (float64, error) {
	x := v.Slice(m.w.Features)
	z := m.w.Intercept
	for i, xi := range x {
		if len(m.w.Means) > 0 {
			xi -= m.w.Means[i]
		}
		if len(m.w.Scales) > 0 && m.w.Scales[i] != 0 {
			xi /= m.w.Scales[i]
		}
		z += m.w.Coefficients[i] * xi
	}
	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		return 0, fmt.Errorf("%w: NaN score", ErrInvalidPrediction)
	}
	return odds.ClampProbability(p, odds.DefaultProbabilityEpsilon), nil
}

// Version returns the model version
func (m *LogisticModel) Version() string {
	return m.w.Version
}

// Features returns the feature names the model reads.
func (m *LogisticModel) Features() []string {
	return append([]string(nil), m.w.Features...)
}
