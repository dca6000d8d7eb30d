package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/datasource"
	"github.com/yourusername/linelogic/internal/features"
)

// PredictRequest is the payload posted to a remote model service
type PredictRequest struct {
	ModelVersion string                 `json:"model_version"`
	Features     features.FeatureVector `json:"features"`
}

// PredictResponse is the remote model service reply
type PredictResponse struct {
	Probability  float64 `json:"probability"`
	ModelVersion string  `json:"model_version"`
}

// HTTPModel calls a remote model service over HTTP.
type HTTPModel struct {
	client  *datasource.RateLimitedHTTPClient
	url     string
	version string
	logger  *logrus.Logger
}

// NewHTTPModel creates a remote model posting to url.
func NewHTTPModel(client *datasource.RateLimitedHTTPClient, url, version string, logger *logrus.Logger) *HTTPModel {
	if logger == nil {
		logger = logrus.New()
	}
	if version == "" {
		version = "remote"
	}
	return &HTTPModel{client: client, url: url, version: version, logger: logger}
}

// Predict posts the vector and validates the returned probability.
func (m *HTTPModel) Predict(ctx context.Context, v features.FeatureVector) (float64, error) {
	start := time.Now()
	defer func() {
		PredictionLatency.WithLabelValues("http").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(PredictRequest{ModelVersion: m.version, Features: v})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(ctx, req)
	if err != nil {
		PredictionErrorsTotal.WithLabelValues(m.version, "network").Inc()
		return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		PredictionErrorsTotal.WithLabelValues(m.version, "http_error").Inc()
		return 0, fmt.Errorf("%w: status %d: %s", ErrModelUnavailable, resp.StatusCode, string(msg))
	}

	var out PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		PredictionErrorsTotal.WithLabelValues(m.version, "decode").Inc()
		return 0, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidPrediction, err)
	}
	if err := checkProbability(out.Probability); err != nil {
		PredictionErrorsTotal.WithLabelValues(m.version, "out_of_range").Inc()
		return 0, err
	}

	if out.ModelVersion != "" && out.ModelVersion != m.version {
		m.logger.WithFields(logrus.Fields{
			"requested": m.version,
			"served":    out.ModelVersion,
		}).Debug("Remote model served a different version")
	}
	return out.Probability, nil
}

// Version returns the model version
func (m *HTTPModel) Version() string {
	return m.version
}
