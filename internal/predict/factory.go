package predict

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/config"
	"github.com/yourusername/linelogic/internal/datasource"
)

// NewFromConfig builds the production and optional staging models, wraps
// them in a prediction cache when configured, and returns the router.
func NewFromConfig(cfg *config.Config, logger *logrus.Logger) (*ABRouter, error) {
	pc := cfg.Predictor

	var cache *PredictionCache
	if pc.CacheTTLSeconds > 0 {
		cache = NewPredictionCache(time.Duration(pc.CacheTTLSeconds)*time.Second, pc.CacheMaxSize)
	}

	production, err := buildModel(pc.Production, cfg, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build production model: %w", err)
	}

	var staging Model
	if pc.Staging.Type != "" && pc.StagingPercentage > 0 {
		if staging, err = buildModel(pc.Staging, cfg, cache, logger); err != nil {
			return nil, fmt.Errorf("failed to build staging model: %w", err)
		}
	}

	return NewABRouter(production, staging, pc.StagingPercentage, pc.ABLogDir, logger)
}

func buildModel(spec config.ModelSpec, cfg *config.Config, cache *PredictionCache, logger *logrus.Logger) (Model, error) {
	var m Model
	switch spec.Type {
	case "", "elo":
		m = NewEloModel(cfg.Rating.HomeAdvantage, spec.Version)
	case "logistic":
		lm, err := LoadLogisticModel(spec.WeightsPath)
		if err != nil {
			return nil, err
		}
		m = lm
	case "http":
		httpCfg := datasource.DefaultHTTPClientConfig()
		httpCfg.Timeout = config.Seconds(spec.TimeoutSeconds, 10*time.Second)
		httpCfg.MaxRetries = 2
		m = NewHTTPModel(datasource.NewRateLimitedHTTPClient(httpCfg, logger), spec.URL, spec.Version, logger)
	default:
		return nil, fmt.Errorf("unknown model type %q", spec.Type)
	}

	if cache != nil {
		return NewCachedModel(m, cache, logger), nil
	}
	return m, nil
}
