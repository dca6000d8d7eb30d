package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/linelogic/internal/config"
)

// Factory creates sources based on configuration. All HTTP sources built by
// one factory share a response cache.
type Factory struct {
	logger *logrus.Logger
	config *config.Config
	cache  *ResponseCache
}

// NewFactory creates a new data source factory
func NewFactory(cfg *config.Config, logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}
	var cache *ResponseCache
	if cfg.Providers.CacheTTLSeconds > 0 {
		cache = NewResponseCache(time.Duration(cfg.Providers.CacheTTLSeconds)*time.Second, cfg.Providers.CacheMaxSize)
	}
	return &Factory{
		logger: logger,
		config: cfg,
		cache:  cache,
	}
}

// Cache returns the shared response cache, nil when caching is disabled.
func (f *Factory) Cache() *ResponseCache {
	return f.cache
}

// GameSource builds the configured games provider.
func (f *Factory) GameSource() (GameSource, error) {
	p := f.config.Providers.Games
	if !p.Enabled {
		return nil, NewDataSourceError(ballDontLieName, ErrCodeDisabled, "games provider is disabled", nil)
	}
	client := NewRateLimitedHTTPClient(httpConfig(p), f.logger)
	f.logger.WithFields(logrus.Fields{"source": ballDontLieName, "base_url": p.BaseURL}).Info("Created data source")
	return NewBallDontLie(client, f.cache, p.BaseURL, p.APIKey, p.Enabled, f.logger), nil
}

// QuoteSource builds the configured odds provider.
func (f *Factory) QuoteSource() (QuoteSource, error) {
	p := f.config.Providers.Odds
	if !p.Enabled {
		return nil, NewDataSourceError(oddsAPIName, ErrCodeDisabled, "odds provider is disabled", nil)
	}
	if p.APIKey == "" {
		return nil, fmt.Errorf("odds provider requires an api key")
	}
	client := NewRateLimitedHTTPClient(httpConfig(p), f.logger)
	f.logger.WithFields(logrus.Fields{"source": oddsAPIName, "bookmaker": p.Bookmaker}).Info("Created data source")
	return NewOddsAPI(client, f.cache, p.BaseURL, p.APIKey, p.Bookmaker, p.Regions, f.config.Location(), p.Enabled, f.logger), nil
}

// SideTableSource reads side tables from the configured directory. With no
// directory configured the tables are empty.
func (f *Factory) SideTableSource() SideTableSource {
	if f.config.Providers.SideTablesDir == "" {
		return StaticSideTables{}
	}
	return NewFileSideTables(f.config.Providers.SideTablesDir, f.logger)
}

func httpConfig(p config.ProviderConfig) HTTPClientConfig {
	cfg := DefaultHTTPClientConfig()
	cfg.Timeout = config.Seconds(p.TimeoutSeconds, cfg.Timeout)
	cfg.MaxRetries = p.MaxRetries
	if p.RateLimit > 0 {
		cfg.RateLimit = p.RateLimit
	}
	return cfg
}
