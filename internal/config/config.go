// Package config provides configuration management for linelogic.
package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/yourusername/linelogic/internal/features"
	"github.com/yourusername/linelogic/internal/rating"
	"github.com/yourusername/linelogic/internal/staking"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Rating    RatingConfig    `mapstructure:"rating"`
	Features  features.Config `mapstructure:"features"`
	Staking   StakingConfig   `mapstructure:"staking"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Redis     RedisConfig     `mapstructure:"redis"`
	API       APIConfig       `mapstructure:"api"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name            string `mapstructure:"name" validate:"required"`
	Environment     string `mapstructure:"environment" validate:"required,environment"`
	LogLevel        string `mapstructure:"log_level" validate:"required,loglevel"`
	Mode            string `mapstructure:"mode" validate:"required,oneof=paper"`
	DecisionLogPath string `mapstructure:"decision_log_path"`
}

// DatabaseConfig represents database connection configuration. When disabled
// decisions and settlements are kept in memory.
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MinConnections int    `mapstructure:"min_connections" validate:"omitempty,gte=0"`
}

// RatingConfig carries Elo hyperparameters and where to checkpoint them.
type RatingConfig struct {
	rating.Config  `mapstructure:",squash"`
	CheckpointPath string `mapstructure:"checkpoint_path"`
}

// StakingConfig adds the bankroll to the sizing parameters.
type StakingConfig struct {
	staking.Config `mapstructure:",squash"`
	Bankroll       float64 `mapstructure:"bankroll" validate:"gt=0"`
}

// RecommendConfig tunes the daily recommendation run.
type RecommendConfig struct {
	HistoryDays    int  `mapstructure:"history_days" validate:"gt=0"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds" validate:"gt=0"`
	BothSides      bool `mapstructure:"both_sides"`
}

// ProvidersConfig groups the external data providers.
type ProvidersConfig struct {
	Games           ProviderConfig `mapstructure:"games"`
	Odds            ProviderConfig `mapstructure:"odds"`
	SideTablesDir   string         `mapstructure:"side_tables_dir"`
	CacheTTLSeconds int            `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	CacheMaxSize    int            `mapstructure:"cache_max_size" validate:"gte=0"`
	Timezone        string         `mapstructure:"timezone"`
}

// ProviderConfig represents a single data source configuration
type ProviderConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	BaseURL        string  `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey         string  `mapstructure:"api_key"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"gte=0"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"gte=0"`
	Bookmaker      string  `mapstructure:"bookmaker"`
	Regions        string  `mapstructure:"regions"`
}

// ModelSpec describes one probability model.
type ModelSpec struct {
	Type           string `mapstructure:"type" validate:"omitempty,oneof=elo logistic http"`
	Version        string `mapstructure:"version"`
	WeightsPath    string `mapstructure:"weights_path"`
	URL            string `mapstructure:"url" validate:"omitempty,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// PredictorConfig selects the production model and an optional staging
// model that receives a share of traffic.
type PredictorConfig struct {
	Production        ModelSpec `mapstructure:"production"`
	Staging           ModelSpec `mapstructure:"staging"`
	StagingPercentage float64   `mapstructure:"staging_percentage" validate:"gte=0,lte=100"`
	ABLogDir          string    `mapstructure:"ab_log_dir"`
	CacheTTLSeconds   int       `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	CacheMaxSize      int       `mapstructure:"cache_max_size" validate:"gte=0"`
}

// RedisConfig configures the decision stream publisher.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Stream   string `mapstructure:"stream"`
	MaxLen   int64  `mapstructure:"max_len" validate:"gte=0"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Port                int      `mapstructure:"port" validate:"min=1,max=65535"`
	AllowedOrigins      []string `mapstructure:"allowed_origins"`
	ReadTimeoutSeconds  int      `mapstructure:"read_timeout_seconds" validate:"gte=0"`
	WriteTimeoutSeconds int      `mapstructure:"write_timeout_seconds" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// ScheduleConfig holds cron expressions for the background jobs. Capture
// is optional and snapshots provider data.
type ScheduleConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Recommend      string `mapstructure:"recommend" validate:"required_if=Enabled true"`
	Settle         string `mapstructure:"settle" validate:"required_if=Enabled true"`
	Capture        string `mapstructure:"capture"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	StartDate          string  `mapstructure:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate            string  `mapstructure:"end_date" validate:"omitempty,datetime=2006-01-02"`
	InitialBankroll    float64 `mapstructure:"initial_bankroll" validate:"gt=0"`
	WalkForwardWindows int     `mapstructure:"walk_forward_windows" validate:"gte=0"`
	WarmupGames        int     `mapstructure:"warmup_games" validate:"gte=0"`
	MinBetsPerWindow   int     `mapstructure:"min_bets_per_window" validate:"gte=0"`
	MonteCarloRuns     int     `mapstructure:"monte_carlo_runs" validate:"gte=0"`
	Seed               int64   `mapstructure:"seed"`
	OutputPath         string  `mapstructure:"output_path"`
}

// SecretsConfig enables the AWS Secrets Manager overlay.
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the provider timezone, UTC when unset or unknown.
func (c *Config) Location() *time.Location {
	if c.Providers.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Providers.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Seconds converts a configured second count to a duration with a fallback.
func Seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
