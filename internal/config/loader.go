package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultPath is used when no configuration path is given
	DefaultPath = "config/config.yaml"
	envPrefix   = "LINELOGIC"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	setDefaults(v)

	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error: defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	v := newViper()
	setDefaults(v)
	cfg, err := unmarshal(v)
	if err != nil {
		// defaults are static; a failure here is a programming error
		panic(err)
	}
	return cfg
}

// ReloadFromEnv reloads the configuration when LINELOGIC_CONFIG_PATH is set
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := Load(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "linelogic")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.mode", "paper")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)

	v.SetDefault("rating.k_factor", 20.0)
	v.SetDefault("rating.home_advantage", 100.0)
	v.SetDefault("rating.initial_rating", 1500.0)
	v.SetDefault("rating.margin_multiplier", 1.0)

	v.SetDefault("features.window", 10)
	v.SetDefault("features.rest_prior", 3)
	v.SetDefault("features.max_rest_days", 7)
	v.SetDefault("features.top_players", 3)
	v.SetDefault("features.isolation", "record")

	v.SetDefault("staking.bankroll", 10000.0)
	v.SetDefault("staking.kelly_fraction", 0.25)
	v.SetDefault("staking.min_edge", 0.01)
	v.SetDefault("staking.threshold_policy", "strict")
	v.SetDefault("staking.plus_money_threshold", 2.0)
	v.SetDefault("staking.plus_money_haircut", 0.8)
	v.SetDefault("staking.marginal_kelly", 0.05)
	v.SetDefault("staking.marginal_haircut", 0.5)
	v.SetDefault("staking.caps.max_per_bet", 0.05)
	v.SetDefault("staking.caps.max_per_game", 0.10)
	v.SetDefault("staking.caps.max_per_day", 0.20)
	v.SetDefault("staking.caps.max_per_team", 0.10)

	v.SetDefault("recommend.history_days", 120)
	v.SetDefault("recommend.timeout_seconds", 60)
	v.SetDefault("recommend.both_sides", true)

	v.SetDefault("providers.games.enabled", true)
	v.SetDefault("providers.games.base_url", "https://api.balldontlie.io/v1")
	v.SetDefault("providers.games.rate_limit", 0.5)
	v.SetDefault("providers.games.timeout_seconds", 15)
	v.SetDefault("providers.games.max_retries", 3)
	v.SetDefault("providers.odds.enabled", true)
	v.SetDefault("providers.odds.base_url", "https://api.the-odds-api.com/v4")
	v.SetDefault("providers.odds.rate_limit", 1.0)
	v.SetDefault("providers.odds.timeout_seconds", 15)
	v.SetDefault("providers.odds.max_retries", 3)
	v.SetDefault("providers.odds.bookmaker", "draftkings")
	v.SetDefault("providers.odds.regions", "us")
	v.SetDefault("providers.side_tables_dir", "data/side_tables")
	v.SetDefault("providers.cache_ttl_seconds", 3600)
	v.SetDefault("providers.cache_max_size", 1000)
	v.SetDefault("providers.timezone", "America/New_York")

	v.SetDefault("predictor.production.type", "elo")
	v.SetDefault("predictor.production.version", "elo-v1")
	v.SetDefault("predictor.staging_percentage", 0.0)
	v.SetDefault("predictor.ab_log_dir", "data/ab_tests")
	v.SetDefault("predictor.cache_ttl_seconds", 300)
	v.SetDefault("predictor.cache_max_size", 1000)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.stream", "linelogic:decisions")
	v.SetDefault("redis.max_len", 10000)

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.allowed_origins", []string{"*"})
	v.SetDefault("api.read_timeout_seconds", 15)
	v.SetDefault("api.write_timeout_seconds", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.recommend", "0 15 * * *")
	v.SetDefault("schedule.settle", "0 9 * * *")
	v.SetDefault("schedule.timeout_seconds", 300)

	v.SetDefault("backtest.initial_bankroll", 10000.0)
	v.SetDefault("backtest.walk_forward_windows", 0)
	v.SetDefault("backtest.warmup_games", 100)
	v.SetDefault("backtest.monte_carlo_runs", 1000)
}
