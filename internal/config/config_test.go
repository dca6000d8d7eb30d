package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linelogic/internal/features"
	"github.com/yourusername/linelogic/internal/staking"
)

const (
	validConfigPath       = "testdata/valid_config.yaml"
	invalidConfigPath     = "testdata/invalid_config.yaml"
	nonexistentConfigPath = "testdata/nonexistent_config.yaml"
)

func TestLoadConfigSuccess(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "expanded_secret_value")

	cfg, err := Load(validConfigPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "linelogic", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "expanded_secret_value", cfg.Database.Password)
	assert.Equal(t, 20.0, cfg.Rating.KFactor)
	assert.Equal(t, "data/ratings.json", cfg.Rating.CheckpointPath)
	assert.Equal(t, features.IsolationRecord, cfg.Features.Isolation)
	assert.Equal(t, 0.02, cfg.Staking.MinEdge)
	assert.Equal(t, staking.ThresholdStrict, cfg.Staking.ThresholdPolicy)
	assert.Equal(t, 0.10, cfg.Staking.Caps.MaxPerGame)
	assert.Equal(t, "fanduel", cfg.Providers.Odds.Bookmaker)

	// Unset keys fall back to defaults.
	assert.Equal(t, 120, cfg.Recommend.HistoryDays)
	assert.Equal(t, "elo", cfg.Predictor.Production.Type)

	require.NoError(t, Validate(cfg))
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load(nonexistentConfigPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	require.NoError(t, err)

	assert.Equal(t, "linelogic", cfg.App.Name)
	assert.Equal(t, 0.25, cfg.Staking.KellyFraction)
	assert.Equal(t, 10, cfg.Features.Window)
	assert.Equal(t, "America/New_York", cfg.Providers.Timezone)
	require.NoError(t, Validate(cfg))
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("LINELOGIC_APP_NAME", "test-app")
	t.Setenv("LINELOGIC_STAKING_KELLY_FRACTION", "0.5")

	cfg, err := Load(validConfigPath)
	require.NoError(t, err)

	assert.Equal(t, "test-app", cfg.App.Name)
	assert.Equal(t, 0.5, cfg.Staking.KellyFraction)
}

func TestLoadConfigMissingExpansionVariable(t *testing.T) {
	cfg, err := Load(validConfigPath)
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers.Games.APIKey)
}

func TestValidateRejectsCustomTags(t *testing.T) {
	cfg, err := Load(invalidConfigPath)
	require.NoError(t, err)

	err = Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "Environment")
	assert.Contains(t, msg, "LogLevel")
	assert.Contains(t, msg, "must be one of: record, batch")
	assert.Contains(t, msg, "must be one of: strict, inclusive")
}

func TestValidateCrossField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "per bet above per game",
			mutate: func(c *Config) { c.Staking.Caps.MaxPerBet = 0.2 },
			errMsg: "max_per_bet cannot exceed max_per_game",
		},
		{
			name:   "per game above per day",
			mutate: func(c *Config) { c.Staking.Caps.MaxPerGame = 0.3 },
			errMsg: "max_per_game cannot exceed max_per_day",
		},
		{
			name: "backtest range reversed",
			mutate: func(c *Config) {
				c.Backtest.StartDate = "2024-02-01"
				c.Backtest.EndDate = "2024-01-01"
			},
			errMsg: "start_date must be before end_date",
		},
		{
			name:   "logistic without weights",
			mutate: func(c *Config) { c.Predictor.Production.Type = "logistic" },
			errMsg: "requires weights_path",
		},
		{
			name:   "staging share without model",
			mutate: func(c *Config) { c.Predictor.StagingPercentage = 10 },
			errMsg: "requires a staging model",
		},
		{
			name: "bad capture schedule",
			mutate: func(c *Config) {
				c.Schedule = ScheduleConfig{
					Enabled:   true,
					Recommend: "0 10 * * *",
					Settle:    "0 6 * * *",
					Capture:   "every noon",
				}
			},
			errMsg: "invalid schedule capture expression",
		},
		{
			name:   "unknown timezone",
			mutate: func(c *Config) { c.Providers.Timezone = "Mars/Olympus" },
			errMsg: "invalid providers timezone",
		},
		{
			name: "production without ssl",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Database.Enabled = true
				c.Database.Host = "db"
				c.Database.Name = "linelogic"
				c.Database.User = "linelogic"
			},
			errMsg: "requires database SSL mode",
		},
		{
			name: "production with test key",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Providers.Odds.APIKey = "YOUR_ODDS_KEY"
			},
			errMsg: "test odds provider api key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDatabaseRequiredWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Database.Enabled = true

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Database.Host' is required")
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Host = "localhost"
	cfg.Database.Name = "linelogic"

	assert.Equal(t, "postgres://u:p@localhost:5432/linelogic?sslmode=disable", cfg.GetDatabaseDSN())
}

func TestLocation(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "America/New_York", cfg.Location().String())

	cfg.Providers.Timezone = ""
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestReloadFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: reloaded\n"), 0o600))
	t.Setenv("LINELOGIC_CONFIG_PATH", path)

	cfg := Default()
	require.NoError(t, ReloadFromEnv(cfg))
	assert.Equal(t, "reloaded", cfg.App.Name)
	assert.Equal(t, "paper", cfg.App.Mode)
}

func TestParseSecretData(t *testing.T) {
	out := &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"database_password":"pw","odds_api_key":"odds"}`),
	}
	secrets, err := parseSecretData(out)
	require.NoError(t, err)

	cfg := Default()
	cfg.Providers.Games.APIKey = "keep"
	overlaySecretsOnConfig(cfg, secrets)

	assert.Equal(t, "pw", cfg.Database.Password)
	assert.Equal(t, "odds", cfg.Providers.Odds.APIKey)
	assert.Equal(t, "keep", cfg.Providers.Games.APIKey)

	_, err = parseSecretData(&secretsmanager.GetSecretValueOutput{})
	assert.ErrorIs(t, err, errNoSecretDataFound)

	_, err = parseSecretData(&secretsmanager.GetSecretValueOutput{SecretString: aws.String("{")})
	assert.Error(t, err)
}
