package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/yourusername/linelogic/internal/features"
	"github.com/yourusername/linelogic/internal/staking"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("isolation", validateIsolation)
	_ = v.RegisterValidation("threshold_policy", validateThresholdPolicy)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateIsolation(fl validator.FieldLevel) bool {
	switch features.Isolation(fl.Field().String()) {
	case features.IsolationRecord, features.IsolationBatch:
		return true
	default:
		return false
	}
}

func validateThresholdPolicy(fl validator.FieldLevel) bool {
	switch staking.ThresholdPolicy(fl.Field().String()) {
	case staking.ThresholdStrict, staking.ThresholdInclusive:
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	caps := cfg.Staking.Caps
	if caps.MaxPerBet > caps.MaxPerGame {
		return fmt.Errorf("staking max_per_bet cannot exceed max_per_game")
	}
	if caps.MaxPerGame > caps.MaxPerDay {
		return fmt.Errorf("staking max_per_game cannot exceed max_per_day")
	}
	if caps.MaxPerBet > caps.MaxPerTeam {
		return fmt.Errorf("staking max_per_bet cannot exceed max_per_team")
	}

	if cfg.Backtest.StartDate != "" && cfg.Backtest.EndDate != "" {
		start, err := time.Parse("2006-01-02", cfg.Backtest.StartDate)
		if err != nil {
			return fmt.Errorf("invalid backtest start_date format: %w", err)
		}
		end, err := time.Parse("2006-01-02", cfg.Backtest.EndDate)
		if err != nil {
			return fmt.Errorf("invalid backtest end_date format: %w", err)
		}
		if !start.Before(end) {
			return fmt.Errorf("backtest start_date must be before end_date")
		}
	}

	if err := validateModelSpec("production", cfg.Predictor.Production); err != nil {
		return err
	}
	if cfg.Predictor.Production.Type == "" {
		return fmt.Errorf("predictor production type is required")
	}
	if cfg.Predictor.StagingPercentage > 0 {
		if cfg.Predictor.Staging.Type == "" {
			return fmt.Errorf("predictor staging_percentage requires a staging model")
		}
		if err := validateModelSpec("staging", cfg.Predictor.Staging); err != nil {
			return err
		}
	}

	if cfg.Database.Enabled && cfg.Database.MinConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("min_connections cannot exceed max_connections")
	}

	if cfg.Schedule.Enabled {
		jobs := map[string]string{
			"recommend": cfg.Schedule.Recommend,
			"settle":    cfg.Schedule.Settle,
			"capture":   cfg.Schedule.Capture,
		}
		for name, expr := range jobs {
			if expr == "" {
				continue
			}
			if _, err := cron.ParseStandard(expr); err != nil {
				return fmt.Errorf("invalid schedule %s expression %q: %w", name, expr, err)
			}
		}
	}

	if cfg.Providers.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Providers.Timezone); err != nil {
			return fmt.Errorf("invalid providers timezone %q: %w", cfg.Providers.Timezone, err)
		}
	}

	return ValidateEnvironment(cfg)
}

func validateModelSpec(stage string, spec ModelSpec) error {
	switch spec.Type {
	case "logistic":
		if spec.WeightsPath == "" {
			return fmt.Errorf("predictor %s logistic model requires weights_path", stage)
		}
	case "http":
		if spec.URL == "" {
			return fmt.Errorf("predictor %s http model requires url", stage)
		}
	}
	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "isolation":
			fmt.Fprintf(&b, "- Field '%s' must be one of: record, batch\n", field)
		case "threshold_policy":
			fmt.Fprintf(&b, "- Field '%s' must be one of: strict, inclusive\n", field)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if !cfg.IsProduction() {
		return nil
	}
	if cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires database SSL mode to be 'require' or 'verify-full'")
	}
	for name, p := range map[string]ProviderConfig{"games": cfg.Providers.Games, "odds": cfg.Providers.Odds} {
		if p.Enabled && isTestCredential(p.APIKey) {
			return fmt.Errorf("production environment should not use a test %s provider api key", name)
		}
	}
	return nil
}

var testCredentialPattern = regexp.MustCompile(`(?i)test|demo|example|placeholder|YOUR_`)

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	return testCredentialPattern.MatchString(credential)
}
