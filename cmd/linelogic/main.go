// Package main provides the linelogic command line interface.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/linelogic/internal/config"
	"github.com/yourusername/linelogic/internal/logger"
	"github.com/yourusername/linelogic/internal/models"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
	app        *application
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")

	rootCmd.AddCommand(
		recommendCmd,
		settleCmd,
		backtestCmd,
		ratingsCmd,
		ingestCmd,
		featuresCmd,
		statusCmd,
		serveCmd,
		versionCmd,
	)
}

var rootCmd = &cobra.Command{
	Use:   "linelogic",
	Short: "Paper betting recommendations from Elo ratings",
	Long: `linelogic rates teams with Elo, engineers leak-free features, prices
moneyline markets and sizes stakes with fractional Kelly. Every decision is
recorded for later settlement; nothing is ever placed with a bookmaker.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print build information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("linelogic %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if app != nil {
		app.Close()
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	// Secrets are overlaid before validation so required passwords can come
	// from the secret rather than the file.
	if cfg.Secrets.Enabled || os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		cfg.Secrets.Enabled = true
		if region := os.Getenv("AWS_REGION"); region != "" {
			cfg.Secrets.Region = region
		}
		if name := os.Getenv("AWS_SECRET_NAME"); name != "" {
			cfg.Secrets.SecretName = name
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"mode":        cfg.App.Mode,
		"version":     Version,
	}).Debug("Configuration loaded")
	return nil
}

// parseDay reads a YYYY-MM-DD flag. An empty value means today's calendar day
// in the configured timezone.
func parseDay(value string) (time.Time, error) {
	if value == "" {
		local := time.Now().In(cfg.Location())
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return day, nil
}

// parseRange reads a start and end flag pair, defaulting to fallback values
// from configuration.
func parseRange(start, end, fallbackStart, fallbackEnd string) (time.Time, time.Time, error) {
	if start == "" {
		start = fallbackStart
	}
	if end == "" {
		end = fallbackEnd
	}
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--start and --end are required")
	}
	s, err := models.ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
	}
	e, err := models.ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
	}
	if s.After(e) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s", start, end)
	}
	return s, e, nil
}
