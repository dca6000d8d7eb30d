package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/linelogic/internal/api"
	"github.com/yourusername/linelogic/internal/config"
	"github.com/yourusername/linelogic/internal/health"
	"github.com/yourusername/linelogic/internal/metrics"
	"github.com/yourusername/linelogic/internal/scheduler"
)

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port, overrides api.port")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily recommend and settle jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		orch, err := app.orchestrator(ctx)
		if err != nil {
			return fmt.Errorf("failed to create orchestrator: %w", err)
		}
		settler, err := app.settler()
		if err != nil {
			return fmt.Errorf("failed to create settler: %w", err)
		}

		if bankroll, err := app.ledger.CurrentBankroll(ctx); err == nil {
			metrics.UpdateBankroll(bankroll.InexactFloat64())
		}

		probes := health.NewServer(health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Logger:      appLog,
			Checks:      app.healthChecks(),
		})

		port := cfg.API.Port
		if servePort > 0 {
			port = servePort
		}
		server, err := api.NewServer(api.Config{
			Port:           port,
			AllowedOrigins: cfg.API.AllowedOrigins,
			ReadTimeout:    config.Seconds(cfg.API.ReadTimeoutSeconds, 10*time.Second),
			WriteTimeout:   config.Seconds(cfg.API.WriteTimeoutSeconds, 60*time.Second),
			MetricsPath:    cfg.Metrics.Path,
		}, api.Dependencies{
			Recommender: orch,
			Staking:     app.staking,
			Bankroll:    app.ledger,
			Decisions:   app.repos.Decision,
			Settlements: app.repos.Settlement,
			Checkpoints: app.checkpoints,
			Health:      probes,
		}, appLog)
		if err != nil {
			return fmt.Errorf("failed to create api server: %w", err)
		}

		if cfg.Schedule.Enabled {
			sched := scheduler.NewScheduler(cfg.Location(), config.Seconds(cfg.Schedule.TimeoutSeconds, 10*time.Minute), appLog)
			if _, err := sched.ScheduleRecommend(cfg.Schedule.Recommend, orch); err != nil {
				return err
			}
			if _, err := sched.ScheduleSettle(cfg.Schedule.Settle, settler); err != nil {
				return err
			}
			if cfg.Schedule.Capture != "" {
				if _, err := sched.Schedule("capture", cfg.Schedule.Capture, 0, app.ingester().CaptureDay); err != nil {
					return err
				}
			}
			if err := sched.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			defer func() {
				if err := sched.Stop(); err != nil {
					appLog.WithError(err).Warn("Scheduler did not stop cleanly")
				}
			}()
			appLog.WithFields(logrus.Fields{
				"recommend": cfg.Schedule.Recommend,
				"settle":    cfg.Schedule.Settle,
				"capture":   cfg.Schedule.Capture,
				"next_run":  sched.GetNextRun().Format(time.RFC3339),
				"timezone":  cfg.Location().String(),
			}).Info("Scheduler started")
		}

		probes.SetReady(true)
		appLog.WithFields(logrus.Fields{
			"port":     port,
			"version":  Version,
			"database": cfg.Database.Enabled,
			"redis":    cfg.Redis.Enabled,
		}).Info("linelogic serving")

		err = server.Start(ctx)
		probes.SetReady(false)
		if err != nil {
			return err
		}
		appLog.Info("linelogic stopped")
		return nil
	},
}
