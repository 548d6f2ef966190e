package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/turf-ledger/internal/health"
	"github.com/yourusername/turf-ledger/internal/scheduler"
)

var runOnStart bool

func init() {
	serveCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run a settlement pass immediately on startup")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run settlement passes on the configured schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateConfig(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, appLog)
		if err != nil {
			return err
		}
		defer a.Close()

		sched := scheduler.NewScheduler(a.orchestrator, appLog)
		if err := sched.ScheduleSettlement(cfg.Settlement.Schedule); err != nil {
			return err
		}

		var healthServer *health.Server
		if cfg.Metrics.Enabled {
			healthServer = health.NewServer(health.Config{
				ServiceName: cfg.App.Name,
				Version:     Version,
				Commit:      GitCommit,
				Port:        cfg.Metrics.Port,
				MetricsPath: cfg.Metrics.Path,
				StaleAfter:  staleAfter(cfg.Settlement.Schedule, time.Now()),
				Logger:      appLog,
				DB:          a.db,
				Passes:      a.orchestrator,
			})
			if err := healthServer.Start(ctx); err != nil {
				return err
			}
		}

		if err := sched.Start(); err != nil {
			return err
		}
		if healthServer != nil {
			healthServer.SetReady(true)
		}

		appLog.WithFields(logrus.Fields{
			"environment": cfg.App.Environment,
			"schedule":    cfg.Settlement.Schedule,
			"next_run":    sched.GetNextRun().Format(time.RFC3339),
			"events":      cfg.Events.Enabled,
			"telegram":    cfg.Notifications.Telegram.Enabled,
		}).Info("Settlement service started")

		if runOnStart {
			go func() {
				if _, err := sched.RunOnce(ctx); err != nil && ctx.Err() == nil {
					appLog.WithError(err).Error("Startup settlement pass failed")
				}
			}()
		}

		<-ctx.Done()
		appLog.Info("Shutdown signal received")

		if healthServer != nil {
			healthServer.SetReady(false)
		}
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Error("Failed to stop scheduler")
		}
		waitForPass(sched, 30*time.Second)

		appLog.Info("Settlement service stopped")
		return nil
	},
}

// waitForPass waits for a startup pass outside the scheduler to finish
func waitForPass(sched *scheduler.Scheduler, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for sched.PassInProgress() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// staleAfter allows three schedule intervals to pass before the service reports
// settlement as stale
func staleAfter(expr string, now time.Time) time.Duration {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return 0
	}
	next := schedule.Next(now)
	return 3 * schedule.Next(next).Sub(next)
}
