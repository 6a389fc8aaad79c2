package commands

import (
	"bookmeter-discounts/internal/components/chrono"
	"bookmeter-discounts/internal/server"
	"bookmeter-discounts/lib/telemetry"
	"bookmeter-discounts/lib/timezone"
	"bookmeter-discounts/lib/util/serviceutil"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the discount ranking as JSON, optionally running the pipeline on a schedule.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath, nil)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cfg.Schedule != "" {
			err = cfg.Validate()
		} else {
			err = cfg.ValidateCatalog()
		}
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}

		ctx := cmd.Context()
		defer setupTelemetry(ctx)()
		telemetry.InstrumentPerfStats(ctx, 30*time.Second)

		db, store, err := openCatalog(cfg)
		if err != nil {
			serviceutil.Fatal("failed to open catalog", err)
		}
		defer db.Close()

		if cfg.Schedule != "" {
			pipeline, err := newPipeline(cfg, store)
			if err != nil {
				serviceutil.Fatal("failed to create pipeline", err)
			}
			notifier := newNotifier(cfg)

			location, err := timezone.Load(cfg.Timezone)
			if err != nil {
				serviceutil.Fatal("invalid timezone", err)
			}
			scheduler := chrono.NewStandardCron(tel, chrono.NewStandardImpl(location))
			defer scheduler.Stop()

			job := scheduledRun(func() {
				err := runOnce(ctx, pipeline, notifier, cfg.limit(), io.Discard, io.Discard)
				if err != nil {
					slog.Error("scheduled run failed", "err", err)
				}
			})
			err = scheduler.Cron(cfg.Schedule, job)
			if err != nil {
				serviceutil.Fatal("failed to schedule pipeline", err)
			}
			slog.Info("pipeline scheduled", "schedule", cfg.Schedule)
		}

		srv := server.NewServer(store, cfg.limit(), tel)
		err = serviceutil.StartHttpServer(ctx, cfg.ListenAddr, srv.Handler())
		if err != nil {
			serviceutil.Fatal("http server stopped", err)
		}
	},
}

// scheduledRun wraps `run` so that a tick arriving while the previous run
// is still going is skipped instead of queued.
func scheduledRun(run func()) func() {
	var mutex sync.Mutex
	return func() {
		if !mutex.TryLock() {
			slog.Warn("previous run still in progress, skipping")
			return
		}
		defer mutex.Unlock()
		run()
	}
}
