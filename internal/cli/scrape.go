package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Nestour97/dsp-scraper/config"
	"github.com/Nestour97/dsp-scraper/internal/pipeline"
	"github.com/Nestour97/dsp-scraper/internal/scheduler"
	"github.com/Nestour97/dsp-scraper/internal/store"
	"github.com/Nestour97/dsp-scraper/logger"
)

var (
	scrapeCountries []string
	scrapeCSVPath   string
	scrapeSchedule  bool
	scrapeNoPublish bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run a scrape cycle over the configured providers and countries",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().StringSliceVar(&scrapeCountries, "countries", nil,
		"restrict the run to these country codes (test mode)")
	scrapeCmd.Flags().StringVar(&scrapeCSVPath, "csv", "",
		"write the run's rows to this CSV file")
	scrapeCmd.Flags().BoolVar(&scrapeSchedule, "schedule", false,
		"keep running on the configured cron expression instead of once")
	scrapeCmd.Flags().BoolVar(&scrapeNoPublish, "no-publish", false,
		"skip publishing rows to Redis")
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := buildApp(ctx, cfg, !scrapeNoPublish)
	if err != nil {
		return err
	}
	defer a.close()

	opts := pipeline.Options{Mode: pipeline.ModeFull}
	if len(scrapeCountries) > 0 {
		opts = pipeline.Options{Mode: pipeline.ModeTest, CountryFilter: scrapeCountries}
	}

	if scrapeSchedule {
		sched := scheduler.New(a.worker)
		if err := sched.Schedule(ctx, cfg.ScrapeCron); err != nil {
			return err
		}
		logger.Info("scheduler started with %q", cfg.ScrapeCron)
		<-ctx.Done()
		<-sched.Stop().Done()
		return nil
	}

	result, err := a.worker.RunOnce(ctx, opts)
	if err != nil {
		return err
	}

	logger.Info("run %s finished: %d rows, %d diagnostics in %s",
		result.RunID, len(result.Rows), len(result.Diagnostics), result.Elapsed)

	if scrapeCSVPath != "" {
		f, err := os.Create(scrapeCSVPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := store.WriteCSV(f, result.Rows); err != nil {
			return err
		}
		logger.Info("wrote %d rows to %s", len(result.Rows), scrapeCSVPath)
	}

	return nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
