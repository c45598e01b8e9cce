package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nestour97/dsp-scraper/config"
	"github.com/Nestour97/dsp-scraper/internal/api"
	"github.com/Nestour97/dsp-scraper/internal/scheduler"
	"github.com/Nestour97/dsp-scraper/logger"
)

var serveWithScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the price API, optionally with scheduled scraping",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithScheduler, "with-scheduler", false,
		"also run full scrapes on the configured cron expression")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("serve requires POSTGRES_DSN")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := buildApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	if serveWithScheduler {
		sched := scheduler.New(a.worker)
		if err := sched.Schedule(ctx, cfg.ScrapeCron); err != nil {
			return err
		}
		defer func() { <-sched.Stop().Done() }()
		logger.Info("scheduler started with %q", cfg.ScrapeCron)
	}

	srv := api.NewServer(cfg, a.store, a.worker)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
