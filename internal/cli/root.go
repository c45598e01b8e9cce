// Package cli defines the command surface: scrape for one-off or
// scheduled runs, serve for the HTTP API.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nestour97/dsp-scraper/config"
	"github.com/Nestour97/dsp-scraper/internal/country"
	"github.com/Nestour97/dsp-scraper/internal/pipeline"
	"github.com/Nestour97/dsp-scraper/internal/plan"
	"github.com/Nestour97/dsp-scraper/internal/pricing"
	"github.com/Nestour97/dsp-scraper/internal/scraper"
	"github.com/Nestour97/dsp-scraper/internal/secondary"
	"github.com/Nestour97/dsp-scraper/internal/store"
	"github.com/Nestour97/dsp-scraper/internal/translate"
	"github.com/Nestour97/dsp-scraper/logger"
	"github.com/Nestour97/dsp-scraper/services/cache"
	"github.com/Nestour97/dsp-scraper/services/publisher"
	"github.com/Nestour97/dsp-scraper/services/worker"
)

var rootCmd = &cobra.Command{
	Use:           "dsp-scraper",
	Short:         "Scrapes and normalizes streaming subscription prices across countries",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Version is stamped at build time via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(Version)
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// app holds the assembled service graph for one process.
type app struct {
	cfg     config.Config
	browser *scraper.Browser
	pub     publisher.Publisher
	store   *store.PostgresStore
	worker  *worker.Worker
}

// buildApp wires the full stack from configuration. withPublisher
// controls whether rows stream to Redis; the serve command can run
// read-only without it.
func buildApp(ctx context.Context, cfg config.Config, withPublisher bool) (*app, error) {
	a := &app{cfg: cfg}

	var cacheSvc cache.CacheService
	if cfg.MemcacheAddr != "" {
		cacheSvc = cache.NewMemcacheService(cfg.MemcacheAddr)
	} else {
		cacheSvc = cache.NewMemoryService(time.Hour, 10*time.Minute)
	}

	var tr translate.Translator = translate.Noop{}
	if cfg.TranslatorProvider == "openai" {
		oa, err := translate.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		tr = translate.NewMemo(oa, cacheSvc, 24*time.Hour)
	}

	resolver := country.NewResolver()
	classifier := plan.NewClassifier(tr)
	selector := pricing.NewSelector(pricing.NewDetector(resolver))
	pipe := pipeline.New(classifier, selector, resolver)

	if cfg.ReferencePricesPath != "" {
		ref, err := secondary.LoadReference(cfg.ReferencePricesPath)
		if err != nil {
			return nil, err
		}
		pipe.SetSecondarySource(ref)
	}

	a.browser = scraper.NewBrowser(cfg)
	scrapers := scraper.CreateScrapers(cfg, cacheSvc, a.browser, resolver)

	if withPublisher {
		a.pub = publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
	}

	a.worker = worker.NewWorker(scrapers, pipe, a.pub, resolver, cfg.Countries, cfg.Workers, cfg.RequestRate)

	if cfg.PostgresDSN != "" {
		st, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.store = st
		a.worker.SetSink(st)
	}

	return a, nil
}

func (a *app) close() {
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			logger.LogError("Browser", err, "closing browser")
		}
	}
	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			logger.LogError("Publisher", err, "closing publisher")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.LogError("Store", err, "closing store")
		}
	}
}
