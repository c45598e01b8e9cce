// Package api exposes the read side of the store plus a scrape trigger
// over HTTP for the dashboard.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/Nestour97/dsp-scraper/config"
	"github.com/Nestour97/dsp-scraper/internal/model"
	"github.com/Nestour97/dsp-scraper/internal/pipeline"
	"github.com/Nestour97/dsp-scraper/internal/store"
	"github.com/Nestour97/dsp-scraper/logger"
	"github.com/Nestour97/dsp-scraper/services/worker"
)

// Store is the query surface the handlers need.
type Store interface {
	LatestRunID(ctx context.Context) (string, error)
	Rows(ctx context.Context, f store.RowFilter) ([]model.PriceRow, error)
	Diagnostics(ctx context.Context, f store.RowFilter) ([]model.Diagnostic, error)
}

// Runner triggers a scrape cycle on demand.
type Runner interface {
	RunOnce(ctx context.Context, opts pipeline.Options) (worker.Result, error)
}

// Server wires the handlers to a store and a runner.
type Server struct {
	store  Store
	runner Runner
	cfg    config.Config
	log    *logger.Logger
	srv    *http.Server
}

func NewServer(cfg config.Config, st Store, runner Runner) *Server {
	return &Server{
		store:  st,
		runner: runner,
		cfg:    cfg,
		log:    logger.ForAPI(),
	}
}

// Router builds the HTTP handler stack: mux routes wrapped in CORS and
// a per-IP rate limit.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	apiRoutes := r.PathPrefix("/api").Subrouter()
	apiRoutes.HandleFunc("/rows", s.handleRows).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/export.csv", s.handleExportCSV).Methods(http.MethodGet)
	apiRoutes.HandleFunc("/scrape", s.handleScrape).Methods(http.MethodPost)

	lmt := tollbooth.NewLimiter(s.cfg.APIRateLimit, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Hour,
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})

	return c.Handler(tollbooth.LimitHandler(lmt, r))
}

// Start blocks serving HTTP until the listener fails.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	s.log.WithField("addr", s.cfg.ListenAddr).Info().Msg("api listening")
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
