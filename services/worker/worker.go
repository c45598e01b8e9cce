package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Nestour97/dsp-scraper/internal/country"
	"github.com/Nestour97/dsp-scraper/internal/model"
	"github.com/Nestour97/dsp-scraper/internal/pipeline"
	"github.com/Nestour97/dsp-scraper/internal/scraper"
	"github.com/Nestour97/dsp-scraper/logger"
	"github.com/Nestour97/dsp-scraper/services/publisher"
)

// Sink persists the output of a completed run. The Postgres store
// implements it; tests substitute a mock.
type Sink interface {
	SaveRun(ctx context.Context, result Result) error
}

// Result is everything one run produced.
type Result struct {
	RunID       string
	StartedAt   time.Time
	Elapsed     time.Duration
	Rows        []model.PriceRow
	Diagnostics []model.Diagnostic
}

// job is one (scraper, country) unit of work.
type job struct {
	scr         scraper.Scraper
	countryCode string
}

// Worker fans (scraper, country) jobs out over a bounded pool and
// funnels the results through the pipeline to the publisher and sink.
type Worker struct {
	scrapers  []scraper.Scraper
	pipe      *pipeline.Pipeline
	pub       publisher.Publisher
	sink      Sink
	resolver  *country.Resolver
	countries []string
	workers   int
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewWorker creates a new worker. requestRate is the shared outbound
// request budget in requests per second across all pool goroutines.
func NewWorker(
	scrapers []scraper.Scraper,
	pipe *pipeline.Pipeline,
	pub publisher.Publisher,
	resolver *country.Resolver,
	countries []string,
	workers int,
	requestRate float64,
) *Worker {
	if workers <= 0 {
		workers = 1
	}
	burst := int(requestRate)
	if burst < 1 {
		burst = 1
	}
	return &Worker{
		scrapers:  scrapers,
		pipe:      pipe,
		pub:       pub,
		resolver:  resolver,
		countries: countries,
		workers:   workers,
		limiter:   rate.NewLimiter(rate.Limit(requestRate), burst),
		log:       logger.ForWorker(),
	}
}

// SetSink installs the run persistence layer.
func (w *Worker) SetSink(sink Sink) {
	w.sink = sink
}

// Start runs scrape cycles until the context is cancelled, sleeping
// interval between them.
func (w *Worker) Start(ctx context.Context, interval time.Duration, opts pipeline.Options) {
	for {
		result, err := w.RunOnce(ctx, opts)
		if err != nil {
			logger.LogError("Worker", err, "run aborted")
		} else {
			w.log.WithFields(logger.Fields{
				"run_id":      result.RunID,
				"rows":        len(result.Rows),
				"diagnostics": len(result.Diagnostics),
				"elapsed":     result.Elapsed.String(),
			}).Info().Msg("run complete")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// RunOnce executes one full scrape cycle and returns its results. Jobs
// that fail keep the run going; only context cancellation aborts it.
func (w *Worker) RunOnce(ctx context.Context, opts pipeline.Options) (Result, error) {
	result := Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	jobs := make(chan job)
	var mu sync.Mutex
	var wg sync.WaitGroup

	pool := w.workers
	for i := 0; i < pool; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				rows, diags := w.runJob(ctx, j, result.RunID, opts)
				mu.Lock()
				result.Rows = append(result.Rows, rows...)
				result.Diagnostics = append(result.Diagnostics, diags...)
				mu.Unlock()
			}
		}()
	}

	for _, scr := range w.scrapers {
		for _, cc := range w.countries {
			if !opts.Allows(cc) {
				continue
			}
			select {
			case jobs <- job{scr: scr, countryCode: cc}:
			case <-ctx.Done():
				close(jobs)
				wg.Wait()
				return result, ctx.Err()
			}
		}
	}
	close(jobs)
	wg.Wait()

	pipeline.SortRows(result.Rows)
	result.Elapsed = time.Since(result.StartedAt)

	if w.pub != nil {
		if err := w.pub.TrimStreams(); err != nil {
			logger.LogError("StreamTrimming", err, "trim failed after run")
		}
	}
	if w.sink != nil {
		if err := w.sink.SaveRun(ctx, result); err != nil {
			logger.LogError("RunPersistence", err, "saving run %s failed", result.RunID)
		}
	}

	return result, ctx.Err()
}

// runJob fetches one (scraper, country) pair, runs extraction and
// publishes whatever came out.
func (w *Worker) runJob(ctx context.Context, j job, runID string, opts pipeline.Options) ([]model.PriceRow, []model.Diagnostic) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, nil
	}

	in, err := j.scr.FetchPlans(ctx, j.countryCode)
	if err != nil {
		logger.LogError(j.scr.Provider(), err, "fetch failed for %s", j.countryCode)
		diag := w.fetchDiagnostic(j, runID, err)
		if w.pub != nil {
			if perr := w.pub.PublishDiagnostic(diag); perr != nil {
				logger.LogError(j.scr.Provider(), perr, "publishing diagnostic for %s failed", j.countryCode)
			}
		}
		return nil, []model.Diagnostic{diag}
	}
	in.RunID = runID

	rows, diags := w.pipe.Extract(ctx, in, opts)

	if w.pub != nil {
		for _, row := range rows {
			if err := w.pub.PublishRow(row); err != nil {
				logger.LogError(j.scr.Provider(), err, "publishing row for %s failed", j.countryCode)
			}
		}
		for _, d := range diags {
			if err := w.pub.PublishDiagnostic(d); err != nil {
				logger.LogError(j.scr.Provider(), err, "publishing diagnostic for %s failed", j.countryCode)
			}
		}
	}

	return rows, diags
}

func (w *Worker) fetchDiagnostic(j job, runID string, err error) model.Diagnostic {
	name := ""
	if w.resolver != nil {
		name = w.resolver.Name(j.countryCode)
	}
	return model.Diagnostic{
		RunID:       runID,
		Provider:    j.scr.Provider(),
		Country:     name,
		CountryCode: j.countryCode,
		Reason:      model.ReasonCountryFailed,
		Snippet:     err.Error(),
		Timestamp:   time.Now().UTC(),
	}
}
