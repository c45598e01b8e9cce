// Package scheduler drives recurring full runs off a cron expression.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/Nestour97/dsp-scraper/internal/pipeline"
	"github.com/Nestour97/dsp-scraper/logger"
	"github.com/Nestour97/dsp-scraper/services/worker"
)

// Runner matches the worker's RunOnce.
type Runner interface {
	RunOnce(ctx context.Context, opts pipeline.Options) (worker.Result, error)
}

// Scheduler owns the cron instance and triggers full runs.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	log    *logger.Logger
}

func New(runner Runner) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		log:    logger.ForWorker(),
	}
}

// Schedule registers spec (standard five-field cron syntax) and starts
// the cron loop. Runs are skipped while a previous one is in flight;
// scrape cycles can outlast short intervals.
func (s *Scheduler) Schedule(ctx context.Context, spec string) error {
	running := make(chan struct{}, 1)

	_, err := s.cron.AddFunc(spec, func() {
		select {
		case running <- struct{}{}:
		default:
			s.log.Warn().Msg("previous run still in flight, skipping scheduled run")
			return
		}
		defer func() { <-running }()

		result, err := s.runner.RunOnce(ctx, pipeline.Options{Mode: pipeline.ModeFull})
		if err != nil {
			logger.LogError("Scheduler", err, "scheduled run failed")
			return
		}
		s.log.WithFields(logger.Fields{
			"run_id": result.RunID,
			"rows":   len(result.Rows),
		}).Info().Msg("scheduled run complete")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling; the returned context is done when any running
// job completes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
