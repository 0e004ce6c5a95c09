package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/usecase"
)

// CheckWorker runs the status sweep of the decoupled worker on a gocron schedule.
type CheckWorker struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	uc        usecase.CheckUseCase
	log       *zerolog.Logger
}

func NewCheckWorker(interval time.Duration, uc usecase.CheckUseCase, logger *zerolog.Logger) (*CheckWorker, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	compLog := logger.With().Str("component", "CheckWorker").Logger()
	return &CheckWorker{scheduler: s, interval: interval, uc: uc, log: &compLog}, nil
}

// Run schedules the sweep, starts immediately and blocks until ctx is done.
// Overlapping runs are rescheduled rather than stacked.
func (w *CheckWorker) Run(ctx context.Context) error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.runSweep(ctx) }),
		gocron.WithName("status-check-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep job: %w", err)
	}

	w.log.Info().Dur("interval", w.interval).Msg("Starting check worker")
	w.scheduler.Start()

	<-ctx.Done()
	w.log.Info().Msg("Stopping check worker")
	if err := w.scheduler.Shutdown(); err != nil {
		w.log.Warn().Err(err).Msg("scheduler shutdown")
	}
	return ctx.Err()
}

func (w *CheckWorker) runSweep(ctx context.Context) {
	sctx := logging.WithTraceID(ctx, ulid.Make().String())
	start := time.Now()
	rep, err := w.uc.RunAll(sctx)
	l := logging.With(sctx, w.log)
	if err != nil {
		l.Error().Err(err).Msg("status sweep failed")
		return
	}
	l.Info().Int("users", rep.Users).Int("failed", rep.Failed).Dur("took", time.Since(start)).Msg("status sweep done")
}
