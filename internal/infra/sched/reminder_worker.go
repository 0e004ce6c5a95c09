package sched

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/usecase"
)

// ReminderWorker drives the scheduler loop at a fixed poll interval.
type ReminderWorker struct {
	interval time.Duration
	timeout  time.Duration
	uc       usecase.ReminderUseCase
	log      *zerolog.Logger
}

func NewReminderWorker(interval, tickTimeout time.Duration, uc usecase.ReminderUseCase, logger *zerolog.Logger) *ReminderWorker {
	compLog := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{
		interval: interval,
		timeout:  tickTimeout,
		uc:       uc,
		log:      &compLog,
	}
}

// Run ticks once on startup, then on every interval. Cancelling ctx stops the
// sleep immediately; a tick already in progress runs to completion.
func (w *ReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting reminder worker")
	w.runTick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping reminder worker")
			return ctx.Err()
		case <-ticker.C:
			w.runTick(ctx)
		}
	}
}

func (w *ReminderWorker) runTick(ctx context.Context) {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()
	tctx = logging.WithTraceID(tctx, ulid.Make().String())
	l := logging.With(tctx, w.log)

	start := time.Now()
	rep, err := w.uc.Tick(tctx)
	if err != nil {
		l.Error().Err(err).Msg("reminder tick failed")
		return
	}
	ev := l.Debug()
	if rep.Congrats+rep.Reminders+rep.Notices+rep.Failures > 0 {
		ev = l.Info()
	}
	ev.Int("users", rep.Users).
		Int("skipped", rep.Skipped).
		Int("checks", rep.Checks).
		Int("congrats", rep.Congrats).
		Int("reminders", rep.Reminders).
		Int("notices", rep.Notices).
		Int("failures", rep.Failures).
		Dur("took", time.Since(start)).
		Msg("reminder tick done")
}
