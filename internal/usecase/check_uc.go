package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/adapter"
	"leetcode-reminder/internal/domain/ports/repository"
	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/infra/metrics"
	"leetcode-reminder/internal/infra/worker"
)

// Compile-time check
var _ CheckUseCase = (*checkUC)(nil)

// CheckUseCase is the decoupled worker's sweep. It only writes results to the fast store.
type CheckUseCase interface {
	RunAll(ctx context.Context) (CheckRunReport, error)
}

type CheckRunReport struct {
	Users   int
	Skipped int
	Solved  int
	Pending int
	Failed  int
}

type checkUC struct {
	store     repository.ConfigStore
	results   repository.CheckResultRepository
	cooldowns repository.CooldownRepository
	checker   adapter.StatusChecker
	pool      *worker.Pool
	// cooldown dedups checks across worker replicas. Zero disables it.
	cooldown time.Duration
	log      *zerolog.Logger
	now      func() time.Time

	mu  sync.Mutex
	rep CheckRunReport
}

func NewCheckUseCase(
	store repository.ConfigStore,
	results repository.CheckResultRepository,
	cooldowns repository.CooldownRepository,
	checker adapter.StatusChecker,
	pool *worker.Pool,
	cooldown time.Duration,
	logger *zerolog.Logger,
) *checkUC {
	l := logger.With().Str("component", "CheckUseCase").Logger()
	return &checkUC{
		store:     store,
		results:   results,
		cooldowns: cooldowns,
		checker:   checker,
		pool:      pool,
		cooldown:  cooldown,
		log:       &l,
		now:       time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (c *checkUC) SetClock(now func() time.Time) { c.now = now }

// RunAll fans the active users out to the pool and waits for every queued check.
func (c *checkUC) RunAll(ctx context.Context) (CheckRunReport, error) {
	defer logging.TraceDuration(c.log, "CheckUC.RunAll")()

	ids, err := c.store.ListActive(ctx)
	if err != nil {
		return CheckRunReport{}, err
	}

	c.mu.Lock()
	c.rep = CheckRunReport{Users: len(ids)}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		cfg, err := c.store.UserConfig(ctx, id)
		if err != nil || !cfg.Linked() {
			c.count(func(r *CheckRunReport) { r.Skipped++ })
			continue
		}
		if c.cooldown > 0 {
			slot, err := c.cooldowns.Acquire(ctx, id, model.ScopeScheduler, c.cooldown)
			if err != nil || !slot.Acquired {
				c.count(func(r *CheckRunReport) { r.Skipped++ })
				continue
			}
		}

		wg.Add(1)
		if err := c.pool.SubmitWait(ctx, c.createCheckTask(cfg, &wg)); err != nil {
			wg.Done()
			c.log.Warn().Err(err).Int64("user_id", id).Msg("failed to submit check task")
			break
		}
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Info().
		Int("users", c.rep.Users).
		Int("solved", c.rep.Solved).
		Int("pending", c.rep.Pending).
		Int("failed", c.rep.Failed).
		Int("skipped", c.rep.Skipped).
		Msg("check sweep finished")
	return c.rep, ctx.Err()
}

func (c *checkUC) count(fn func(r *CheckRunReport)) {
	c.mu.Lock()
	fn(&c.rep)
	c.mu.Unlock()
}

// createCheckTask creates a closure for the worker pool to execute.
func (c *checkUC) createCheckTask(cfg *model.UserConfig, wg *sync.WaitGroup) worker.Task {
	return func(ctx context.Context) error {
		defer wg.Done()

		now := c.now()
		date := model.LocalDate(now, cfg.Location)
		solved, info, err := c.checker.SolvedToday(ctx, cfg.ExternalUsername, cfg.Timezone)
		metrics.IncStatusCheck("worker", outcome(solved, err))

		if err != nil {
			c.count(func(r *CheckRunReport) { r.Failed++ })
			f := &model.CheckFailure{
				Kind:      domain.KindOf(err),
				Message:   err.Error(),
				CheckedAt: now.Unix(),
				Username:  cfg.ExternalUsername,
			}
			if perr := c.results.PutFailure(ctx, cfg.UserID, date, f); perr != nil {
				c.log.Warn().Err(perr).Int64("user_id", cfg.UserID).Msg("failed to store check failure")
			}
			return nil
		}

		c.count(func(r *CheckRunReport) {
			if solved {
				r.Solved++
			} else {
				r.Pending++
			}
		})
		res := &model.CheckResult{Solved: solved, Info: info, CheckedAt: now.Unix(), Username: cfg.ExternalUsername}
		if perr := c.results.PutResult(ctx, cfg.UserID, date, res); perr != nil {
			c.log.Warn().Err(perr).Int64("user_id", cfg.UserID).Msg("failed to store check result")
		}
		return nil
	}
}
