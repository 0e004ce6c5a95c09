package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/adapter"
	"leetcode-reminder/internal/domain/ports/repository"
	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/infra/metrics"
)

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

// Translator renders user-facing message templates.
type Translator interface {
	T(key string, args ...interface{}) string
}

// ReminderUseCase runs one scheduler pass over every active user.
type ReminderUseCase interface {
	Tick(ctx context.Context) (TickReport, error)
}

// TickReport summarizes a single pass.
type TickReport struct {
	Users     int
	Skipped   int
	Checks    int
	Congrats  int
	Reminders int
	Notices   int
	Failures  int
	// Deferred counts users whose check was postponed because the tick ran
	// out of check budget. Their reminders still ran.
	Deferred int
}

// ReminderPolicy carries the scheduler timing knobs.
type ReminderPolicy struct {
	CheckInterval         time.Duration
	ErrorNoticeWindow     time.Duration
	RateLimitNoticeWindow time.Duration
	// UseWorker reads results written by the decoupled worker instead of calling the checker.
	UseWorker bool

	// CheckTimeout bounds a single scheduler check.
	CheckTimeout time.Duration
	// CheckAttempts is the scheduler's attempt budget per check.
	CheckAttempts int
	// CheckBudget caps the wall time one tick spends on checks. Users reached
	// after it proceed with status unknown and are checked first next tick.
	CheckBudget time.Duration
}

type reminderUC struct {
	store    repository.ConfigStore
	states   repository.DailyStateRepository
	results  repository.CheckResultRepository
	checker  adapter.StatusChecker
	notifier adapter.Notifier
	tr       Translator
	policy   ReminderPolicy
	log      *zerolog.Logger
	now      func() time.Time

	// Tick is not reentrant; the worker runs passes serially.
	checkUntil time.Time
	resume     int64
}

func NewReminderUseCase(
	store repository.ConfigStore,
	states repository.DailyStateRepository,
	results repository.CheckResultRepository,
	checker adapter.StatusChecker,
	notifier adapter.Notifier,
	tr Translator,
	policy ReminderPolicy,
	logger *zerolog.Logger,
) *reminderUC {
	if policy.CheckTimeout <= 0 {
		policy.CheckTimeout = 30 * time.Second
	}
	if policy.CheckAttempts <= 0 {
		policy.CheckAttempts = 1
	}
	if policy.CheckBudget <= 0 {
		policy.CheckBudget = 2 * time.Minute
	}
	l := logger.With().Str("component", "ReminderUseCase").Logger()
	return &reminderUC{
		store:    store,
		states:   states,
		results:  results,
		checker:  checker,
		notifier: notifier,
		tr:       tr,
		policy:   policy,
		log:      &l,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (r *reminderUC) SetClock(now func() time.Time) { r.now = now }

// Tick processes users sequentially. A failing user is counted and logged; the pass continues.
// Status checks share one wall-clock budget per tick so a slow source cannot
// starve reminders of the users behind it.
func (r *reminderUC) Tick(ctx context.Context) (TickReport, error) {
	defer logging.TraceDuration(r.log, "ReminderUC.Tick")()

	var rep TickReport
	ids, err := r.store.ListActive(ctx)
	if err != nil {
		return rep, fmt.Errorf("list active users: %w", err)
	}
	ids = rotateFrom(ids, r.resume)
	r.resume = 0
	start := time.Now()
	r.checkUntil = start.Add(r.policy.CheckBudget)
	if dl, ok := ctx.Deadline(); ok {
		// keep at least half of the tick window for reminders
		if half := start.Add(dl.Sub(start) / 2); half.Before(r.checkUntil) {
			r.checkUntil = half
		}
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Users++
		uctx := logging.WithUserID(ctx, id)
		if err := r.processUser(uctx, id, &rep); err != nil {
			rep.Failures++
			logging.With(uctx, r.log).Warn().Err(err).Msg("user processing failed")
		}
	}
	if rep.Deferred > 0 {
		r.log.Warn().Int("deferred", rep.Deferred).Int64("resume_from", r.resume).Msg("check budget exhausted; remaining users ran with status unknown")
	}
	metrics.IncSchedulerTick()
	return rep, nil
}

// rotateFrom starts the ascending ids at the first id >= from, wrapping around.
func rotateFrom(ids []int64, from int64) []int64 {
	for i, id := range ids {
		if id >= from {
			if i == 0 {
				return ids
			}
			return append(append(make([]int64, 0, len(ids)), ids[i:]...), ids[:i]...)
		}
	}
	return ids
}

func (r *reminderUC) processUser(ctx context.Context, userID int64, rep *TickReport) error {
	cfg, err := r.store.UserConfig(ctx, userID)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Linked() {
		rep.Skipped++
		return nil
	}

	now := r.now()
	today := model.LocalDate(now, cfg.Location)
	st, err := r.states.Load(ctx, userID, today)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if st.Date == "" {
		st.Date = today
	}

	solved, info, checkErr, err := r.status(ctx, cfg, st, now, rep)
	if err != nil {
		return err
	}
	if checkErr != nil {
		if err := r.notifyFailure(ctx, cfg, st, checkErr, now, rep); err != nil {
			return err
		}
	}
	if st.CongratsSent {
		return nil
	}
	if solved {
		return r.congratulate(ctx, cfg, st, info, rep)
	}
	return r.remind(ctx, cfg, st, now, rep)
}

// status returns the solved flag for today. checkErr is a classified source failure,
// err is a storage failure that aborts the user.
func (r *reminderUC) status(ctx context.Context, cfg *model.UserConfig, st *model.DailyState, now time.Time, rep *TickReport) (solved bool, info *model.AcceptedSubmission, checkErr error, err error) {
	if r.policy.UseWorker {
		return r.workerStatus(ctx, cfg, st.Date)
	}
	if !st.CheckDue(now, r.policy.CheckInterval) {
		return false, nil, nil, nil
	}

	if time.Now().After(r.checkUntil) {
		if rep.Deferred == 0 {
			r.resume = cfg.UserID
		}
		rep.Deferred++
		return false, nil, nil, nil
	}

	cctx, cancel := context.WithTimeout(ctx, r.policy.CheckTimeout)
	solved, info, checkErr = r.checker.SolvedToday(cctx, cfg.ExternalUsername, cfg.Timezone, adapter.WithMaxAttempts(r.policy.CheckAttempts))
	cancel()
	rep.Checks++
	metrics.IncStatusCheck("scheduler", outcome(solved, checkErr))
	st.MarkChecked(now)
	if err := r.states.Save(ctx, cfg.UserID, st); err != nil {
		return false, nil, nil, fmt.Errorf("save state: %w", err)
	}
	return solved, info, checkErr, nil
}

// workerStatus prefers a success payload over a failure payload. Nothing written yet reads as unknown.
func (r *reminderUC) workerStatus(ctx context.Context, cfg *model.UserConfig, date string) (bool, *model.AcceptedSubmission, error, error) {
	res, err := r.results.GetResult(ctx, cfg.UserID, date)
	if err != nil {
		return false, nil, nil, fmt.Errorf("read worker result: %w", err)
	}
	if res != nil && sameUser(res.Username, cfg.ExternalUsername) {
		return res.Solved, res.Info, nil, nil
	}
	f, err := r.results.GetFailure(ctx, cfg.UserID, date)
	if err != nil {
		return false, nil, nil, fmt.Errorf("read worker failure: %w", err)
	}
	if f != nil && sameUser(f.Username, cfg.ExternalUsername) {
		return false, nil, f.Err(), nil
	}
	return false, nil, nil, nil
}

// Payloads written for a previously linked username are ignored.
func sameUser(written, current string) bool {
	return written == "" || strings.EqualFold(written, current)
}

func (r *reminderUC) notifyFailure(ctx context.Context, cfg *model.UserConfig, st *model.DailyState, checkErr error, now time.Time, rep *TickReport) error {
	rateLimited := domain.IsRateLimited(checkErr)
	window := r.policy.ErrorNoticeWindow
	if rateLimited {
		window = r.policy.RateLimitNoticeWindow
	}
	logging.With(ctx, r.log).Debug().Err(checkErr).Str("kind", string(domain.KindOf(checkErr))).Msg("status check failed")
	if !st.ErrorNoticeDue(rateLimited, now, window) {
		return nil
	}

	var text string
	switch {
	case domain.IsNotFound(checkErr):
		text = r.tr.T("notice_not_found", cfg.ExternalUsername)
	case rateLimited:
		text = r.tr.T("notice_rate_limited")
	default:
		text = r.tr.T("notice_transient", cfg.ExternalUsername)
	}
	r.send(ctx, "error_notice", cfg.UserID, text)
	st.MarkErrorNotice(rateLimited, now)
	rep.Notices++
	if err := r.states.Save(ctx, cfg.UserID, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (r *reminderUC) congratulate(ctx context.Context, cfg *model.UserConfig, st *model.DailyState, info *model.AcceptedSubmission, rep *TickReport) error {
	if info == nil {
		info = &model.AcceptedSubmission{}
	}
	r.send(ctx, "congrats", cfg.UserID, r.tr.T("congrats", info.Title, info.CompletedAt, info.Lang, model.ProblemLink(info.Slug)))
	st.MarkCongratulated()
	rep.Congrats++
	if err := r.states.Save(ctx, cfg.UserID, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// remind fires every due slot in ascending order and persists after each one.
func (r *reminderUC) remind(ctx context.Context, cfg *model.UserConfig, st *model.DailyState, now time.Time, rep *TickReport) error {
	for _, hhmm := range cfg.RemindTimes {
		if st.Reminded(hhmm) {
			continue
		}
		at, err := model.RemindAt(now, cfg.Location, hhmm)
		if err != nil {
			continue
		}
		if now.Before(at) {
			break
		}
		r.send(ctx, "reminder", cfg.UserID, r.tr.T("reminder_due", cfg.Timezone, hhmm))
		st.MarkReminded(hhmm)
		rep.Reminders++
		if err := r.states.Save(ctx, cfg.UserID, st); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	return nil
}

// send delivers at most once. Delivery failures are logged and counted only.
func (r *reminderUC) send(ctx context.Context, kind string, userID int64, text string) {
	err := r.notifier.SendMessage(ctx, userID, text)
	metrics.IncNotification(kind, err == nil)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Str("kind", kind).Msg("notification not delivered")
	}
}

func outcome(solved bool, err error) string {
	switch {
	case err != nil:
		return string(domain.KindOf(err))
	case solved:
		return "solved"
	default:
		return "not_solved"
	}
}
