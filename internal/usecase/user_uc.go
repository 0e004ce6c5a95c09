package usecase

import (
	"context"
	"errors"
	"fmt"
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
var _ UserUseCase = (*userUC)(nil)

// UserUseCase backs the chat command layer.
type UserUseCase interface {
	Register(ctx context.Context, p model.Profile) error
	Deactivate(ctx context.Context, userID int64) error

	// LinkUsername verifies the username against the status source before saving it.
	LinkUsername(ctx context.Context, p model.Profile, raw string) (string, error)
	Username(ctx context.Context, userID int64) (string, error)

	SetTimezone(ctx context.Context, userID int64, tz string) (string, error)
	Timezone(ctx context.Context, userID int64) (string, error)

	RemindTimes(ctx context.Context, userID int64) ([]string, error)
	SetRemindTime(ctx context.Context, userID int64, hhmm string) error
	AddRemindTime(ctx context.Context, userID int64, hhmm string) ([]string, error)
	DeleteRemindTime(ctx context.Context, userID int64, hhmm string) ([]string, error)

	CheckNow(ctx context.Context, userID int64) (*CheckOutcome, error)
	Status(ctx context.Context, userID int64) (*StatusView, error)
}

// UserPolicy tunes interactive checks.
type UserPolicy struct {
	ValidationAttempts  int
	InteractiveCooldown time.Duration
}

// CheckOutcome is the answer to an on-demand check.
type CheckOutcome struct {
	Username string
	Solved   bool
	Info     *model.AcceptedSubmission
}

// StatusView is the resolved configuration plus, for linked users, an on-demand check.
// CheckErr carries the classified check failure, cooldown included.
type StatusView struct {
	Config   *model.UserConfig
	Check    *CheckOutcome
	CheckErr error
}

type userUC struct {
	store     repository.ConfigStore
	checker   adapter.StatusChecker
	cooldowns repository.CooldownRepository
	policy    UserPolicy
	log       *zerolog.Logger
}

func NewUserUseCase(
	store repository.ConfigStore,
	checker adapter.StatusChecker,
	cooldowns repository.CooldownRepository,
	policy UserPolicy,
	logger *zerolog.Logger,
) *userUC {
	if policy.ValidationAttempts <= 0 {
		policy.ValidationAttempts = 2
	}
	l := logger.With().Str("component", "UserUseCase").Logger()
	return &userUC{store: store, checker: checker, cooldowns: cooldowns, policy: policy, log: &l}
}

func (u *userUC) Register(ctx context.Context, p model.Profile) error {
	defer logging.TraceDuration(u.log, "UserUC.Register")()
	if p.UserID == 0 {
		return domain.ErrInvalidArgument
	}
	if err := u.store.Register(ctx, p); err != nil {
		return err
	}
	metrics.IncUsersRegistered()
	return nil
}

func (u *userUC) Deactivate(ctx context.Context, userID int64) error {
	defer logging.TraceDuration(u.log, "UserUC.Deactivate")()
	return u.store.SetActive(ctx, userID, false)
}

func (u *userUC) LinkUsername(ctx context.Context, p model.Profile, raw string) (string, error) {
	defer logging.TraceDuration(u.log, "UserUC.LinkUsername")()

	name := model.NormalizeUsername(raw)
	if err := model.ValidateUsername(name); err != nil {
		return "", err
	}
	cfg, err := u.store.UserConfig(ctx, p.UserID)
	if err != nil {
		return "", err
	}

	_, _, err = u.checker.SolvedToday(ctx, name, cfg.Timezone, adapter.WithMaxAttempts(u.policy.ValidationAttempts))
	metrics.IncStatusCheck("validation", outcome(false, err))
	if err != nil {
		logging.With(ctx, u.log).Info().Err(err).Str("kind", string(domain.KindOf(err))).Msg("username validation failed")
		return "", err
	}

	if err := u.store.Link(ctx, p, name); err != nil {
		return "", err
	}
	return name, nil
}

func (u *userUC) Username(ctx context.Context, userID int64) (string, error) {
	return u.store.Username(ctx, userID)
}

func (u *userUC) SetTimezone(ctx context.Context, userID int64, tz string) (string, error) {
	loc, err := model.LoadTimezone(tz)
	if err != nil {
		return "", err
	}
	if err := u.store.SetTimezone(ctx, userID, loc.String()); err != nil {
		return "", err
	}
	return loc.String(), nil
}

// Timezone returns the effective zone, default included.
func (u *userUC) Timezone(ctx context.Context, userID int64) (string, error) {
	cfg, err := u.store.UserConfig(ctx, userID)
	if err != nil {
		return "", err
	}
	return cfg.Timezone, nil
}

// RemindTimes returns the effective times, defaults included.
func (u *userUC) RemindTimes(ctx context.Context, userID int64) ([]string, error) {
	cfg, err := u.store.UserConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cfg.RemindTimes, nil
}

// SetRemindTime replaces the list with a single time.
func (u *userUC) SetRemindTime(ctx context.Context, userID int64, hhmm string) error {
	times, err := model.NormalizeRemindTimes([]string{hhmm})
	if err != nil {
		return err
	}
	return u.store.SetRemindTimes(ctx, userID, times)
}

func (u *userUC) AddRemindTime(ctx context.Context, userID int64, hhmm string) ([]string, error) {
	if err := model.ValidateRemindTime(hhmm); err != nil {
		return nil, err
	}
	cur, err := u.RemindTimes(ctx, userID)
	if err != nil {
		return nil, err
	}
	times, err := model.NormalizeRemindTimes(append(append([]string(nil), cur...), hhmm))
	if err != nil {
		return nil, err
	}
	if err := u.store.SetRemindTimes(ctx, userID, times); err != nil {
		return nil, err
	}
	return times, nil
}

// DeleteRemindTime removes hhmm and returns domain.ErrNotFound when it is not configured.
func (u *userUC) DeleteRemindTime(ctx context.Context, userID int64, hhmm string) ([]string, error) {
	if err := model.ValidateRemindTime(hhmm); err != nil {
		return nil, err
	}
	cur, err := u.RemindTimes(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(cur))
	found := false
	for _, t := range cur {
		if t == hhmm {
			found = true
			continue
		}
		out = append(out, t)
	}
	if !found {
		return cur, domain.ErrNotFound
	}
	if err := u.store.SetRemindTimes(ctx, userID, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckNow queries the source directly, guarded by the interactive cooldown slot.
func (u *userUC) CheckNow(ctx context.Context, userID int64) (*CheckOutcome, error) {
	defer logging.TraceDuration(u.log, "UserUC.CheckNow")()

	cfg, err := u.store.UserConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.checkNow(ctx, cfg)
}

func (u *userUC) checkNow(ctx context.Context, cfg *model.UserConfig) (*CheckOutcome, error) {
	if !cfg.Linked() {
		return nil, domain.ErrUsernameNotLinked
	}
	slot, err := u.cooldowns.Acquire(ctx, cfg.UserID, model.ScopeInteractive, u.policy.InteractiveCooldown)
	if err != nil {
		return nil, fmt.Errorf("acquire cooldown: %w", err)
	}
	if !slot.Acquired {
		return nil, &domain.CooldownError{Remaining: slot.Remaining}
	}

	solved, info, err := u.checker.SolvedToday(ctx, cfg.ExternalUsername, cfg.Timezone)
	metrics.IncStatusCheck("interactive", outcome(solved, err))
	if err != nil {
		return &CheckOutcome{Username: cfg.ExternalUsername}, err
	}
	return &CheckOutcome{Username: cfg.ExternalUsername, Solved: solved, Info: info}, nil
}

func (u *userUC) Status(ctx context.Context, userID int64) (*StatusView, error) {
	cfg, err := u.store.UserConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &StatusView{Config: cfg}
	if !cfg.Linked() {
		return view, nil
	}
	view.Check, view.CheckErr = u.checkNow(ctx, cfg)
	if view.CheckErr != nil && !errors.Is(view.CheckErr, domain.ErrCooldownActive) {
		logging.With(ctx, u.log).Debug().Err(view.CheckErr).Msg("status check failed")
	}
	return view, nil
}
