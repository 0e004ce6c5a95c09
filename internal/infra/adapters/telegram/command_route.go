package telegram

import (
	"context"
	"errors"
	"math"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/usecase"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

var menuCommands = []struct{ name, desc string }{
	{"start", "Enable reminders"},
	{"help", "List commands"},
	{"setusername", "Link a LeetCode username"},
	{"username", "Show the linked username"},
	{"timezone", "Change timezone"},
	{"tz", "Show timezone"},
	{"listremind", "List reminder times"},
	{"setremind", "Replace reminder times"},
	{"addremind", "Add a reminder time"},
	{"delremind", "Remove a reminder time"},
	{"check", "Check today's status"},
	{"status", "Settings and today's status"},
	{"stop", "Disable reminders"},
}

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":       r.handleStartCommand,
		"help":        r.handleHelpCommand,
		"stop":        r.handleStopCommand,
		"setusername": r.handleSetUsernameCommand,
		"username":    r.handleUsernameCommand,
		"timezone":    r.handleTimezoneCommand,
		"tz":          r.handleTZCommand,
		"listremind":  r.handleListRemindCommand,
		"setremind":   r.handleSetRemindCommand,
		"addremind":   r.handleAddRemindCommand,
		"delremind":   r.handleDelRemindCommand,
		"check":       r.handleCheckCommand,
		"status":      r.handleStatusCommand,
	}
}

func profileOf(message *tgbotapi.Message) model.Profile {
	return model.Profile{
		UserID:    message.Chat.ID,
		Username:  message.From.UserName,
		FirstName: message.From.FirstName,
		LastName:  message.From.LastName,
	}
}

func args(message *tgbotapi.Message) string {
	return strings.TrimSpace(message.CommandArguments())
}

// fail logs err and answers with the generic error text.
func (r *RealTelegramBotAdapter) fail(ctx context.Context, message *tgbotapi.Message, err error) error {
	logging.With(ctx, r.log).Error().Err(err).Str("command", message.Command()).Msg("command failed")
	return r.reply(ctx, message, r.tr.T("error_generic"))
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	if err := r.users.Register(ctx, profileOf(message)); err != nil {
		return r.fail(ctx, message, err)
	}
	return r.reply(ctx, message, r.tr.T("start"))
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.reply(ctx, message, r.tr.T("help"))
}

func (r *RealTelegramBotAdapter) handleStopCommand(ctx context.Context, message *tgbotapi.Message) error {
	if err := r.users.Deactivate(ctx, message.Chat.ID); err != nil {
		return r.fail(ctx, message, err)
	}
	return r.reply(ctx, message, r.tr.T("stop"))
}

func (r *RealTelegramBotAdapter) handleSetUsernameCommand(ctx context.Context, message *tgbotapi.Message) error {
	raw := args(message)
	if raw == "" {
		return r.reply(ctx, message, r.tr.T("setusername_usage"))
	}
	name, err := r.users.LinkUsername(ctx, profileOf(message), raw)
	switch {
	case err == nil:
		return r.reply(ctx, message, r.tr.T("setusername_ok", name))
	case domain.IsValidation(err):
		return r.reply(ctx, message, r.tr.T("setusername_invalid"))
	case domain.IsNotFound(err):
		return r.reply(ctx, message, r.tr.T("setusername_not_found", model.NormalizeUsername(raw)))
	default:
		logging.With(ctx, r.log).Warn().Err(err).Msg("username validation unavailable")
		return r.reply(ctx, message, r.tr.T("setusername_unavailable"))
	}
}

func (r *RealTelegramBotAdapter) handleUsernameCommand(ctx context.Context, message *tgbotapi.Message) error {
	name, err := r.users.Username(ctx, message.Chat.ID)
	if err != nil {
		return r.fail(ctx, message, err)
	}
	if name == "" {
		name = r.tr.T("not_linked")
	}
	return r.reply(ctx, message, r.tr.T("username_show", name))
}

func (r *RealTelegramBotAdapter) handleTimezoneCommand(ctx context.Context, message *tgbotapi.Message) error {
	raw := args(message)
	if raw == "" {
		return r.reply(ctx, message, r.tr.T("timezone_usage"))
	}
	tz, err := r.users.SetTimezone(ctx, message.Chat.ID, raw)
	if domain.IsValidation(err) {
		return r.reply(ctx, message, r.tr.T("timezone_invalid"))
	}
	if err != nil {
		return r.fail(ctx, message, err)
	}
	return r.reply(ctx, message, r.tr.T("timezone_ok", tz))
}

func (r *RealTelegramBotAdapter) handleTZCommand(ctx context.Context, message *tgbotapi.Message) error {
	tz, err := r.users.Timezone(ctx, message.Chat.ID)
	if err != nil {
		return r.fail(ctx, message, err)
	}
	return r.reply(ctx, message, r.tr.T("tz_show", tz))
}

func (r *RealTelegramBotAdapter) joinTimes(times []string) string {
	if len(times) == 0 {
		return r.tr.T("none")
	}
	return strings.Join(times, ", ")
}

func (r *RealTelegramBotAdapter) handleListRemindCommand(ctx context.Context, message *tgbotapi.Message) error {
	tz, err := r.users.Timezone(ctx, message.Chat.ID)
	if err != nil {
		return r.fail(ctx, message, err)
	}
	times, err := r.users.RemindTimes(ctx, message.Chat.ID)
	if err != nil {
		return r.fail(ctx, message, err)
	}
	return r.reply(ctx, message, r.tr.T("listremind", tz, r.joinTimes(times)))
}

func (r *RealTelegramBotAdapter) handleSetRemindCommand(ctx context.Context, message *tgbotapi.Message) error {
	hhmm := args(message)
	if hhmm == "" {
		return r.reply(ctx, message, r.tr.T("setremind_usage"))
	}
	err := r.users.SetRemindTime(ctx, message.Chat.ID, hhmm)
	if domain.IsValidation(err) {
		return r.reply(ctx, message, r.tr.T("remind_invalid"))
	}
	if err != nil {
		return r.fail(ctx, message, err)
	}
	return r.reply(ctx, message, r.tr.T("setremind_ok", hhmm))
}

func (r *RealTelegramBotAdapter) handleAddRemindCommand(ctx context.Context, message *tgbotapi.Message) error {
	hhmm := args(message)
	if hhmm == "" {
		return r.reply(ctx, message, r.tr.T("addremind_usage"))
	}
	times, err := r.users.AddRemindTime(ctx, message.Chat.ID, hhmm)
	if domain.IsValidation(err) {
		return r.reply(ctx, message, r.tr.T("remind_invalid"))
	}
	if err != nil {
		return r.fail(ctx, message, err)
	}
	return r.reply(ctx, message, r.tr.T("addremind_ok", hhmm, r.joinTimes(times)))
}

func (r *RealTelegramBotAdapter) handleDelRemindCommand(ctx context.Context, message *tgbotapi.Message) error {
	hhmm := args(message)
	if hhmm == "" {
		return r.reply(ctx, message, r.tr.T("delremind_usage"))
	}
	times, err := r.users.DeleteRemindTime(ctx, message.Chat.ID, hhmm)
	switch {
	case domain.IsValidation(err):
		return r.reply(ctx, message, r.tr.T("remind_invalid"))
	case errors.Is(err, domain.ErrNotFound):
		return r.reply(ctx, message, r.tr.T("delremind_missing"))
	case err != nil:
		return r.fail(ctx, message, err)
	}
	return r.reply(ctx, message, r.tr.T("delremind_ok", hhmm, r.joinTimes(times)))
}

func (r *RealTelegramBotAdapter) handleCheckCommand(ctx context.Context, message *tgbotapi.Message) error {
	out, err := r.users.CheckNow(ctx, message.Chat.ID)
	if err != nil && !isCheckOutcome(err) {
		return r.fail(ctx, message, err)
	}
	return r.reply(ctx, message, r.checkText(out, err))
}

func (r *RealTelegramBotAdapter) handleStatusCommand(ctx context.Context, message *tgbotapi.Message) error {
	view, err := r.users.Status(ctx, message.Chat.ID)
	if err != nil {
		return r.fail(ctx, message, err)
	}
	cfg := view.Config
	times := r.joinTimes(cfg.RemindTimes)
	if !cfg.Linked() {
		return r.reply(ctx, message, r.tr.T("status_unlinked", cfg.Timezone, times))
	}
	return r.reply(ctx, message, r.tr.T("status", cfg.ExternalUsername, cfg.Timezone, times, r.checkText(view.Check, view.CheckErr)))
}

// isCheckOutcome reports whether err has a dedicated user-facing reply.
func isCheckOutcome(err error) bool {
	var se *domain.StatusError
	return errors.Is(err, domain.ErrUsernameNotLinked) ||
		errors.Is(err, domain.ErrCooldownActive) ||
		errors.As(err, &se)
}

func (r *RealTelegramBotAdapter) checkText(out *usecase.CheckOutcome, err error) string {
	var cd *domain.CooldownError
	switch {
	case errors.Is(err, domain.ErrUsernameNotLinked):
		return r.tr.T("check_unlinked")
	case errors.As(err, &cd):
		return r.tr.T("check_cooldown", int(math.Ceil(cd.Remaining.Seconds())))
	case domain.IsNotFound(err):
		name := ""
		if out != nil {
			name = out.Username
		}
		return r.tr.T("check_not_found", name)
	case err != nil:
		return r.tr.T("check_unavailable")
	case out != nil && out.Solved && out.Info != nil:
		return r.tr.T("check_solved", out.Info.Title, out.Info.CompletedAt, out.Info.Lang, model.ProblemLink(out.Info.Slug))
	default:
		return r.tr.T("check_not_solved")
	}
}
