package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"leetcode-reminder/internal/config"
	"leetcode-reminder/internal/domain/ports/adapter"
	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/infra/metrics"
	red "leetcode-reminder/internal/infra/redis"
	"leetcode-reminder/internal/usecase"
)

var _ adapter.Notifier = (*RealTelegramBotAdapter)(nil)

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// commandLimiter is satisfied by *redis.RateLimiter.
type commandLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RealTelegramBotAdapter polls Telegram for commands and delivers scheduler notifications.
type RealTelegramBotAdapter struct {
	api     botAPI
	users   usecase.UserUseCase
	limiter commandLimiter
	tr      usecase.Translator
	log     *zerolog.Logger

	rateMax int
	rateWin time.Duration
	// updateWorkers is how many goroutines will concurrently process updates.
	updateWorkers int
	cancelPolling context.CancelFunc
}

// NewRealTelegramBotAdapter connects to the Bot API with cfg.Token.
func NewRealTelegramBotAdapter(cfg *config.BotConfig, users usecase.UserUseCase, limiter *red.RateLimiter, tr usecase.Translator, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if users == nil {
		return nil, errors.New("user use case is nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	var lim commandLimiter
	if limiter != nil {
		lim = limiter
	}
	return newBotAdapter(api, cfg, users, lim, tr, logger), nil
}

func newBotAdapter(api botAPI, cfg *config.BotConfig, users usecase.UserUseCase, limiter commandLimiter, tr usecase.Translator, logger *zerolog.Logger) *RealTelegramBotAdapter {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	compLog := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		api:           api,
		users:         users,
		limiter:       limiter,
		tr:            tr,
		log:           &compLog,
		rateMax:       cfg.RateMax,
		rateWin:       cfg.RateWin,
		updateWorkers: workers,
	}
}

// StartPolling begins polling Telegram for updates concurrently.
// It runs until ctx is canceled.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if err := r.SetMenuCommands(ctx); err != nil {
		r.log.Warn().Err(err).Msg("failed to set menu commands")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel
	defer cancel()

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, update); err != nil {
						r.log.Warn().Err(err).Int("worker", workerID).Msg("error handling update")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	r.log.Info().Int("workers", r.updateWorkers).Msg("Telegram polling started")
	<-ctx.Done()
	r.api.StopReceivingUpdates()
	wg.Wait()
	r.log.Info().Msg("Telegram polling stopped")
	return nil
}

// StopPolling stops the polling loop gracefully.
func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// SendMessage delivers text to the private chat of userID.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(userID, text)
	msg.DisableWebPagePreview = true
	_, err := r.api.Send(msg)
	return err
}

// SetMenuCommands publishes the command list shown by Telegram clients.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context) error {
	cmds := make([]tgbotapi.BotCommand, 0, len(menuCommands))
	for _, c := range menuCommands {
		cmds = append(cmds, tgbotapi.BotCommand{Command: c.name, Description: c.desc})
	}
	_, err := r.api.Request(tgbotapi.NewSetMyCommands(cmds...))
	return err
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return nil
	}

	ctx = logging.WithTraceID(ctx, ulid.Make().String())
	ctx = logging.WithUserID(ctx, msg.Chat.ID)
	cmd := msg.Command()
	metrics.IncTelegramCommand("/" + cmd)

	if r.limiter != nil && r.rateMax > 0 {
		allowed, err := r.limiter.Allow(ctx, red.UserCommandKey(msg.Chat.ID, "cmd"), r.rateMax, r.rateWin)
		if err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter unavailable")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return r.reply(ctx, msg, r.tr.T("rate_limited"))
		}
	}

	handler, ok := r.commandRoutes()[cmd]
	if !ok {
		return r.reply(ctx, msg, r.tr.T("unknown_command"))
	}
	return handler(ctx, msg)
}

func (r *RealTelegramBotAdapter) reply(ctx context.Context, msg *tgbotapi.Message, text string) error {
	return r.SendMessage(ctx, msg.Chat.ID, text)
}
