// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"leetcode-reminder/internal/config"
	"leetcode-reminder/internal/domain/ports/adapter"
	"leetcode-reminder/internal/infra/adapters/leetcode"
	tele "leetcode-reminder/internal/infra/adapters/telegram"
	"leetcode-reminder/internal/infra/api"
	pg "leetcode-reminder/internal/infra/db/postgres"
	"leetcode-reminder/internal/infra/i18n"
	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/infra/metrics"
	red "leetcode-reminder/internal/infra/redis"
	"leetcode-reminder/internal/infra/sched"
	"leetcode-reminder/internal/infra/store"
	"leetcode-reminder/internal/usecase"
)

// set via -ldflags
var (
	version = "dev"
	commit  = "none"
)

const noopToken = "noop"

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose checker)")
	mintFor := flag.String("mint-token", "", "print a reporting API token for the given subject and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *mintFor != "" {
		tok, err := api.MintToken(cfg.API.JWTSecret, *mintFor, 30*24*time.Hour)
		if err != nil {
			log.Fatalf("mint token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Postgres (optional) ----
	durable, err := pg.OpenDurable(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer durable.Close()

	// ---- Stores ----
	configStore := store.NewConfigStore(
		red.NewUserConfigCache(redisClient),
		durable.Users,
		durable.Tx,
		store.Defaults{Timezone: cfg.Reminder.DefaultTimezone, RemindTimes: cfg.Reminder.DefaultRemindTimes},
		logger,
	)
	states := red.NewDailyStateRepo(redisClient, cfg.Reminder.StateRetention)
	results := red.NewCheckResultRepo(redisClient, cfg.Worker.ResultTTL)
	cooldowns := red.NewCooldownRepo(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Adapters ----
	session, err := leetcode.NewSession(cfg.LeetCode.BaseURL, cfg.LeetCode.RequestTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("leetcode session")
	}
	checker := leetcode.NewChecker(session, cfg.LeetCode, logger, cfg.Runtime.Dev)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(configStore, checker, cooldowns, usecase.UserPolicy{
		ValidationAttempts:  cfg.LeetCode.ValidationAttempts,
		InteractiveCooldown: cfg.LeetCode.InteractiveCooldown,
	}, logger)
	statsUC := usecase.NewStatsUseCase(durable.Users, logger)

	g, gctx := errgroup.WithContext(ctx)

	// ---- Telegram ----
	var notifier adapter.Notifier
	if cfg.Bot.Token == noopToken {
		notifier = tele.NewNoopBotAdapter(logger)
	} else {
		bot, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, userUC, rateLimiter, tr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram bot")
		}
		notifier = bot
		g.Go(func() error { return bot.StartPolling(gctx) })
	}

	// ---- Scheduler ----
	reminderUC := usecase.NewReminderUseCase(configStore, states, results, checker, notifier, tr, usecase.ReminderPolicy{
		CheckInterval:         cfg.Reminder.CheckInterval,
		ErrorNoticeWindow:     cfg.Reminder.ErrorNoticeWindow,
		RateLimitNoticeWindow: cfg.Reminder.RateLimitNoticeWindow,
		UseWorker:             cfg.Reminder.UseWorker,
		CheckTimeout:          cfg.LeetCode.RequestTimeout + 10*time.Second,
		CheckAttempts:         cfg.Reminder.CheckAttempts,
		CheckBudget:           cfg.Reminder.CheckBudget,
	}, logger)
	reminders := sched.NewReminderWorker(cfg.Reminder.PollInterval, cfg.Reminder.TickTimeout, reminderUC, logger)
	g.Go(func() error { return reminders.Run(gctx) })

	if durable.Pool != nil {
		g.Go(func() error {
			pg.ReportPoolStats(gctx, durable.Pool, 15*time.Second)
			return nil
		})
	}

	// ---- HTTP ----
	apiSrv := api.NewServer(statsUC, cfg.API.JWTSecret, logger)
	g.Go(serveHTTP(gctx, &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           apiSrv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}, logger))

	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", api.Chain(metrics.Handler(), api.Recover(logger)))
	g.Go(serveHTTP(gctx, &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:           adminMux,
		ReadHeaderTimeout: 5 * time.Second,
	}, logger))

	logger.Info().
		Str("version", version).
		Bool("use_worker", cfg.Reminder.UseWorker).
		Int("api_port", cfg.API.Port).
		Int("admin_port", cfg.Admin.Port).
		Msg("reminder service started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("reminder service stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

// serveHTTP runs srv until ctx is done, then drains it.
func serveHTTP(ctx context.Context, srv *http.Server, logger *zerolog.Logger) func() error {
	return func() error {
		errc := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", srv.Addr).Msg("http listening")
			errc <- srv.ListenAndServe()
		}()
		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("http %s: %w", srv.Addr, err)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}
