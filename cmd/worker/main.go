// File: cmd/worker/main.go
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

	"golang.org/x/sync/errgroup"

	"leetcode-reminder/internal/config"
	"leetcode-reminder/internal/infra/adapters/leetcode"
	"leetcode-reminder/internal/infra/api"
	pg "leetcode-reminder/internal/infra/db/postgres"
	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/infra/metrics"
	red "leetcode-reminder/internal/infra/redis"
	"leetcode-reminder/internal/infra/sched"
	"leetcode-reminder/internal/infra/store"
	"leetcode-reminder/internal/infra/worker"
	"leetcode-reminder/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	durable, err := pg.OpenDurable(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer durable.Close()

	configStore := store.NewConfigStore(
		red.NewUserConfigCache(redisClient),
		durable.Users,
		durable.Tx,
		store.Defaults{Timezone: cfg.Reminder.DefaultTimezone, RemindTimes: cfg.Reminder.DefaultRemindTimes},
		logger,
	)
	results := red.NewCheckResultRepo(redisClient, cfg.Worker.ResultTTL)
	cooldowns := red.NewCooldownRepo(redisClient)

	session, err := leetcode.NewSession(cfg.LeetCode.BaseURL, cfg.LeetCode.RequestTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("leetcode session")
	}
	checker := leetcode.NewChecker(session, cfg.LeetCode, logger, cfg.Runtime.Dev)

	// ---- Worker pool ----
	wp := worker.NewPool(cfg.Worker.Concurrency, logger)
	wp.Start(ctx)
	defer wp.Stop()

	// Replicas sharing Redis skip users another replica checked this interval.
	checkUC := usecase.NewCheckUseCase(configStore, results, cooldowns, checker, wp, cfg.Worker.Interval-time.Minute, logger)
	sweeper, err := sched.NewCheckWorker(cfg.Worker.Interval, checkUC, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("check worker")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sweeper.Run(gctx) })
	if durable.Pool != nil {
		g.Go(func() error {
			pg.ReportPoolStats(gctx, durable.Pool, 15*time.Second)
			return nil
		})
	}

	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", api.Chain(metrics.Handler(), api.Recover(logger)))
	admin := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:           adminMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return admin.Shutdown(shutdownCtx)
	})

	logger.Info().
		Dur("interval", cfg.Worker.Interval).
		Int("concurrency", wp.Size()).
		Msg("status check worker started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}
