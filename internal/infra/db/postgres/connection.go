package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"leetcode-reminder/internal/config"
	"leetcode-reminder/internal/domain/ports/repository"
	"leetcode-reminder/internal/infra/metrics"
)

// NewPgxPool parses dsn, applies maxConns and pings once.
func NewPgxPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// ReportPoolStats publishes pool gauges every interval until ctx is done.
func ReportPoolStats(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s := pool.Stat()
		metrics.SetDBPoolStats(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Durable bundles the durable-store handles the services wire together.
// Pool is nil when no database is configured.
type Durable struct {
	Users repository.UserRepository
	Tx    repository.TransactionManager
	Pool  *pgxpool.Pool
}

func (d Durable) Close() {
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// poolConfig parses dsn for a lazily connecting pool: no connection is made
// until the first query, so a database that is down at boot is picked up once
// it comes back.
func poolConfig(dsn string, maxConns int32) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.LazyConnect = true
	return cfg, nil
}

// OpenDurable builds the durable store. An empty URL yields NullUserRepo for
// the process lifetime. Otherwise the pool connects lazily and every call
// reports ErrStoreUnavailable while the database is unreachable.
func OpenDurable(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (Durable, error) {
	if cfg.URL == "" {
		logger.Warn().Msg("database.url not set; running without durable store")
		metrics.SetDurableStoreUp(false)
		return Durable{Users: NullUserRepo{}}, nil
	}
	pcfg, err := poolConfig(cfg.URL, cfg.MaxConns)
	if err != nil {
		return Durable{}, err
	}
	pool, err := pgxpool.ConnectConfig(ctx, pcfg)
	if err != nil {
		return Durable{}, fmt.Errorf("create postgres pool: %w", err)
	}
	users := NewUserRepo(pool)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := users.Ping(pctx); err != nil {
		logger.Error().Err(err).Msg("durable store unreachable at startup; will retry per call")
		metrics.SetDurableStoreUp(false)
	} else {
		metrics.SetDurableStoreUp(true)
	}
	return Durable{Users: users, Tx: NewTxManager(pool), Pool: pool}, nil
}
