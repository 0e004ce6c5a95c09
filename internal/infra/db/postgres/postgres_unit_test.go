//go:build !integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"leetcode-reminder/internal/config"
	"leetcode-reminder/internal/domain"
)

func TestMapErr(t *testing.T) {
	if mapErr(nil) != nil {
		t.Error("nil must stay nil")
	}
	if !errors.Is(mapErr(pgx.ErrNoRows), domain.ErrNotFound) {
		t.Error("no rows must map to ErrNotFound")
	}
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	if got := mapErr(pgErr); got != pgErr {
		t.Errorf("server errors must pass through, got %v", got)
	}
	if !errors.Is(mapErr(errors.New("dial tcp: connection refused")), domain.ErrStoreUnavailable) {
		t.Error("transport errors must map to ErrStoreUnavailable")
	}
}

func TestGetExecutor(t *testing.T) {
	if _, err := getExecutor(nil, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("nil pool and nil tx: got %v", err)
	}
	if _, err := getExecutor(nil, "not-a-tx"); !errors.Is(err, domain.ErrInvalidExecContext) {
		t.Errorf("unknown tx type: got %v", err)
	}
}

func TestNullUserRepo(t *testing.T) {
	ctx := context.Background()
	var repo NullUserRepo
	if err := repo.Ping(ctx); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("Ping: %v", err)
	}
	if _, err := repo.FindByUserID(ctx, nil, 1); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("FindByUserID: %v", err)
	}
	if _, _, err := repo.List(ctx, nil, true, 0, 10); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("List: %v", err)
	}
	if err := repo.UpdateRemindTimes(ctx, nil, 1, nil); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("UpdateRemindTimes: %v", err)
	}
}

func TestPoolConfigIsLazy(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/db", 7)
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if !cfg.LazyConnect || cfg.MaxConns != 7 {
		t.Errorf("expected lazy pool with 7 conns, got lazy=%v max=%d", cfg.LazyConnect, cfg.MaxConns)
	}
	if _, err := poolConfig("postgres://u:p@localhost:notaport/db", 0); err == nil {
		t.Error("expected parse error")
	}
}

func TestOpenDurable(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("no url runs without durable store", func(t *testing.T) {
		d, err := OpenDurable(ctx, config.DatabaseConfig{}, &logger)
		if err != nil {
			t.Fatalf("OpenDurable: %v", err)
		}
		if _, ok := d.Users.(NullUserRepo); !ok || d.Tx != nil || d.Pool != nil {
			t.Errorf("expected null durable store, got %+v", d)
		}
		d.Close()
	})

	t.Run("unreachable database keeps a live repository", func(t *testing.T) {
		d, err := OpenDurable(ctx, config.DatabaseConfig{URL: "postgres://u:p@127.0.0.1:1/db?connect_timeout=1", MaxConns: 2}, &logger)
		if err != nil {
			t.Fatalf("OpenDurable: %v", err)
		}
		defer d.Close()
		if _, ok := d.Users.(*UserRepo); !ok {
			t.Fatalf("expected *UserRepo, got %T", d.Users)
		}
		if d.Tx == nil || d.Pool == nil {
			t.Fatal("expected tx manager and pool")
		}
		if err := d.Users.Ping(ctx); !errors.Is(err, domain.ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable per call, got %v", err)
		}
	})
}
