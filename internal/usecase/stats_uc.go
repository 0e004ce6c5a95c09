package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/repository"
	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/infra/metrics"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase is the read-only reporting view over the durable store.
// Every method returns domain.ErrStoreUnavailable when the store is unreachable.
type StatsUseCase interface {
	Health(ctx context.Context) error
	ListUsers(ctx context.Context, activeOnly bool, offset, limit int) ([]*model.UserRecord, int, error)
	FindByTelegramID(ctx context.Context, userID int64) (*model.UserRecord, error)
	FindByExternalUsername(ctx context.Context, username string) ([]*model.UserRecord, error)
	Stats(ctx context.Context) (*model.UserStats, error)
}

type statsUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, log: logger}
}

func (s *statsUC) Health(ctx context.Context) error {
	err := s.users.Ping(ctx)
	metrics.SetDurableStoreUp(err == nil)
	return err
}

func (s *statsUC) ListUsers(ctx context.Context, activeOnly bool, offset, limit int) ([]*model.UserRecord, int, error) {
	defer logging.TraceDuration(s.log, "StatsUC.ListUsers")()
	if offset < 0 || limit < 0 {
		return nil, 0, domain.ErrInvalidArgument
	}
	return s.users.List(ctx, repository.NoTX, activeOnly, offset, limit)
}

func (s *statsUC) FindByTelegramID(ctx context.Context, userID int64) (*model.UserRecord, error) {
	return s.users.FindByUserID(ctx, repository.NoTX, userID)
}

func (s *statsUC) FindByExternalUsername(ctx context.Context, username string) ([]*model.UserRecord, error) {
	name := model.NormalizeUsername(username)
	if name == "" {
		return nil, domain.ErrInvalidArgument
	}
	return s.users.FindByExternalUsername(ctx, repository.NoTX, name)
}

func (s *statsUC) Stats(ctx context.Context) (*model.UserStats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Stats")()
	return s.users.Stats(ctx, repository.NoTX)
}
