package postgres

import (
	"context"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/repository"
)

var _ repository.UserRepository = NullUserRepo{}

// NullUserRepo stands in when no DATABASE_URL is configured. Every call
// reports ErrStoreUnavailable so callers degrade to the fast store alone.
type NullUserRepo struct{}

func (NullUserRepo) Register(context.Context, repository.Tx, model.Profile) error {
	return domain.ErrStoreUnavailable
}

func (NullUserRepo) UpdateUsername(context.Context, repository.Tx, int64, string) error {
	return domain.ErrStoreUnavailable
}

func (NullUserRepo) UpdateTimezone(context.Context, repository.Tx, int64, string) error {
	return domain.ErrStoreUnavailable
}

func (NullUserRepo) UpdateRemindTimes(context.Context, repository.Tx, int64, []string) error {
	return domain.ErrStoreUnavailable
}

func (NullUserRepo) SetActive(context.Context, repository.Tx, int64, bool) error {
	return domain.ErrStoreUnavailable
}

func (NullUserRepo) FindByUserID(context.Context, repository.Tx, int64) (*model.UserRecord, error) {
	return nil, domain.ErrStoreUnavailable
}

func (NullUserRepo) FindByExternalUsername(context.Context, repository.Tx, string) ([]*model.UserRecord, error) {
	return nil, domain.ErrStoreUnavailable
}

func (NullUserRepo) List(context.Context, repository.Tx, bool, int, int) ([]*model.UserRecord, int, error) {
	return nil, 0, domain.ErrStoreUnavailable
}

func (NullUserRepo) ListActiveIDs(context.Context, repository.Tx) ([]int64, error) {
	return nil, domain.ErrStoreUnavailable
}

func (NullUserRepo) Stats(context.Context, repository.Tx) (*model.UserStats, error) {
	return nil, domain.ErrStoreUnavailable
}

func (NullUserRepo) Ping(context.Context) error { return domain.ErrStoreUnavailable }
