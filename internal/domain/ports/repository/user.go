package repository

import (
	"context"

	"leetcode-reminder/internal/domain/model"
)

// -----------------------------
// Durable user configuration
// -----------------------------

// UserRepository is the durable source of truth for configuration.
// Implementations return domain.ErrStoreUnavailable when the store cannot be reached.
type UserRepository interface {
	Register(ctx context.Context, tx Tx, p model.Profile) error
	UpdateUsername(ctx context.Context, tx Tx, userID int64, username string) error
	UpdateTimezone(ctx context.Context, tx Tx, userID int64, tz string) error
	UpdateRemindTimes(ctx context.Context, tx Tx, userID int64, times []string) error
	SetActive(ctx context.Context, tx Tx, userID int64, active bool) error

	FindByUserID(ctx context.Context, tx Tx, userID int64) (*model.UserRecord, error)
	FindByExternalUsername(ctx context.Context, tx Tx, username string) ([]*model.UserRecord, error)
	List(ctx context.Context, tx Tx, activeOnly bool, offset, limit int) ([]*model.UserRecord, int, error)
	ListActiveIDs(ctx context.Context, tx Tx) ([]int64, error)
	Stats(ctx context.Context, tx Tx) (*model.UserStats, error)
	Ping(ctx context.Context) error
}
