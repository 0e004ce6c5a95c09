package repository

import (
	"context"

	"leetcode-reminder/internal/domain/model"
)

// ConfigStore is the two-tier view of user configuration used by the use cases.
// Writes land in the fast store first and are mirrored to the durable store on a
// best-effort basis; reads fall back to the durable store on a fast-store miss.
type ConfigStore interface {
	Register(ctx context.Context, p model.Profile) error
	// Link registers p and sets its external username; the durable mirror
	// of both writes is a single transaction.
	Link(ctx context.Context, p model.Profile, username string) error
	SetActive(ctx context.Context, userID int64, active bool) error
	SetUsername(ctx context.Context, userID int64, username string) error
	SetTimezone(ctx context.Context, userID int64, tz string) error
	SetRemindTimes(ctx context.Context, userID int64, times []string) error

	// Getters return the zero value when the field was never set.
	Username(ctx context.Context, userID int64) (string, error)
	Timezone(ctx context.Context, userID int64) (string, error)
	RemindTimes(ctx context.Context, userID int64) ([]string, bool, error)

	// UserConfig resolves a complete config with defaults applied.
	UserConfig(ctx context.Context, userID int64) (*model.UserConfig, error)
	ListActive(ctx context.Context) ([]int64, error)
}
