package repository

import (
	"context"
	"time"

	"leetcode-reminder/internal/domain/model"
)

// -----------------------------
// Fast store
// -----------------------------

// UserConfigCache holds live configuration. Missing values return domain.ErrCacheMiss.
type UserConfigCache interface {
	AddActive(ctx context.Context, userID int64) error
	RemoveActive(ctx context.Context, userID int64) error
	ListActive(ctx context.Context) ([]int64, error)

	SetField(ctx context.Context, userID int64, field, value string) error
	GetField(ctx context.Context, userID int64, field string) (string, error)
	// FillFields writes only the fields the hash does not hold yet.
	FillFields(ctx context.Context, userID int64, fields map[string]string) error
}

// DailyStateRepository stores one DailyState per (user, local date).
// Load never fails on a missing key; it returns the zero state.
type DailyStateRepository interface {
	Load(ctx context.Context, userID int64, date string) (*model.DailyState, error)
	Save(ctx context.Context, userID int64, state *model.DailyState) error
}

// CooldownRepository acquires time-boxed exclusivity slots. Expiry is the only release.
type CooldownRepository interface {
	Acquire(ctx context.Context, userID int64, scope model.CooldownScope, ttl time.Duration) (model.CooldownResult, error)
}

// CheckResultRepository is the channel between the decoupled worker and the scheduler.
// Getters return (nil, nil) when nothing has been written for the key.
type CheckResultRepository interface {
	PutResult(ctx context.Context, userID int64, date string, r *model.CheckResult) error
	GetResult(ctx context.Context, userID int64, date string) (*model.CheckResult, error)
	PutFailure(ctx context.Context, userID int64, date string, f *model.CheckFailure) error
	GetFailure(ctx context.Context, userID int64, date string) (*model.CheckFailure, error)
}
