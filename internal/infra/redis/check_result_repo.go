package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.CheckResultRepository = (*CheckResultRepo)(nil)

// CheckResultRepo carries decoupled-worker output to the scheduler.
type CheckResultRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewCheckResultRepo(client RedisClient, ttl time.Duration) *CheckResultRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CheckResultRepo{client: client, ttl: ttl}
}

// PutResult stores a success payload and clears any stale failure for the same day.
func (r *CheckResultRepo) PutResult(ctx context.Context, userID int64, date string, res *model.CheckResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, resultKey(userID, date), data, r.ttl); err != nil {
		return err
	}
	return r.client.Del(ctx, failureKey(userID, date))
}

func (r *CheckResultRepo) GetResult(ctx context.Context, userID int64, date string) (*model.CheckResult, error) {
	var res model.CheckResult
	ok, err := r.getJSON(ctx, resultKey(userID, date), &res)
	if err != nil || !ok {
		return nil, err
	}
	return &res, nil
}

func (r *CheckResultRepo) PutFailure(ctx context.Context, userID int64, date string, f *model.CheckFailure) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, failureKey(userID, date), data, r.ttl)
}

func (r *CheckResultRepo) GetFailure(ctx context.Context, userID int64, date string) (*model.CheckFailure, error) {
	var f model.CheckFailure
	ok, err := r.getJSON(ctx, failureKey(userID, date), &f)
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

func (r *CheckResultRepo) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return false, err
	}
	return true, nil
}
