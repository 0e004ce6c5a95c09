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

var _ repository.DailyStateRepository = (*DailyStateRepo)(nil)

// DailyStateRepo stores a JSON document per (user, date) with a retention TTL.
type DailyStateRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewDailyStateRepo(client RedisClient, ttl time.Duration) *DailyStateRepo {
	if ttl <= 0 {
		ttl = 8 * 24 * time.Hour
	}
	return &DailyStateRepo{client: client, ttl: ttl}
}

// Load returns the zero state for a missing or unreadable document.
func (r *DailyStateRepo) Load(ctx context.Context, userID int64, date string) (*model.DailyState, error) {
	data, err := r.client.Get(ctx, stateKey(userID, date))
	if errors.Is(err, redis.Nil) {
		return model.NewDailyState(date), nil
	}
	if err != nil {
		return nil, err
	}

	var st model.DailyState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return model.NewDailyState(date), nil
	}
	// The key is authoritative for the date.
	st.Date = date
	if st.RemindedTimes == nil {
		st.RemindedTimes = []string{}
	}
	return &st, nil
}

func (r *DailyStateRepo) Save(ctx context.Context, userID int64, state *model.DailyState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, stateKey(userID, state.Date), data, r.ttl)
}
