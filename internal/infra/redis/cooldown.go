package redis

import (
	"context"
	"strconv"
	"time"

	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/repository"
)

var _ repository.CooldownRepository = (*CooldownRepo)(nil)

// CooldownRepo implements cooldown slots with SET NX EX. There is no unlock;
// the key expiring is the release.
type CooldownRepo struct {
	client RedisClient
	now    func() time.Time
}

func NewCooldownRepo(client RedisClient) *CooldownRepo {
	return &CooldownRepo{client: client, now: time.Now}
}

func (r *CooldownRepo) Acquire(ctx context.Context, userID int64, scope model.CooldownScope, ttl time.Duration) (model.CooldownResult, error) {
	key := cooldownKey(userID, scope)
	ok, err := r.client.SetNX(ctx, key, strconv.FormatInt(r.now().Unix(), 10), ttl)
	if err != nil {
		return model.CooldownResult{}, err
	}
	if ok {
		return model.CooldownResult{Acquired: true}, nil
	}

	remaining, err := r.client.TTL(ctx, key)
	if err != nil {
		return model.CooldownResult{}, err
	}
	// The key may expire between SETNX and TTL; still report a positive wait.
	if remaining < time.Second {
		remaining = time.Second
	}
	return model.CooldownResult{Acquired: false, Remaining: remaining.Truncate(time.Second)}, nil
}
