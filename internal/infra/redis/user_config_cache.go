package redis

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.UserConfigCache = (*UserConfigCache)(nil)

// UserConfigCache keeps the active-user set and one config hash per user.
type UserConfigCache struct {
	client RedisClient
}

func NewUserConfigCache(client RedisClient) *UserConfigCache {
	return &UserConfigCache{client: client}
}

func (c *UserConfigCache) AddActive(ctx context.Context, userID int64) error {
	return c.client.SAdd(ctx, usersSetKey, strconv.FormatInt(userID, 10))
}

func (c *UserConfigCache) RemoveActive(ctx context.Context, userID int64) error {
	return c.client.SRem(ctx, usersSetKey, strconv.FormatInt(userID, 10))
}

// ListActive returns ids in ascending order; malformed members are skipped.
func (c *UserConfigCache) ListActive(ctx context.Context) ([]int64, error) {
	vals, err := c.client.SMembers(ctx, usersSetKey)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (c *UserConfigCache) SetField(ctx context.Context, userID int64, field, value string) error {
	return c.client.HSet(ctx, userKey(userID), map[string]interface{}{field: value})
}

// FillFields uses HSETNX per field so a concurrent or newer write is never clobbered.
func (c *UserConfigCache) FillFields(ctx context.Context, userID int64, fields map[string]string) error {
	key := userKey(userID)
	for k, v := range fields {
		if _, err := c.client.HSetNX(ctx, key, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *UserConfigCache) GetField(ctx context.Context, userID int64, field string) (string, error) {
	v, err := c.client.HGet(ctx, userKey(userID), field)
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
