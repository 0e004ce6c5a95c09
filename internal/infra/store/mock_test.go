package store

import (
	"context"
	"sort"
	"sync"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/repository"
)

// memCache is an in-memory UserConfigCache.
type memCache struct {
	mu     sync.Mutex
	active map[int64]struct{}
	fields map[int64]map[string]string
	err    error
}

var _ repository.UserConfigCache = (*memCache)(nil)

func newMemCache() *memCache {
	return &memCache{active: map[int64]struct{}{}, fields: map[int64]map[string]string{}}
}

func (c *memCache) AddActive(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.active[id] = struct{}{}
	return nil
}

func (c *memCache) RemoveActive(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	delete(c.active, id)
	return nil
}

func (c *memCache) ListActive(ctx context.Context) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make([]int64, 0, len(c.active))
	for id := range c.active {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (c *memCache) SetField(ctx context.Context, id int64, field, value string) error {
	return c.write(id, map[string]string{field: value}, true)
}

func (c *memCache) FillFields(ctx context.Context, id int64, fields map[string]string) error {
	return c.write(id, fields, false)
}

func (c *memCache) write(id int64, fields map[string]string, overwrite bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	h, ok := c.fields[id]
	if !ok {
		h = map[string]string{}
		c.fields[id] = h
	}
	for k, v := range fields {
		if _, held := h[k]; held && !overwrite {
			continue
		}
		h[k] = v
	}
	return nil
}

func (c *memCache) GetField(ctx context.Context, id int64, field string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	v, ok := c.fields[id][field]
	if !ok {
		return "", domain.ErrCacheMiss
	}
	return v, nil
}

// evict drops one field, as a Redis eviction or restart would.
func (c *memCache) evict(ctx context.Context, id int64, field string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fields[id], field)
	return nil
}

// memDurable is an in-memory UserRepository that counts reads and can be switched off.
type memDurable struct {
	mu    sync.Mutex
	rows  map[int64]*model.UserRecord
	down  bool
	reads int
}

var _ repository.UserRepository = (*memDurable)(nil)

func newMemDurable() *memDurable {
	return &memDurable{rows: map[int64]*model.UserRecord{}}
}

func (d *memDurable) upsert(id int64, fn func(r *model.UserRecord)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return domain.ErrStoreUnavailable
	}
	r, ok := d.rows[id]
	if !ok {
		r = &model.UserRecord{TelegramID: id, Active: true, RemindTimes: []string{}}
		d.rows[id] = r
	}
	fn(r)
	return nil
}

func (d *memDurable) Register(ctx context.Context, tx repository.Tx, p model.Profile) error {
	return d.upsert(p.UserID, func(r *model.UserRecord) {
		r.TelegramUsername = p.Username
		r.Active = true
	})
}

func (d *memDurable) UpdateUsername(ctx context.Context, tx repository.Tx, id int64, u string) error {
	return d.upsert(id, func(r *model.UserRecord) { r.ExternalUsername = u })
}

func (d *memDurable) UpdateTimezone(ctx context.Context, tx repository.Tx, id int64, tz string) error {
	return d.upsert(id, func(r *model.UserRecord) { r.Timezone = tz })
}

func (d *memDurable) UpdateRemindTimes(ctx context.Context, tx repository.Tx, id int64, times []string) error {
	return d.upsert(id, func(r *model.UserRecord) { r.RemindTimes = append([]string(nil), times...) })
}

func (d *memDurable) SetActive(ctx context.Context, tx repository.Tx, id int64, active bool) error {
	return d.upsert(id, func(r *model.UserRecord) { r.Active = active })
}

func (d *memDurable) FindByUserID(ctx context.Context, tx repository.Tx, id int64) (*model.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.down {
		return nil, domain.ErrStoreUnavailable
	}
	r, ok := d.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (d *memDurable) FindByExternalUsername(ctx context.Context, tx repository.Tx, u string) ([]*model.UserRecord, error) {
	return nil, nil
}

func (d *memDurable) List(ctx context.Context, tx repository.Tx, activeOnly bool, offset, limit int) ([]*model.UserRecord, int, error) {
	return nil, 0, nil
}

func (d *memDurable) ListActiveIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return nil, domain.ErrStoreUnavailable
	}
	var ids []int64
	for id, r := range d.rows {
		if r.Active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (d *memDurable) Stats(ctx context.Context, tx repository.Tx) (*model.UserStats, error) {
	return nil, nil
}

func (d *memDurable) Ping(ctx context.Context) error { return nil }

func (d *memDurable) readCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}
