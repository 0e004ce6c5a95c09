//go:build !integration

package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// memRedis is an in-memory RedisClient with key expiry driven by an injectable clock.
type memRedis struct {
	mu      sync.Mutex
	now     func() time.Time
	strings map[string]string
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
	expires map[string]time.Time

	failGet error
}

var _ RedisClient = (*memRedis)(nil)

func newMemRedis() *memRedis {
	return &memRedis{
		now:     time.Now,
		strings: map[string]string{},
		hashes:  map[string]map[string]string{},
		sets:    map[string]map[string]struct{}{},
		expires: map[string]time.Time{},
	}
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// expire drops key if its deadline passed. Caller holds mu.
func (m *memRedis) expire(key string) {
	if at, ok := m.expires[key]; ok && !m.now().Before(at) {
		delete(m.strings, key)
		delete(m.hashes, key)
		delete(m.sets, key)
		delete(m.expires, key)
	}
}

func (m *memRedis) Ping(ctx context.Context) error { return nil }

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = toString(value)
	delete(m.expires, key)
	if expiration > 0 {
		m.expires[key] = m.now().Add(expiration)
	}
	return nil
}

func (m *memRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(key)
	if _, ok := m.strings[key]; ok {
		return false, nil
	}
	m.strings[key] = toString(value)
	if expiration > 0 {
		m.expires[key] = m.now().Add(expiration)
	}
	return true, nil
}

func (m *memRedis) Get(ctx context.Context, key string) (string, error) {
	if m.failGet != nil {
		return "", m.failGet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(key)
	v, ok := m.strings[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memRedis) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(key)
	at, ok := m.expires[key]
	if !ok {
		if _, exists := m.strings[key]; exists {
			return -1, nil
		}
		return -2, nil
	}
	return at.Sub(m.now()), nil
}

func (m *memRedis) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(key)
	var n int64
	fmt.Sscan(m.strings[key], &n)
	n++
	m.strings[key] = fmt.Sprint(n)
	return n, nil
}

func (m *memRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = m.now().Add(expiration)
	return nil
}

func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.strings, k)
		delete(m.hashes, k)
		delete(m.sets, k)
		delete(m.expires, k)
	}
	return nil
}

func (m *memRedis) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = map[string]string{}
		m.hashes[key] = h
	}
	for k, v := range values {
		h[k] = toString(v)
	}
	return nil
}

func (m *memRedis) HGet(ctx context.Context, key, field string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.hashes[key][field]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memRedis) HSetNX(ctx context.Context, key, field string, value interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = map[string]string{}
		m.hashes[key] = h
	}
	if _, ok := h[field]; ok {
		return false, nil
	}
	h[field] = toString(value)
	return true, nil
}

func (m *memRedis) SAdd(ctx context.Context, key string, members ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[key]
	if !ok {
		s = map[string]struct{}{}
		m.sets[key] = s
	}
	for _, mem := range members {
		s[toString(mem)] = struct{}{}
	}
	return nil
}

func (m *memRedis) SRem(ctx context.Context, key string, members ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range members {
		delete(m.sets[key], toString(mem))
	}
	return nil
}

func (m *memRedis) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for k := range m.sets[key] {
		out = append(out, k)
	}
	return out, nil
}

func (m *memRedis) Close() error { return nil }
