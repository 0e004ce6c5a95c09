//go:build !integration

package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
)

func TestUserConfigCache(t *testing.T) {
	ctx := context.Background()
	mem := newMemRedis()
	cache := NewUserConfigCache(mem)

	t.Run("active set lists ids in order", func(t *testing.T) {
		for _, id := range []int64{30, 10, 20} {
			if err := cache.AddActive(ctx, id); err != nil {
				t.Fatalf("AddActive: %v", err)
			}
		}
		_ = mem.SAdd(ctx, usersSetKey, "garbage")
		if err := cache.RemoveActive(ctx, 20); err != nil {
			t.Fatalf("RemoveActive: %v", err)
		}
		ids, err := cache.ListActive(ctx)
		if err != nil {
			t.Fatalf("ListActive: %v", err)
		}
		if len(ids) != 2 || ids[0] != 10 || ids[1] != 30 {
			t.Errorf("expected [10 30], got %v", ids)
		}
	})

	t.Run("missing field is a cache miss", func(t *testing.T) {
		_, err := cache.GetField(ctx, 10, model.FieldUsername)
		if !errors.Is(err, domain.ErrCacheMiss) {
			t.Fatalf("expected ErrCacheMiss, got %v", err)
		}
		if err := cache.FillFields(ctx, 10, map[string]string{model.FieldUsername: "alice", model.FieldTimezone: "UTC"}); err != nil {
			t.Fatalf("FillFields: %v", err)
		}
		got, err := cache.GetField(ctx, 10, model.FieldUsername)
		if err != nil || got != "alice" {
			t.Errorf("expected alice, got %q (%v)", got, err)
		}
	})

	t.Run("fill never overwrites a held field", func(t *testing.T) {
		if err := cache.SetField(ctx, 11, model.FieldUsername, "new"); err != nil {
			t.Fatalf("SetField: %v", err)
		}
		err := cache.FillFields(ctx, 11, map[string]string{model.FieldUsername: "old", model.FieldTimezone: ""})
		if err != nil {
			t.Fatalf("FillFields: %v", err)
		}
		if got, _ := cache.GetField(ctx, 11, model.FieldUsername); got != "new" {
			t.Errorf("held field overwritten: %q", got)
		}
		if got, err := cache.GetField(ctx, 11, model.FieldTimezone); err != nil || got != "" {
			t.Errorf("expected empty filled timezone, got %q (%v)", got, err)
		}
	})
}

func TestDailyStateRepo(t *testing.T) {
	ctx := context.Background()
	mem := newMemRedis()
	repo := NewDailyStateRepo(mem, 8*24*time.Hour)

	t.Run("missing state loads as zero value", func(t *testing.T) {
		st, err := repo.Load(ctx, 1, "2024-05-01")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if st.Date != "2024-05-01" || st.CongratsSent || len(st.RemindedTimes) != 0 || st.LastCheckTS != 0 {
			t.Errorf("expected zero state, got %+v", st)
		}
	})

	t.Run("dates are isolated", func(t *testing.T) {
		d1 := model.NewDailyState("2024-05-01")
		d1.MarkReminded("09:00")
		d1.MarkCongratulated()
		if err := repo.Save(ctx, 1, d1); err != nil {
			t.Fatalf("Save: %v", err)
		}
		d0 := model.NewDailyState("2024-04-30")
		d0.MarkReminded("20:00")
		if err := repo.Save(ctx, 1, d0); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got1, _ := repo.Load(ctx, 1, "2024-05-01")
		if !got1.CongratsSent || len(got1.RemindedTimes) != 1 || got1.RemindedTimes[0] != "09:00" {
			t.Errorf("state for 2024-05-01 altered: %+v", got1)
		}
		got2, _ := repo.Load(ctx, 1, "2024-05-02")
		if got2.CongratsSent || len(got2.RemindedTimes) != 0 {
			t.Errorf("next day must start empty: %+v", got2)
		}
	})

	t.Run("state expires after retention", func(t *testing.T) {
		base := time.Now()
		mem.now = func() time.Time { return base }
		st := model.NewDailyState("2024-06-01")
		st.MarkCongratulated()
		_ = repo.Save(ctx, 2, st)
		mem.now = func() time.Time { return base.Add(8*24*time.Hour + time.Second) }
		got, _ := repo.Load(ctx, 2, "2024-06-01")
		if got.CongratsSent {
			t.Error("expected state evicted after retention window")
		}
		mem.now = time.Now
	})

	t.Run("corrupt document loads as zero value", func(t *testing.T) {
		_ = mem.Set(ctx, stateKey(3, "2024-05-01"), "{not json", 0)
		st, err := repo.Load(ctx, 3, "2024-05-01")
		if err != nil || st.CongratsSent {
			t.Errorf("expected zero state, got %+v (%v)", st, err)
		}
	})

	t.Run("fast store error surfaces", func(t *testing.T) {
		mem.failGet = errors.New("connection refused")
		defer func() { mem.failGet = nil }()
		if _, err := repo.Load(ctx, 1, "2024-05-01"); err == nil {
			t.Error("expected error from fast store")
		}
	})
}

func TestCooldownRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent acquisitions: exactly one wins", func(t *testing.T) {
		repo := NewCooldownRepo(newMemRedis())
		const n = 16
		results := make([]model.CooldownResult, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := repo.Acquire(ctx, 7, model.ScopeInteractive, time.Minute)
				if err != nil {
					t.Errorf("Acquire: %v", err)
				}
				results[i] = res
			}(i)
		}
		wg.Wait()

		acquired := 0
		for _, r := range results {
			if r.Acquired {
				acquired++
				continue
			}
			if r.Remaining <= 0 {
				t.Errorf("loser must receive positive remaining time, got %s", r.Remaining)
			}
		}
		if acquired != 1 {
			t.Errorf("expected exactly one acquisition, got %d", acquired)
		}
	})

	t.Run("scopes are independent", func(t *testing.T) {
		repo := NewCooldownRepo(newMemRedis())
		a, _ := repo.Acquire(ctx, 7, model.ScopeInteractive, time.Minute)
		b, _ := repo.Acquire(ctx, 7, model.ScopeScheduler, time.Minute)
		if !a.Acquired || !b.Acquired {
			t.Errorf("expected both scopes acquired, got %+v %+v", a, b)
		}
	})

	t.Run("expiry releases the slot", func(t *testing.T) {
		mem := newMemRedis()
		base := time.Now()
		mem.now = func() time.Time { return base }
		repo := NewCooldownRepo(mem)
		if r, _ := repo.Acquire(ctx, 7, model.ScopeInteractive, time.Minute); !r.Acquired {
			t.Fatal("expected first acquisition")
		}
		r, _ := repo.Acquire(ctx, 7, model.ScopeInteractive, time.Minute)
		if r.Acquired || r.Remaining != time.Minute {
			t.Errorf("expected 60s remaining, got %+v", r)
		}
		mem.now = func() time.Time { return base.Add(61 * time.Second) }
		if r, _ := repo.Acquire(ctx, 7, model.ScopeInteractive, time.Minute); !r.Acquired {
			t.Error("expected acquisition after expiry")
		}
	})
}

func TestCheckResultRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewCheckResultRepo(newMemRedis(), time.Hour)

	if res, err := repo.GetResult(ctx, 1, "2024-05-01"); res != nil || err != nil {
		t.Fatalf("expected nothing stored, got %+v %v", res, err)
	}

	f := &model.CheckFailure{Kind: domain.StatusRateLimited, Message: "429", CheckedAt: 100}
	if err := repo.PutFailure(ctx, 1, "2024-05-01", f); err != nil {
		t.Fatalf("PutFailure: %v", err)
	}
	got, err := repo.GetFailure(ctx, 1, "2024-05-01")
	if err != nil || got == nil || got.Kind != domain.StatusRateLimited {
		t.Fatalf("expected stored failure, got %+v %v", got, err)
	}

	res := &model.CheckResult{Solved: true, Info: &model.AcceptedSubmission{Title: "Two Sum", Slug: "two-sum", CompletedAt: "09:12"}}
	if err := repo.PutResult(ctx, 1, "2024-05-01", res); err != nil {
		t.Fatalf("PutResult: %v", err)
	}
	gotRes, _ := repo.GetResult(ctx, 1, "2024-05-01")
	if gotRes == nil || !gotRes.Solved || gotRes.Info.Slug != "two-sum" {
		t.Errorf("unexpected result %+v", gotRes)
	}
	if f, _ := repo.GetFailure(ctx, 1, "2024-05-01"); f != nil {
		t.Error("success must clear the stale failure")
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(newMemRedis())
	key := UserCommandKey(5, "check")
	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("call %d should be allowed (%v)", i, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); ok {
		t.Error("fourth call should be rejected")
	}
}
