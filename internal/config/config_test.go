//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfig(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		p := writeConfig(t, "bot:\n  token: abc\n")
		cfg, err := LoadConfig(p, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Reminder.PollInterval != 30*time.Second {
			t.Errorf("expected 30s poll interval, got %s", cfg.Reminder.PollInterval)
		}
		if cfg.Reminder.StateRetention != 8*24*time.Hour {
			t.Errorf("expected 8 day retention, got %s", cfg.Reminder.StateRetention)
		}
		if cfg.LeetCode.MaxAttempts != 3 || cfg.LeetCode.RecentLimit != 50 {
			t.Errorf("unexpected leetcode defaults: %+v", cfg.LeetCode)
		}
		if cfg.Worker.Interval != 5*time.Minute {
			t.Errorf("expected worker interval floor of 5m, got %s", cfg.Worker.Interval)
		}
	})

	t.Run("env overrides file values", func(t *testing.T) {
		p := writeConfig(t, "bot:\n  token: abc\nreminder:\n  default_timezone: UTC\n")
		t.Setenv("DEFAULT_TZ", "Asia/Tokyo")
		t.Setenv("DEFAULT_REMIND_TIMES", "21:00, 08:30")
		t.Setenv("POLL_SECONDS", "10")
		t.Setenv("USE_WORKER", "true")
		cfg, err := LoadConfig(p, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Reminder.DefaultTimezone != "Asia/Tokyo" {
			t.Errorf("expected Asia/Tokyo, got %s", cfg.Reminder.DefaultTimezone)
		}
		if got := cfg.Reminder.DefaultRemindTimes; len(got) != 2 || got[0] != "08:30" {
			t.Errorf("expected sorted [08:30 21:00], got %v", got)
		}
		if cfg.Reminder.PollInterval != 10*time.Second {
			t.Errorf("expected 10s poll interval, got %s", cfg.Reminder.PollInterval)
		}
		if !cfg.Reminder.UseWorker || !cfg.Runtime.Dev {
			t.Error("expected worker mode and dev runtime")
		}
	})

	t.Run("missing token fails", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "")
		p := writeConfig(t, "log:\n  level: debug\n")
		if _, err := LoadConfig(p, false); err == nil {
			t.Fatal("expected error for missing token")
		}
	})

	t.Run("invalid default remind time fails", func(t *testing.T) {
		p := writeConfig(t, "bot:\n  token: abc\nreminder:\n  default_remind_times: [\"25:00\"]\n")
		if _, err := LoadConfig(p, false); err == nil {
			t.Fatal("expected error for invalid remind time")
		}
	})
}
