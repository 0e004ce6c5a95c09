// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"leetcode-reminder/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string        `yaml:"token"`
	Workers  int           `yaml:"workers"`  // polling workers
	Language string        `yaml:"language"` // locales/<language>.yaml
	RateMax  int           `yaml:"rate_max"` // commands per window per user
	RateWin  time.Duration `yaml:"rate_window"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"` // /metrics
}

type APIConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"` // empty disables the bearer guard
}

type DatabaseConfig struct {
	URL      string `yaml:"url"` // empty runs without a durable store
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ReminderConfig struct {
	DefaultTimezone       string        `yaml:"default_timezone"`
	DefaultRemindTimes    []string      `yaml:"default_remind_times"`
	PollInterval          time.Duration `yaml:"poll_interval"`
	CheckInterval         time.Duration `yaml:"check_interval"`
	UseWorker             bool          `yaml:"use_worker"` // read precomputed worker results instead of calling the source
	ErrorNoticeWindow     time.Duration `yaml:"error_notice_window"`
	RateLimitNoticeWindow time.Duration `yaml:"rate_limit_notice_window"`
	StateRetention        time.Duration `yaml:"state_retention"`
	TickTimeout           time.Duration `yaml:"tick_timeout"`
	CheckAttempts         int           `yaml:"check_attempts"` // scheduler-side attempt budget per check
	CheckBudget           time.Duration `yaml:"check_budget"`   // wall time per tick spent on checks
}

type LeetCodeConfig struct {
	BaseURL             string        `yaml:"base_url"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	MaxAttempts         int           `yaml:"max_attempts"`
	BaseDelay           time.Duration `yaml:"base_delay"`
	RateLimitDelay      time.Duration `yaml:"rate_limit_delay"`
	RecentLimit         int           `yaml:"recent_limit"`
	ValidationAttempts  int           `yaml:"validation_attempts"`
	InteractiveCooldown time.Duration `yaml:"interactive_cooldown"`
}

type WorkerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	ResultTTL   time.Duration `yaml:"result_ttl"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Reminder ReminderConfig `yaml:"reminder"`
	LeetCode LeetCodeConfig `yaml:"leetcode"`
	Worker   WorkerConfig   `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file (optional when env provides the required
// values), loads .env, applies env overrides and defaults, then validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	secs := func(key string, dst *time.Duration) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = time.Duration(n) * time.Second
		return nil
	}

	str("BOT_TOKEN", &cfg.Bot.Token)
	str("REDIS_URL", &cfg.Redis.URL)
	str("DATABASE_URL", &cfg.Database.URL)
	str("DEFAULT_TZ", &cfg.Reminder.DefaultTimezone)
	str("API_JWT_SECRET", &cfg.API.JWTSecret)
	if v := os.Getenv("DEFAULT_REMIND_TIMES"); strings.TrimSpace(v) != "" {
		cfg.Reminder.DefaultRemindTimes = splitTimes(v)
	}
	if v := strings.TrimSpace(os.Getenv("USE_WORKER")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("USE_WORKER: %w", err)
		}
		cfg.Reminder.UseWorker = b
	}
	if err := secs("POLL_SECONDS", &cfg.Reminder.PollInterval); err != nil {
		return err
	}
	if err := secs("LC_CHECK_SECONDS", &cfg.Reminder.CheckInterval); err != nil {
		return err
	}
	if err := secs("EXTERNAL_API_COOLDOWN_SECONDS", &cfg.LeetCode.InteractiveCooldown); err != nil {
		return err
	}
	return secs("WORKER_INTERVAL_SECONDS", &cfg.Worker.Interval)
}

func splitTimes(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "en"
	}
	if cfg.Bot.RateMax <= 0 {
		cfg.Bot.RateMax = 20
	}
	cfg.Bot.RateWin = orDefault(cfg.Bot.RateWin, time.Minute)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 9090
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8000
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
	}

	r := &cfg.Reminder
	if r.DefaultTimezone == "" {
		r.DefaultTimezone = "Asia/Tashkent"
	}
	if len(r.DefaultRemindTimes) == 0 {
		r.DefaultRemindTimes = []string{"20:00"}
	}
	r.PollInterval = orDefault(r.PollInterval, 30*time.Second)
	r.CheckInterval = orDefault(r.CheckInterval, 5*time.Minute)
	r.ErrorNoticeWindow = orDefault(r.ErrorNoticeWindow, 24*time.Hour)
	r.RateLimitNoticeWindow = orDefault(r.RateLimitNoticeWindow, time.Hour)
	r.StateRetention = orDefault(r.StateRetention, 8*24*time.Hour)
	r.TickTimeout = orDefault(r.TickTimeout, 5*time.Minute)
	if r.CheckAttempts <= 0 {
		r.CheckAttempts = 1
	}
	r.CheckBudget = orDefault(r.CheckBudget, r.TickTimeout/2)

	lc := &cfg.LeetCode
	if lc.BaseURL == "" {
		lc.BaseURL = "https://leetcode.com"
	}
	lc.BaseURL = strings.TrimRight(lc.BaseURL, "/")
	lc.RequestTimeout = orDefault(lc.RequestTimeout, 20*time.Second)
	if lc.MaxAttempts <= 0 {
		lc.MaxAttempts = 3
	}
	if lc.ValidationAttempts <= 0 {
		lc.ValidationAttempts = 2
	}
	lc.BaseDelay = orDefault(lc.BaseDelay, 2*time.Second)
	lc.RateLimitDelay = orDefault(lc.RateLimitDelay, 30*time.Second)
	if lc.RecentLimit <= 0 {
		lc.RecentLimit = 50
	}
	lc.InteractiveCooldown = orDefault(lc.InteractiveCooldown, 60*time.Second)

	w := &cfg.Worker
	// Minimum 5 minutes between full sweeps.
	if w.Interval < 5*time.Minute {
		w.Interval = 5 * time.Minute
	}
	if w.Concurrency <= 0 {
		w.Concurrency = 4
	}
	w.ResultTTL = orDefault(w.ResultTTL, 24*time.Hour)
}

// Validate checks required values and the reminder defaults.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	if _, err := model.LoadTimezone(c.Reminder.DefaultTimezone); err != nil {
		return fmt.Errorf("reminder.default_timezone: %w", err)
	}
	times, err := model.NormalizeRemindTimes(c.Reminder.DefaultRemindTimes)
	if err != nil {
		return fmt.Errorf("reminder.default_remind_times: %w", err)
	}
	c.Reminder.DefaultRemindTimes = times
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
