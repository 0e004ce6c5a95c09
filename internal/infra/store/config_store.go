package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/repository"
	"leetcode-reminder/internal/infra/metrics"
)

var _ repository.ConfigStore = (*ConfigStore)(nil)

// Defaults are applied when a user never configured a value.
type Defaults struct {
	Timezone    string
	RemindTimes []string
}

// ConfigStore layers the fast config cache over the durable user repository.
type ConfigStore struct {
	cache    repository.UserConfigCache
	durable  repository.UserRepository
	txm      repository.TransactionManager
	defaults Defaults
	log      *zerolog.Logger
}

// NewConfigStore takes an optional txm; without one, multi-row mirrors run
// statement by statement.
func NewConfigStore(cache repository.UserConfigCache, durable repository.UserRepository, txm repository.TransactionManager, defaults Defaults, logger *zerolog.Logger) *ConfigStore {
	l := logger.With().Str("component", "ConfigStore").Logger()
	return &ConfigStore{cache: cache, durable: durable, txm: txm, defaults: defaults, log: &l}
}

// ---------------------------------------------------------------------------
// write path
// ---------------------------------------------------------------------------

func (s *ConfigStore) Register(ctx context.Context, p model.Profile) error {
	if err := s.cache.AddActive(ctx, p.UserID); err != nil {
		return err
	}
	s.mirror("register", p.UserID, s.durable.Register(ctx, repository.NoTX, p))
	return nil
}

func (s *ConfigStore) Link(ctx context.Context, p model.Profile, username string) error {
	if err := s.cache.AddActive(ctx, p.UserID); err != nil {
		return err
	}
	if err := s.cache.SetField(ctx, p.UserID, model.FieldUsername, username); err != nil {
		return err
	}
	s.mirror("link", p.UserID, s.inTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := s.durable.Register(ctx, tx, p); err != nil {
			return err
		}
		return s.durable.UpdateUsername(ctx, tx, p.UserID, username)
	}))
	return nil
}

func (s *ConfigStore) inTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if s.txm == nil {
		return fn(ctx, repository.NoTX)
	}
	return s.txm.WithTx(ctx, pgx.TxOptions{}, fn)
}

func (s *ConfigStore) SetActive(ctx context.Context, userID int64, active bool) error {
	var err error
	if active {
		err = s.cache.AddActive(ctx, userID)
	} else {
		err = s.cache.RemoveActive(ctx, userID)
	}
	if err != nil {
		return err
	}
	s.mirror("set_active", userID, s.durable.SetActive(ctx, repository.NoTX, userID, active))
	return nil
}

func (s *ConfigStore) SetUsername(ctx context.Context, userID int64, username string) error {
	if err := s.cache.SetField(ctx, userID, model.FieldUsername, username); err != nil {
		return err
	}
	s.mirror("set_username", userID, s.durable.UpdateUsername(ctx, repository.NoTX, userID, username))
	return nil
}

func (s *ConfigStore) SetTimezone(ctx context.Context, userID int64, tz string) error {
	if err := s.cache.SetField(ctx, userID, model.FieldTimezone, tz); err != nil {
		return err
	}
	s.mirror("set_timezone", userID, s.durable.UpdateTimezone(ctx, repository.NoTX, userID, tz))
	return nil
}

func (s *ConfigStore) SetRemindTimes(ctx context.Context, userID int64, times []string) error {
	if times == nil {
		times = []string{}
	}
	data, err := json.Marshal(times)
	if err != nil {
		return err
	}
	if err := s.cache.SetField(ctx, userID, model.FieldRemindTimes, string(data)); err != nil {
		return err
	}
	s.mirror("set_remind_times", userID, s.durable.UpdateRemindTimes(ctx, repository.NoTX, userID, times))
	return nil
}

// mirror swallows durable-store failures; the fast-store write already succeeded.
func (s *ConfigStore) mirror(op string, userID int64, err error) {
	if err == nil {
		return
	}
	metrics.IncDurableMirrorFailure(op)
	ev := s.log.Warn()
	if errors.Is(err, domain.ErrStoreUnavailable) {
		ev = s.log.Debug()
	}
	ev.Err(err).Str("op", op).Int64("user_id", userID).Msg("durable mirror skipped")
}

// ---------------------------------------------------------------------------
// read path
// ---------------------------------------------------------------------------

func (s *ConfigStore) Username(ctx context.Context, userID int64) (string, error) {
	return s.field(ctx, userID, model.FieldUsername)
}

func (s *ConfigStore) Timezone(ctx context.Context, userID int64) (string, error) {
	return s.field(ctx, userID, model.FieldTimezone)
}

// RemindTimes reports ok=false when the user never set any; an explicit
// empty list is returned as ok=true.
func (s *ConfigStore) RemindTimes(ctx context.Context, userID int64) ([]string, bool, error) {
	raw, err := s.field(ctx, userID, model.FieldRemindTimes)
	if err != nil || raw == "" {
		return nil, false, err
	}
	var times []string
	if err := json.Unmarshal([]byte(raw), &times); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("unreadable remind times; using defaults")
		return nil, false, nil
	}
	return model.FilterRemindTimes(times), true, nil
}

// UserConfig resolves username, timezone and remind times with defaults.
// An unknown stored timezone falls back to the default zone.
func (s *ConfigStore) UserConfig(ctx context.Context, userID int64) (*model.UserConfig, error) {
	username, err := s.Username(ctx, userID)
	if err != nil {
		return nil, err
	}
	tz, err := s.Timezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := model.LoadTimezone(tz); err != nil {
		if tz != "" {
			s.log.Warn().Str("tz", tz).Int64("user_id", userID).Msg("invalid stored timezone; using default")
		}
		tz = s.defaults.Timezone
	}
	times, ok, err := s.RemindTimes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		times = s.defaults.RemindTimes
	}
	return model.NewUserConfig(userID, username, tz, times, true)
}

// field reads one hash field from the fast store. On a miss it consults the
// durable row once and fills the fields the hash lacks; held fields are never
// overwritten, and fields the row leaves unset are stored empty so the next
// read is a hit.
func (s *ConfigStore) field(ctx context.Context, userID int64, name string) (string, error) {
	v, err := s.cache.GetField(ctx, userID, name)
	switch {
	case err == nil:
		metrics.IncCacheRequest("user_config", "hit")
		return v, nil
	case errors.Is(err, domain.ErrCacheMiss):
		metrics.IncCacheRequest("user_config", "miss")
	default:
		// fast store down: still try the durable copy, but do not repopulate
		metrics.IncCacheRequest("user_config", "error")
		s.log.Warn().Err(err).Int64("user_id", userID).Str("field", name).Msg("fast store read failed")
		rec, derr := s.durable.FindByUserID(ctx, repository.NoTX, userID)
		if derr != nil {
			return "", err
		}
		return recordFields(rec)[name], nil
	}

	fields := map[string]string{}
	rec, err := s.durable.FindByUserID(ctx, repository.NoTX, userID)
	switch {
	case err == nil:
		fields = recordFields(rec)
	case errors.Is(err, domain.ErrNotFound):
	default:
		// unknown until the durable store answers; leave the hash untouched
		s.log.Debug().Err(err).Int64("user_id", userID).Str("field", name).Msg("durable fallback unavailable")
		return "", nil
	}
	s.fill(ctx, userID, fields)
	return fields[name], nil
}

var configFields = []string{model.FieldUsername, model.FieldTimezone, model.FieldRemindTimes}

func (s *ConfigStore) fill(ctx context.Context, userID int64, fields map[string]string) {
	all := make(map[string]string, len(configFields))
	for _, f := range configFields {
		all[f] = fields[f]
	}
	if err := s.cache.FillFields(ctx, userID, all); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("repopulate fast store failed")
	}
}

// recordFields maps a durable row onto fast-store hash fields, skipping unset
// values. An empty durable remind list counts as unset.
func recordFields(rec *model.UserRecord) map[string]string {
	out := map[string]string{}
	if rec.ExternalUsername != "" {
		out[model.FieldUsername] = rec.ExternalUsername
	}
	if rec.Timezone != "" {
		out[model.FieldTimezone] = rec.Timezone
	}
	if len(rec.RemindTimes) > 0 {
		if data, err := json.Marshal(rec.RemindTimes); err == nil {
			out[model.FieldRemindTimes] = string(data)
		}
	}
	return out
}

// ListActive returns the fast-store active set. An empty set is rebuilt from
// the durable store when it is reachable.
func (s *ConfigStore) ListActive(ctx context.Context) ([]int64, error) {
	ids, err := s.cache.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		return ids, nil
	}

	start := time.Now()
	durableIDs, err := s.durable.ListActiveIDs(ctx, repository.NoTX)
	if err != nil {
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			s.log.Warn().Err(err).Msg("active set rehydration failed")
		}
		return ids, nil
	}
	for _, id := range durableIDs {
		if err := s.cache.AddActive(ctx, id); err != nil {
			return nil, err
		}
		rec, err := s.durable.FindByUserID(ctx, repository.NoTX, id)
		if err != nil {
			continue
		}
		s.fill(ctx, id, recordFields(rec))
	}
	if len(durableIDs) > 0 {
		s.log.Info().Int("users", len(durableIDs)).Dur("took", time.Since(start)).Msg("active set rehydrated from durable store")
	}
	return durableIDs, nil
}
