//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/adapter"
	"leetcode-reminder/internal/domain/ports/repository"
)

// -----------------------------
// Utilities
// -----------------------------

// keyTranslator renders "key|arg1|arg2" so tests can assert on keys and arguments.
type keyTranslator struct{}

func (keyTranslator) T(key string, args ...interface{}) string {
	parts := []string{key}
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, "|")
}

func mustLoc(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// =============================
// Repositories
// =============================

// ---- MockConfigStore ----

type storedUser struct {
	username string
	tz       string
	times    []string
	timesSet bool
	active   bool
	profile  model.Profile
}

type MockConfigStore struct {
	mu          sync.Mutex
	users       map[int64]*storedUser
	order       []int64
	DefaultTZ   string
	DefaultTime []string

	UserConfigFunc func(ctx context.Context, userID int64) (*model.UserConfig, error)
	ListActiveFunc func(ctx context.Context) ([]int64, error)
}

var _ repository.ConfigStore = (*MockConfigStore)(nil)

func NewMockConfigStore() *MockConfigStore {
	return &MockConfigStore{users: map[int64]*storedUser{}, DefaultTZ: "UTC", DefaultTime: []string{"20:00"}}
}

func (m *MockConfigStore) user(id int64) *storedUser {
	u, ok := m.users[id]
	if !ok {
		u = &storedUser{}
		m.users[id] = u
		m.order = append(m.order, id)
	}
	return u
}

// Seed stores a linked active user.
func (m *MockConfigStore) Seed(id int64, username, tz string, times ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(id)
	u.username, u.tz, u.active = username, tz, true
	if len(times) > 0 {
		u.times, u.timesSet = times, true
	}
}

func (m *MockConfigStore) Register(ctx context.Context, p model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(p.UserID)
	u.profile, u.active = p, true
	return nil
}

func (m *MockConfigStore) Link(ctx context.Context, p model.Profile, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(p.UserID)
	u.profile, u.active, u.username = p, true, username
	return nil
}

func (m *MockConfigStore) SetActive(ctx context.Context, userID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).active = active
	return nil
}

func (m *MockConfigStore) SetUsername(ctx context.Context, userID int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).username = username
	return nil
}

func (m *MockConfigStore) SetTimezone(ctx context.Context, userID int64, tz string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).tz = tz
	return nil
}

func (m *MockConfigStore) SetRemindTimes(ctx context.Context, userID int64, times []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	u.times, u.timesSet = append([]string(nil), times...), true
	return nil
}

func (m *MockConfigStore) Username(ctx context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user(userID).username, nil
}

func (m *MockConfigStore) Timezone(ctx context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user(userID).tz, nil
}

func (m *MockConfigStore) RemindTimes(ctx context.Context, userID int64) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	return append([]string(nil), u.times...), u.timesSet, nil
}

func (m *MockConfigStore) UserConfig(ctx context.Context, userID int64) (*model.UserConfig, error) {
	if m.UserConfigFunc != nil {
		return m.UserConfigFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	tz := u.tz
	if _, err := model.LoadTimezone(tz); err != nil {
		tz = m.DefaultTZ
	}
	times := u.times
	if !u.timesSet {
		times = m.DefaultTime
	}
	return model.NewUserConfig(userID, u.username, tz, times, u.active)
}

func (m *MockConfigStore) ListActive(ctx context.Context) ([]int64, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for _, id := range m.order {
		if m.users[id].active {
			out = append(out, id)
		}
	}
	return out, nil
}

// ---- MockDailyStates ----

type MockDailyStates struct {
	mu     sync.Mutex
	states map[string]*model.DailyState
	Saves  int
	// FailLoad makes Load fail for the listed users.
	FailLoad map[int64]error

	LoadFunc func(ctx context.Context, userID int64, date string) (*model.DailyState, error)
	SaveFunc func(ctx context.Context, userID int64, st *model.DailyState) error
}

var _ repository.DailyStateRepository = (*MockDailyStates)(nil)

func NewMockDailyStates() *MockDailyStates {
	return &MockDailyStates{states: map[string]*model.DailyState{}}
}

func stateKey(userID int64, date string) string { return fmt.Sprintf("%d:%s", userID, date) }

func (m *MockDailyStates) Load(ctx context.Context, userID int64, date string) (*model.DailyState, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, userID, date)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailLoad[userID]; err != nil {
		return nil, err
	}
	if st, ok := m.states[stateKey(userID, date)]; ok {
		return st.Clone(), nil
	}
	return model.NewDailyState(date), nil
}

func (m *MockDailyStates) Save(ctx context.Context, userID int64, st *model.DailyState) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, userID, st)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	m.states[stateKey(userID, st.Date)] = st.Clone()
	return nil
}

// Get returns the stored state or nil.
func (m *MockDailyStates) Get(userID int64, date string) *model.DailyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[stateKey(userID, date)]; ok {
		return st.Clone()
	}
	return nil
}

// ---- MockCheckResults ----

type MockCheckResults struct {
	mu       sync.Mutex
	results  map[string]*model.CheckResult
	failures map[string]*model.CheckFailure
}

var _ repository.CheckResultRepository = (*MockCheckResults)(nil)

func NewMockCheckResults() *MockCheckResults {
	return &MockCheckResults{results: map[string]*model.CheckResult{}, failures: map[string]*model.CheckFailure{}}
}

func (m *MockCheckResults) PutResult(ctx context.Context, userID int64, date string, r *model.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[stateKey(userID, date)] = r
	delete(m.failures, stateKey(userID, date))
	return nil
}

func (m *MockCheckResults) GetResult(ctx context.Context, userID int64, date string) (*model.CheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[stateKey(userID, date)], nil
}

func (m *MockCheckResults) PutFailure(ctx context.Context, userID int64, date string, f *model.CheckFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[stateKey(userID, date)] = f
	return nil
}

func (m *MockCheckResults) GetFailure(ctx context.Context, userID int64, date string) (*model.CheckFailure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[stateKey(userID, date)], nil
}

// ---- MockCooldowns ----

// MockCooldowns keeps slots against an injected clock.
type MockCooldowns struct {
	mu    sync.Mutex
	until  map[string]time.Time
	Now    func() time.Time
	Scopes []model.CooldownScope

	AcquireFunc func(ctx context.Context, userID int64, scope model.CooldownScope, ttl time.Duration) (model.CooldownResult, error)
}

var _ repository.CooldownRepository = (*MockCooldowns)(nil)

func NewMockCooldowns(now func() time.Time) *MockCooldowns {
	return &MockCooldowns{until: map[string]time.Time{}, Now: now}
}

func (m *MockCooldowns) Acquire(ctx context.Context, userID int64, scope model.CooldownScope, ttl time.Duration) (model.CooldownResult, error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, userID, scope, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scopes = append(m.Scopes, scope)
	key := fmt.Sprintf("%d:%s", userID, scope)
	now := m.Now()
	if exp, ok := m.until[key]; ok && now.Before(exp) {
		return model.CooldownResult{Remaining: exp.Sub(now)}, nil
	}
	m.until[key] = now.Add(ttl)
	return model.CooldownResult{Acquired: true}, nil
}

// ---- MockUserRepository ----

type MockUserRepository struct {
	PingFunc           func(ctx context.Context) error
	ListFunc           func(ctx context.Context, activeOnly bool, offset, limit int) ([]*model.UserRecord, int, error)
	FindByUserIDFunc   func(ctx context.Context, userID int64) (*model.UserRecord, error)
	FindByExternalFunc func(ctx context.Context, username string) ([]*model.UserRecord, error)
	StatsFunc          func(ctx context.Context) (*model.UserStats, error)
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Register(ctx context.Context, tx repository.Tx, p model.Profile) error {
	return nil
}
func (m *MockUserRepository) UpdateUsername(ctx context.Context, tx repository.Tx, userID int64, username string) error {
	return nil
}
func (m *MockUserRepository) UpdateTimezone(ctx context.Context, tx repository.Tx, userID int64, tz string) error {
	return nil
}
func (m *MockUserRepository) UpdateRemindTimes(ctx context.Context, tx repository.Tx, userID int64, times []string) error {
	return nil
}
func (m *MockUserRepository) SetActive(ctx context.Context, tx repository.Tx, userID int64, active bool) error {
	return nil
}

func (m *MockUserRepository) FindByUserID(ctx context.Context, tx repository.Tx, userID int64) (*model.UserRecord, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(ctx, userID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepository) FindByExternalUsername(ctx context.Context, tx repository.Tx, username string) ([]*model.UserRecord, error) {
	if m.FindByExternalFunc != nil {
		return m.FindByExternalFunc(ctx, username)
	}
	return nil, nil
}

func (m *MockUserRepository) List(ctx context.Context, tx repository.Tx, activeOnly bool, offset, limit int) ([]*model.UserRecord, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, activeOnly, offset, limit)
	}
	return nil, 0, nil
}

func (m *MockUserRepository) ListActiveIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	return nil, nil
}

func (m *MockUserRepository) Stats(ctx context.Context, tx repository.Tx) (*model.UserStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &model.UserStats{UsersByTimezone: map[string]int{}}, nil
}

func (m *MockUserRepository) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// =============================
// Adapters
// =============================

// ---- MockChecker ----

type checkCall struct {
	Username string
	TZ       string
	Opts     adapter.CheckOptions
}

type MockChecker struct {
	mu    sync.Mutex
	Calls []checkCall

	SolvedTodayFunc func(ctx context.Context, username, tz string) (bool, *model.AcceptedSubmission, error)
}

var _ adapter.StatusChecker = (*MockChecker)(nil)

func (m *MockChecker) SolvedToday(ctx context.Context, username, tz string, opts ...adapter.CheckOption) (bool, *model.AcceptedSubmission, error) {
	var o adapter.CheckOptions
	for _, opt := range opts {
		opt(&o)
	}
	m.mu.Lock()
	m.Calls = append(m.Calls, checkCall{Username: username, TZ: tz, Opts: o})
	m.mu.Unlock()
	if m.SolvedTodayFunc != nil {
		return m.SolvedTodayFunc(ctx, username, tz)
	}
	return false, nil, nil
}

func (m *MockChecker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// ---- MockNotifier ----

type sentMessage struct {
	UserID int64
	Text   string
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []sentMessage

	SendMessageFunc func(ctx context.Context, userID int64, text string) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) SendMessage(ctx context.Context, userID int64, text string) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, sentMessage{UserID: userID, Text: text})
	m.mu.Unlock()
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, userID, text)
	}
	return nil
}

// Keys returns the template keys of every message sent to userID, in order.
func (m *MockNotifier) Keys(userID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Sent {
		if s.UserID == userID {
			out = append(out, strings.SplitN(s.Text, "|", 2)[0])
		}
	}
	return out
}

func (m *MockNotifier) Reset() {
	m.mu.Lock()
	m.Sent = nil
	m.mu.Unlock()
}
