package model

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"leetcode-reminder/internal/domain"
)

var hhmmRe = regexp.MustCompile(`^[0-2][0-9]:[0-5][0-9]$`)

// Fast-store field names of the user config hash.
const (
	FieldUsername    = "username"
	FieldTimezone    = "tz"
	FieldRemindTimes = "times"
)

// Profile carries the chat identity captured on registration.
type Profile struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// UserConfig is the validated per-user configuration used by the scheduler.
type UserConfig struct {
	UserID           int64
	ExternalUsername string
	Timezone         string
	RemindTimes      []string
	Active           bool

	Location *time.Location `json:"-"`
}

// UserRecord is the durable row behind a UserConfig, as read by reporting.
type UserRecord struct {
	ID               int64      `json:"id"`
	TelegramID       int64      `json:"telegram_id"`
	TelegramUsername string     `json:"telegram_username,omitempty"`
	FirstName        string     `json:"telegram_first_name,omitempty"`
	LastName         string     `json:"telegram_last_name,omitempty"`
	ExternalUsername string     `json:"leetcode_username,omitempty"`
	Timezone         string     `json:"timezone,omitempty"`
	RemindTimes      []string   `json:"remind_times"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastActiveAt     *time.Time `json:"last_active_at,omitempty"`
	Active           bool       `json:"is_active"`
}

// UserStats are aggregate counts derived from the durable store.
type UserStats struct {
	TotalUsers        int            `json:"total_users"`
	ActiveUsers       int            `json:"active_users"`
	InactiveUsers     int            `json:"inactive_users"`
	UsersWithUsername int            `json:"users_with_leetcode"`
	UsersByTimezone   map[string]int `json:"users_by_timezone"`
}

// ValidateRemindTime checks a single HH:MM value.
func ValidateRemindTime(s string) error {
	if !hhmmRe.MatchString(s) {
		return &domain.ValidationError{Field: "remind_time", Value: s, Reason: "expected HH:MM"}
	}
	h, _ := strconv.Atoi(s[:2])
	if h > 23 {
		return &domain.ValidationError{Field: "remind_time", Value: s, Reason: "hour out of range"}
	}
	return nil
}

// NormalizeRemindTimes validates, dedups and sorts remind times ascending.
func NormalizeRemindTimes(times []string) ([]string, error) {
	seen := make(map[string]struct{}, len(times))
	out := make([]string, 0, len(times))
	for _, t := range times {
		t = strings.TrimSpace(t)
		if err := ValidateRemindTime(t); err != nil {
			return nil, err
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// FilterRemindTimes drops invalid entries instead of failing. Used on data read back from storage.
func FilterRemindTimes(times []string) []string {
	valid := make([]string, 0, len(times))
	for _, t := range times {
		if ValidateRemindTime(strings.TrimSpace(t)) == nil {
			valid = append(valid, strings.TrimSpace(t))
		}
	}
	out, _ := NormalizeRemindTimes(valid)
	return out
}

// LoadTimezone resolves an IANA zone name.
func LoadTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return nil, &domain.ValidationError{Field: "timezone", Value: name, Reason: "IANA zone name required"}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &domain.ValidationError{Field: "timezone", Value: name, Reason: "unknown zone"}
	}
	return loc, nil
}

// NormalizeUsername trims whitespace and a leading '@'.
func NormalizeUsername(u string) string {
	return strings.TrimPrefix(strings.TrimSpace(u), "@")
}

// ValidateUsername checks the shape of an external username before it is verified remotely.
func ValidateUsername(u string) error {
	if u == "" {
		return &domain.ValidationError{Field: "username", Value: u, Reason: "empty"}
	}
	if len(u) > 64 || strings.ContainsAny(u, " \t\n/?#") {
		return &domain.ValidationError{Field: "username", Value: u, Reason: "malformed"}
	}
	return nil
}

// NewUserConfig validates raw values once at the boundary.
func NewUserConfig(userID int64, username, tz string, times []string, active bool) (*UserConfig, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidArgument
	}
	loc, err := LoadTimezone(tz)
	if err != nil {
		return nil, err
	}
	norm, err := NormalizeRemindTimes(times)
	if err != nil {
		return nil, err
	}
	return &UserConfig{
		UserID:           userID,
		ExternalUsername: NormalizeUsername(username),
		Timezone:         loc.String(),
		RemindTimes:      norm,
		Active:           active,
		Location:         loc,
	}, nil
}

// Linked reports whether an external username has been verified for the user.
func (c *UserConfig) Linked() bool { return c != nil && c.ExternalUsername != "" }

// LocalDate returns the calendar date string (YYYY-MM-DD) of t in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// RemindAt returns the instant of hhmm on the local day of now.
func RemindAt(now time.Time, loc *time.Location, hhmm string) (time.Time, error) {
	if err := ValidateRemindTime(hhmm); err != nil {
		return time.Time{}, err
	}
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, loc), nil
}
