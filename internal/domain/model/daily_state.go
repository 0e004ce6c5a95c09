package model

import (
	"sort"
	"time"
)

// DailyState records which notifications already fired for one user on one local date.
type DailyState struct {
	Date            string   `json:"date"`
	RemindedTimes   []string `json:"reminded_times"`
	CongratsSent    bool     `json:"congrats_sent"`
	LastCheckTS     int64    `json:"last_lc_check_ts"`
	LastErrorTS     int64    `json:"last_error_ts"`
	LastRateLimitTS int64    `json:"last_rate_limit_ts"`
}

// NewDailyState is the zero state for date.
func NewDailyState(date string) *DailyState {
	return &DailyState{Date: date, RemindedTimes: []string{}}
}

func (s *DailyState) Reminded(hhmm string) bool {
	for _, t := range s.RemindedTimes {
		if t == hhmm {
			return true
		}
	}
	return false
}

// MarkReminded adds hhmm; entries are never removed within the date.
func (s *DailyState) MarkReminded(hhmm string) bool {
	if s.Reminded(hhmm) {
		return false
	}
	s.RemindedTimes = append(s.RemindedTimes, hhmm)
	sort.Strings(s.RemindedTimes)
	return true
}

// MarkCongratulated flips CongratsSent to true. It reports whether this call changed it.
func (s *DailyState) MarkCongratulated() bool {
	if s.CongratsSent {
		return false
	}
	s.CongratsSent = true
	return true
}

func (s *DailyState) MarkChecked(now time.Time) { s.LastCheckTS = now.Unix() }

// CheckDue reports whether the status source should be queried again.
// Until the congratulation is sent every tick may query.
func (s *DailyState) CheckDue(now time.Time, interval time.Duration) bool {
	if !s.CongratsSent {
		return true
	}
	return now.Unix()-s.LastCheckTS >= int64(interval/time.Second)
}

// ErrorNoticeDue applies the per-kind notice throttle. Rate-limit notices
// use their own timestamp so they do not suppress not-found notices.
func (s *DailyState) ErrorNoticeDue(rateLimited bool, now time.Time, window time.Duration) bool {
	last := s.LastErrorTS
	if rateLimited {
		last = s.LastRateLimitTS
	}
	if last == 0 {
		return true
	}
	return now.Unix()-last >= int64(window/time.Second)
}

func (s *DailyState) MarkErrorNotice(rateLimited bool, now time.Time) {
	if rateLimited {
		s.LastRateLimitTS = now.Unix()
		return
	}
	s.LastErrorTS = now.Unix()
}

// Clone returns a deep copy.
func (s *DailyState) Clone() *DailyState {
	cp := *s
	cp.RemindedTimes = append([]string(nil), s.RemindedTimes...)
	return &cp
}
