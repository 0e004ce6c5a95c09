package model

import (
	"time"

	"leetcode-reminder/internal/domain"
)

// AcceptedSubmission describes the first accepted submission of the local day.
type AcceptedSubmission struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Lang        string `json:"lang"`
	CompletedAt string `json:"time_hhmm"`
}

// ProblemLink renders the public URL of a problem slug.
func ProblemLink(slug string) string {
	if slug == "" {
		return "https://leetcode.com/problemset/"
	}
	return "https://leetcode.com/problems/" + slug + "/"
}

// CheckResult is written by the decoupled worker under (user, date).
type CheckResult struct {
	Solved    bool                `json:"ok"`
	Info      *AcceptedSubmission `json:"info,omitempty"`
	CheckedAt int64               `json:"checked_at"`
	Username  string              `json:"username"`
}

// CheckFailure is the classified-failure payload written by the decoupled worker.
type CheckFailure struct {
	Kind      domain.StatusKind `json:"error_type"`
	Message   string            `json:"error"`
	CheckedAt int64             `json:"checked_at"`
	Username  string            `json:"username"`
}

// Err rebuilds the classified error.
func (f *CheckFailure) Err() error {
	return domain.NewStatusError(f.Kind, errString(f.Message))
}

type errString string

func (e errString) Error() string { return string(e) }

// CooldownScope separates independent throttle domains.
type CooldownScope string

const (
	ScopeInteractive CooldownScope = "interactive"
	ScopeScheduler   CooldownScope = "scheduler"
)

// CooldownResult is the outcome of an acquisition attempt.
type CooldownResult struct {
	Acquired  bool
	Remaining time.Duration
}
