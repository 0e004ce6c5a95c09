package adapter

import (
	"context"

	"leetcode-reminder/internal/domain/model"
)

// StatusChecker answers whether username completed the activity today in tz.
// Failures are *domain.StatusError values.
type StatusChecker interface {
	SolvedToday(ctx context.Context, username, tz string, opts ...CheckOption) (bool, *model.AcceptedSubmission, error)
}

// CheckOption tunes a single SolvedToday call.
type CheckOption func(*CheckOptions)

type CheckOptions struct {
	MaxAttempts int
}

// WithMaxAttempts overrides the attempt budget for one call.
func WithMaxAttempts(n int) CheckOption {
	return func(o *CheckOptions) { o.MaxAttempts = n }
}
