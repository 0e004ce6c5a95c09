package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"leetcode-reminder/internal/config"
	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/adapter"
	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/infra/metrics"
)

var _ adapter.StatusChecker = (*Checker)(nil)

const (
	acceptedStatus = "Accepted"
	maxRetryAfter  = 5 * time.Minute
	maxBodyBytes   = 4 << 20
)

const recentQuery = `query recent($username: String!, $limit: Int!) {
  matchedUser(username: $username) { username }
  recentSubmissionList(username: $username, limit: $limit) {
    title
    titleSlug
    timestamp
    statusDisplay
    lang
  }
}`

// Checker implements adapter.StatusChecker over the public GraphQL endpoint.
type Checker struct {
	session *Session
	cfg     config.LeetCodeConfig
	dev     bool
	log     *zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	// jitter returns a value in [0, n).
	jitter func(n time.Duration) time.Duration
}

func NewChecker(session *Session, cfg config.LeetCodeConfig, logger *zerolog.Logger, dev bool) *Checker {
	l := logger.With().Str("component", "LeetCodeChecker").Logger()
	return &Checker{
		session: session,
		cfg:     cfg,
		dev:     dev,
		log:     &l,
		now:     time.Now,
		sleep:   sleepCtx,
		jitter: func(n time.Duration) time.Duration {
			if n <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(n)))
		},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SolvedToday reports whether username has an accepted submission dated today in tz.
// NotFound returns after the first attempt; RateLimited and Transient retry up to
// the attempt budget and then return the last error.
func (c *Checker) SolvedToday(ctx context.Context, username, tz string, opts ...adapter.CheckOption) (bool, *model.AcceptedSubmission, error) {
	loc, err := model.LoadTimezone(tz)
	if err != nil {
		return false, nil, err
	}
	o := adapter.CheckOptions{MaxAttempts: c.cfg.MaxAttempts}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}

	start := time.Now()
	subs, err := c.fetchWithRetry(ctx, username, o.MaxAttempts)
	metrics.ObserveStatusCheck(time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return false, nil, err
	}

	ok, info := firstAcceptedToday(subs, c.now(), loc)
	return ok, info, nil
}

func (c *Checker) fetchWithRetry(ctx context.Context, username string, attempts int) ([]submission, error) {
	log := c.log.With().Str("username", logging.Redact(username, c.dev)).Logger()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		subs, err := c.fetch(ctx, username)
		if err == nil {
			metrics.IncStatusAttempt("ok")
			return subs, nil
		}
		kind := domain.KindOf(err)
		metrics.IncStatusAttempt(string(kind))
		lastErr = err

		if kind == domain.StatusNotFound || attempt == attempts {
			break
		}
		if ctx.Err() != nil {
			return nil, domain.NewStatusError(domain.StatusTransient, ctx.Err())
		}

		delay := c.backoff(err, attempt)
		log.Debug().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("status query failed; retrying")
		c.session.Refresh()
		if err := c.sleep(ctx, delay); err != nil {
			return nil, domain.NewStatusError(domain.StatusTransient, err)
		}
	}
	return nil, lastErr
}

// backoff is base*attempt plus jitter for transient failures, and the
// server-provided (or default) window for rate limiting.
func (c *Checker) backoff(err error, attempt int) time.Duration {
	var se *domain.StatusError
	if errors.As(err, &se) && se.Kind == domain.StatusRateLimited {
		d := se.RetryAfter
		if d <= 0 {
			d = c.cfg.RateLimitDelay
		}
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d + c.jitter(c.cfg.BaseDelay)
	}
	return c.cfg.BaseDelay*time.Duration(attempt) + c.jitter(c.cfg.BaseDelay)
}

type submission struct {
	Title         string `json:"title"`
	TitleSlug     string `json:"titleSlug"`
	Timestamp     unixTS `json:"timestamp"`
	StatusDisplay string `json:"statusDisplay"`
	Lang          string `json:"lang"`
}

// unixTS accepts both quoted and bare integers; anything else decodes as 0.
type unixTS int64

func (t *unixTS) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*t = 0
		return nil
	}
	*t = unixTS(n)
	return nil
}

type gqlResponse struct {
	Data *struct {
		MatchedUser          *struct{ Username string } `json:"matchedUser"`
		RecentSubmissionList []submission              `json:"recentSubmissionList"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Checker) fetch(ctx context.Context, username string) ([]submission, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	if err := c.session.ensureWarm(ctx); err != nil {
		c.log.Debug().Err(err).Msg("session warm-up failed")
	}

	body, _ := json.Marshal(map[string]interface{}{
		"query":     recentQuery,
		"variables": map[string]interface{}{"username": username, "limit": c.cfg.RecentLimit},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.session.endpoint("/graphql/"), bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewStatusError(domain.StatusTransient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.session.do(req)
	if err != nil {
		return nil, domain.NewStatusError(domain.StatusTransient, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.NewStatusError(domain.StatusTransient, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, domain.NewStatusError(domain.StatusTransient, errors.New("empty response"))
	}
	var out gqlResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, domain.NewStatusError(domain.StatusTransient, fmt.Errorf("malformed response: %w", err))
	}
	if len(out.Errors) > 0 {
		return nil, classifyGraphQLErrors(out.Errors[0].Message)
	}
	if out.Data == nil {
		return nil, domain.NewStatusError(domain.StatusTransient, errors.New("response without data"))
	}
	if out.Data.MatchedUser == nil {
		return nil, domain.NewStatusError(domain.StatusNotFound, fmt.Errorf("user %q does not exist", username))
	}
	return out.Data.RecentSubmissionList, nil
}

func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		se := domain.NewStatusError(domain.StatusRateLimited, errors.New("http 429"))
		se.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return se
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return domain.NewStatusError(domain.StatusTransient, fmt.Errorf("redirected (http %d) to %q", resp.StatusCode, resp.Header.Get("Location")))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.NewStatusError(domain.StatusTransient, fmt.Errorf("http %d", resp.StatusCode))
	}
	return nil
}

func classifyGraphQLErrors(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "does not exist"), strings.Contains(lower, "not found"):
		return domain.NewStatusError(domain.StatusNotFound, errors.New(msg))
	case strings.Contains(lower, "too many"), strings.Contains(lower, "rate limit"), strings.Contains(lower, "ratelimit"):
		return domain.NewStatusError(domain.StatusRateLimited, errors.New(msg))
	default:
		return domain.NewStatusError(domain.StatusTransient, errors.New(msg))
	}
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

// firstAcceptedToday scans in source order (newest first) for an accepted
// submission whose local date equals today's local date.
func firstAcceptedToday(subs []submission, now time.Time, loc *time.Location) (bool, *model.AcceptedSubmission) {
	today := model.LocalDate(now, loc)
	for _, s := range subs {
		if s.Timestamp <= 0 || s.StatusDisplay != acceptedStatus {
			continue
		}
		at := time.Unix(int64(s.Timestamp), 0).In(loc)
		if model.LocalDate(at, loc) != today {
			continue
		}
		title := s.Title
		if title == "" {
			title = acceptedStatus
		}
		return true, &model.AcceptedSubmission{
			Title:       title,
			Slug:        s.TitleSlug,
			Lang:        s.Lang,
			CompletedAt: at.Format("15:04"),
		}
	}
	return false, nil
}
