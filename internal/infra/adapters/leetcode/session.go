package leetcode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
}

const csrfCookie = "csrftoken"

// Session is the long-lived client identity used against the status source.
// It owns the cookie jar, the anti-forgery token obtained by warming up against
// the home page, and the rotating identity headers. Safe for concurrent use.
type Session struct {
	base   *url.URL
	client *http.Client

	mu        sync.Mutex
	warm      bool
	csrf      string
	uaIdx     int
	sessionID string
}

// NewSession builds a session for baseURL. Redirects are never followed:
// the source redirects blocked clients to a challenge page instead of
// returning a payload.
func NewSession(baseURL string, timeout time.Duration) (*Session, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Session{
		base: base,
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		sessionID: uuid.NewString(),
	}, nil
}

func (s *Session) endpoint(path string) string {
	return s.base.ResolveReference(&url.URL{Path: path}).String()
}

// ensureWarm fetches the home page once per identity to collect the csrf cookie.
func (s *Session) ensureWarm(ctx context.Context) error {
	s.mu.Lock()
	if s.warm {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("/"), nil)
	if err != nil {
		return err
	}
	s.decorate(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()

	var token string
	for _, c := range s.client.Jar.Cookies(s.base) {
		if c.Name == csrfCookie {
			token = c.Value
		}
	}

	s.mu.Lock()
	s.csrf = token
	s.warm = true
	s.mu.Unlock()
	return nil
}

// Refresh rotates the client identity and forces a new warm-up on next use.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uaIdx = (s.uaIdx + 1) % len(userAgents)
	s.sessionID = uuid.NewString()
	s.warm = false
	s.csrf = ""
}

func (s *Session) decorate(req *http.Request) {
	s.mu.Lock()
	ua, sid, csrf := userAgents[s.uaIdx], s.sessionID, s.csrf
	s.mu.Unlock()

	req.Header.Set("User-Agent", ua)
	req.Header.Set("X-Client-Session", sid)
	req.Header.Set("Referer", s.endpoint("/"))
	req.Header.Set("Origin", s.base.Scheme+"://"+s.base.Host)
	if csrf != "" {
		req.Header.Set("X-Csrftoken", csrf)
	}
}

func (s *Session) do(req *http.Request) (*http.Response, error) {
	s.decorate(req)
	return s.client.Do(req)
}
