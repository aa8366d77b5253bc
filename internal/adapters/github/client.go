// Package github talks to the GitHub REST API for handle lookups and
// suggestions.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/okian/conftix/internal/domain/lookup"
	"github.com/okian/conftix/pkg/logger"
	"github.com/okian/conftix/pkg/metrics"
)

const target = "github"

// Client implements lookup.Lookuper and lookup.Searcher.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logger.Logger

	gh *gh.Client
}

// New builds a Client. The default API root is https://api.github.com/.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.Get().Named("github"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.gh = gh.NewClient(c.httpClient)
	if c.token != "" {
		c.gh = c.gh.WithAuthToken(c.token)
	}
	if c.baseURL != "" {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		c.gh.BaseURL = u
	}
	return c, nil
}

// Exists reports whether login is a GitHub account. A 404 is a plain "no";
// any other failure is returned as an error wrapping ErrLookup.
func (c *Client) Exists(ctx context.Context, login string) (bool, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return false, nil
	}

	start := time.Now()
	_, resp, err := c.gh.Users.Get(ctx, login)
	c.record(resp, start)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		if IsRateLimited(err) {
			c.log.Warn(ctx, "github rate limit hit", logger.String("login", login))
		}
		return false, fmt.Errorf("%w: get user %s: %w", ErrLookup, login, err)
	}
	return true, nil
}

// SearchUsers returns up to limit accounts matching term.
func (c *Client) SearchUsers(ctx context.Context, term string, limit int) ([]lookup.Candidate, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = lookup.DefaultSuggestLimit
	}

	start := time.Now()
	res, resp, err := c.gh.Search.Users(ctx, term, &gh.SearchOptions{
		ListOptions: gh.ListOptions{PerPage: limit},
	})
	c.record(resp, start)
	if err != nil {
		if IsRateLimited(err) {
			c.log.Warn(ctx, "github rate limit hit", logger.String("term", term))
		}
		return nil, fmt.Errorf("%w: search users %q: %w", ErrLookup, term, err)
	}

	out := make([]lookup.Candidate, 0, min(limit, len(res.Users)))
	for _, u := range res.Users {
		if len(out) == limit {
			break
		}
		if u.GetLogin() == "" {
			continue
		}
		out = append(out, lookup.Candidate{Login: u.GetLogin(), AvatarURL: u.GetAvatarURL()})
	}
	return out, nil
}

// DisplayName returns the profile name of login, which may be empty.
func (c *Client) DisplayName(ctx context.Context, login string) (string, error) {
	start := time.Now()
	u, resp, err := c.gh.Users.Get(ctx, login)
	c.record(resp, start)
	if err != nil {
		return "", fmt.Errorf("%w: get user %s: %w", ErrLookup, login, err)
	}
	return u.GetName(), nil
}

func (c *Client) record(resp *gh.Response, start time.Time) {
	code := 0
	if resp != nil && resp.Response != nil {
		code = resp.StatusCode
	}
	metrics.RecordOutboundRequest(target, metrics.StatusClass(code), float64(time.Since(start).Milliseconds()))
}

// IsRateLimited reports whether err came from GitHub's rate limiter.
func IsRateLimited(err error) bool {
	var rl *gh.RateLimitError
	var arl *gh.AbuseRateLimitError
	return errors.As(err, &rl) || errors.As(err, &arl)
}
