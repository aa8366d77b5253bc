package github

import (
	"net/http"
	"strings"

	"github.com/okian/conftix/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithToken authenticates requests, raising the search rate limit.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
