package hosting

import (
	"net/http"
	"strings"

	"github.com/okian/conftix/pkg/logger"
)

// DefaultEndpoint is the Cloudinary upload API root.
const DefaultEndpoint = "https://api.cloudinary.com/v1_1"

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the upload API root.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if e := strings.TrimRight(strings.TrimSpace(endpoint), "/"); e != "" {
			c.endpoint = e
		}
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
