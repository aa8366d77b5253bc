// Package backend posts completed registrations to the conference API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/conftix/internal/config"
	"github.com/okian/conftix/internal/domain/submission"
	"github.com/okian/conftix/pkg/logger"
	"github.com/okian/conftix/pkg/metrics"
)

const (
	target       = "backend"
	maxErrorBody = 4 << 10
)

// Client implements submission.Notifier.
type Client struct {
	url        string
	httpClient *http.Client
	log        logger.Logger
}

// New creates a client posting to url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.Get().Named("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports config.ErrMissingSetting when no endpoint is configured.
func (c *Client) Ready() error {
	return config.Require("api_url", c.url)
}

// Notify posts n as JSON. Success is a 2xx with a JSON body.
func (c *Client) Notify(ctx context.Context, n submission.Notification) error {
	if err := c.Ready(); err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%w: marshal request body: %w", ErrBackend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrBackend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordOutboundRequest(target, metrics.StatusClass(0), float64(time.Since(start).Milliseconds()))
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Error(ctx, "failed to close backend response body", logger.Error(err))
		}
	}()
	metrics.RecordOutboundRequest(target, metrics.StatusClass(resp.StatusCode), float64(time.Since(start).Milliseconds()))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrBackend, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := strings.TrimSpace(string(body[:min(len(body), maxErrorBody)]))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d: %s", ErrBackend, resp.StatusCode, text)
	}
	if !json.Valid(body) {
		return fmt.Errorf("%w: status %d: response is not JSON", ErrBackend, resp.StatusCode)
	}

	c.log.Info(ctx, "registration stored", logger.String("github", n.GitHub))
	return nil
}
