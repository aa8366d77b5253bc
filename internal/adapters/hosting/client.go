// Package hosting uploads rendered tickets to a Cloudinary-compatible image
// host using an unsigned upload preset.
package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/okian/conftix/internal/config"
	"github.com/okian/conftix/internal/domain/submission"
	"github.com/okian/conftix/pkg/logger"
	"github.com/okian/conftix/pkg/metrics"
)

const (
	target       = "image_host"
	maxErrorBody = 4 << 10
)

// Client implements submission.Uploader.
type Client struct {
	cloudName    string
	uploadPreset string
	endpoint     string
	httpClient   *http.Client
	log          logger.Logger
}

// New creates a client for the given account. Missing settings are only
// reported by Ready, so the service can start without them.
func New(cloudName, uploadPreset string, opts ...Option) *Client {
	c := &Client{
		cloudName:    strings.TrimSpace(cloudName),
		uploadPreset: strings.TrimSpace(uploadPreset),
		endpoint:     DefaultEndpoint,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          logger.Get().Named("hosting"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports config.ErrMissingSetting for each missing account setting.
func (c *Client) Ready() error {
	return errors.Join(
		config.Require("cloud_name", c.cloudName),
		config.Require("upload_preset", c.uploadPreset),
	)
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts req.File (a data URL) under req.PublicID.
func (c *Client) Upload(ctx context.Context, req submission.UploadRequest) (submission.Upload, error) {
	if err := c.Ready(); err != nil {
		return submission.Upload{}, err
	}

	body, contentType, err := encodeForm(map[string]string{
		"file":          req.File,
		"upload_preset": c.uploadPreset,
		"public_id":     req.PublicID,
	})
	if err != nil {
		return submission.Upload{}, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	url := fmt.Sprintf("%s/%s/image/upload", c.endpoint, c.cloudName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return submission.Upload{}, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordOutboundRequest(target, metrics.StatusClass(0), float64(time.Since(start).Milliseconds()))
		return submission.Upload{}, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Error(ctx, "failed to close upload response body", logger.Error(err))
		}
	}()
	metrics.RecordOutboundRequest(target, metrics.StatusClass(resp.StatusCode), float64(time.Since(start).Milliseconds()))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return submission.Upload{}, fmt.Errorf("%w: read response: %w", ErrUpload, err)
	}

	var out uploadResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		} else if len(raw) > 0 {
			msg = string(raw[:min(len(raw), maxErrorBody)])
		}
		return submission.Upload{}, fmt.Errorf("%w: status %d: %s", ErrUpload, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return submission.Upload{}, fmt.Errorf("%w: decode response: %w", ErrUpload, decodeErr)
	}
	if out.Error != nil {
		return submission.Upload{}, fmt.Errorf("%w: %s", ErrUpload, out.Error.Message)
	}
	if out.SecureURL == "" {
		return submission.Upload{}, fmt.Errorf("%w: response has no secure_url", ErrUpload)
	}

	c.log.Debug(ctx, "ticket uploaded",
		logger.String("publicId", out.PublicID),
		logger.String("url", out.SecureURL),
	)
	return submission.Upload{SecureURL: out.SecureURL, PublicID: out.PublicID}, nil
}

func encodeForm(fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range []string{"file", "upload_preset", "public_id"} {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
