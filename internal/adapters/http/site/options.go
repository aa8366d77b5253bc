package site

import (
	"time"

	"github.com/okian/conftix/pkg/logger"
)

const DefaultPollInterval = time.Second

// Option configures a Handler.
type Option func(*Handler)

// WithEvent sets the date and location shown on the pages.
func WithEvent(date, location string) Option {
	return func(h *Handler) {
		h.eventDate = date
		h.eventLocation = location
	}
}

// WithPollInterval sets how often the ticket page asks for progress.
func WithPollInterval(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.pollInterval = d
		}
	}
}

// WithDownloads links the kept ticket image on the ticket page.
func WithDownloads(enabled bool) Option {
	return func(h *Handler) {
		h.downloads = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}
