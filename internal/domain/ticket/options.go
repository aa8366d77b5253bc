package ticket

import (
	"net/http"

	"golang.org/x/image/font"

	"github.com/okian/conftix/pkg/logger"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithEvent sets the date and location printed on the ticket.
func WithEvent(date, location string) Option {
	return func(r *Renderer) {
		r.eventDate = date
		r.eventLocation = location
	}
}

// WithBackgroundURL replaces the built-in background with a remote image.
func WithBackgroundURL(u string) Option {
	return func(r *Renderer) {
		r.backgroundURL = u
	}
}

// WithTrustedHosts lists the hosts whose images may be exported.
func WithTrustedHosts(hosts ...string) Option {
	return func(r *Renderer) {
		r.trustedHosts = append(r.trustedHosts, hosts...)
	}
}

// WithHTTPClient sets the client used for remote images.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Renderer) {
		if c != nil {
			r.client = c
		}
	}
}

// WithFace sets the font face used for all text.
func WithFace(f font.Face) Option {
	return func(r *Renderer) {
		if f != nil {
			r.face = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}
