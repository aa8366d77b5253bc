package session

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/conftix/internal/domain/lookup"
	"github.com/okian/conftix/pkg/logger"
)

const (
	DefaultTTL        = 30 * time.Minute
	DefaultCookieName = "conftix_session"
)

// Option configures a Store.
type Option func(*Store)

// WithTTL sets how long an idle session is kept.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock sets the clock used for expiry.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.cookieName = name
		}
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(s *Store) {
		s.secure = secure
	}
}

// WithCheckerOptions are applied to every session's handle checker.
func WithCheckerOptions(opts ...lookup.CheckerOption) Option {
	return func(s *Store) {
		s.checkerOpts = append(s.checkerOpts, opts...)
	}
}

// WithSuggesterOptions are applied to every session's suggester.
func WithSuggesterOptions(opts ...lookup.SuggesterOption) Option {
	return func(s *Store) {
		s.suggesterOpts = append(s.suggesterOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}
