package lookup

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/conftix/pkg/logger"
)

const (
	DefaultCheckDelay    = 600 * time.Millisecond
	DefaultSuggestDelay  = 500 * time.Millisecond
	DefaultSuggestLimit  = 5
	DefaultEnrichWorkers = 5
)

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithCheckClock sets the clock used for the debounce timer.
func WithCheckClock(c clockwork.Clock) CheckerOption {
	return func(ch *Checker) {
		if c != nil {
			ch.clock = c
		}
	}
}

// WithCheckDelay sets the quiet period before a lookup is made.
func WithCheckDelay(d time.Duration) CheckerOption {
	return func(ch *Checker) {
		if d > 0 {
			ch.delay = d
		}
	}
}

// WithCheckTimeout bounds a single lookup. Zero means no bound.
func WithCheckTimeout(d time.Duration) CheckerOption {
	return func(ch *Checker) {
		ch.timeout = d
	}
}

// WithCheckLogger sets the logger.
func WithCheckLogger(l logger.Logger) CheckerOption {
	return func(ch *Checker) {
		if l != nil {
			ch.log = l
		}
	}
}

// SuggesterOption configures a Suggester.
type SuggesterOption func(*Suggester)

// WithSuggestClock sets the clock used for the debounce timer.
func WithSuggestClock(c clockwork.Clock) SuggesterOption {
	return func(s *Suggester) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSuggestDelay sets the quiet period before a search is made.
func WithSuggestDelay(d time.Duration) SuggesterOption {
	return func(s *Suggester) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithSuggestLimit caps the number of entries shown.
func WithSuggestLimit(n int) SuggesterOption {
	return func(s *Suggester) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithEnrichWorkers bounds the parallel display name lookups.
func WithEnrichWorkers(n int) SuggesterOption {
	return func(s *Suggester) {
		if n > 0 {
			s.enrichWorkers = n
		}
	}
}

// WithConfirmer wires the component told about a selected suggestion.
func WithConfirmer(c Confirmer) SuggesterOption {
	return func(s *Suggester) {
		s.confirmer = c
	}
}

// WithSuggestLogger sets the logger.
func WithSuggestLogger(l logger.Logger) SuggesterOption {
	return func(s *Suggester) {
		if l != nil {
			s.log = l
		}
	}
}
