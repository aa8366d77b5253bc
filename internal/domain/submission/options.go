package submission

import (
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/conftix/internal/domain/dedupe"
	"github.com/okian/conftix/pkg/logger"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLatch replaces the default in-memory latch.
func WithLatch(l dedupe.Latch) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.latch = l
		}
	}
}

// WithClock sets the clock used for request ids and stage latency.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRequestIDs replaces the request id generator.
func WithRequestIDs(gen func(unixMilli int64) string) Option {
	return func(c *Coordinator) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithKeepCaptures keeps captured tickets in the outcome store.
func WithKeepCaptures(keep bool) Option {
	return func(c *Coordinator) {
		c.keepCaptures = keep
	}
}

// WithTracer sets the tracer used for pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}
