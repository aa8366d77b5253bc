// Package lookup gives live feedback on the GitHub handle field: a debounced
// existence check and a debounced suggestion search.
package lookup

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/conftix/internal/domain/model"
	"github.com/okian/conftix/internal/domain/validate"
	"github.com/okian/conftix/pkg/logger"
	"github.com/okian/conftix/pkg/metrics"
)

// Lookuper answers whether an account with the given login exists.
type Lookuper interface {
	Exists(ctx context.Context, login string) (bool, error)
}

// Checker tracks the existence status of the handle currently typed in the
// form. Only the latest input can change the status: every Update bumps a
// generation and a lookup result is applied only if both the generation and
// the input it was issued for are still current.
type Checker struct {
	lookup  Lookuper
	clock   clockwork.Clock
	delay   time.Duration
	timeout time.Duration
	log     logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	input  string
	status model.HandleStatus
	gen    uint64
	timer  clockwork.Timer
	closed bool
}

// NewChecker creates a Checker backed by l.
func NewChecker(l Lookuper, opts ...CheckerOption) *Checker {
	c := &Checker{
		lookup: l,
		clock:  clockwork.NewRealClock(),
		delay:  DefaultCheckDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("handle_checker")
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Update records a new handle value. The status drops to unset and, when the
// handle is well formed, a lookup is scheduled after the quiet period.
func (c *Checker) Update(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.gen++
	c.input = handle
	c.status = model.HandleUnset
	if c.closed || !validate.ValidHandle(handle) {
		return
	}

	gen := c.gen
	c.timer = c.clock.AfterFunc(c.delay, func() { c.check(gen, handle) })
}

// Confirm marks handle as existing without a lookup. Used when the user picks
// a suggestion returned by the identity service.
func (c *Checker) Confirm(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.gen++
	c.input = handle
	c.status = model.HandleExists
}

// Status returns the input the status belongs to and the status itself.
func (c *Checker) Status() (string, model.HandleStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input, c.status
}

// StatusFor returns the status if handle is the current input, unset otherwise.
func (c *Checker) StatusFor(handle string) model.HandleStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.input != handle {
		return model.HandleUnset
	}
	return c.status
}

// Close stops pending timers and aborts an in-flight lookup.
func (c *Checker) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	c.gen++
	c.mu.Unlock()
	c.cancel()
}

func (c *Checker) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Checker) check(gen uint64, handle string) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.status = model.HandleChecking
	c.mu.Unlock()

	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	login := validate.HandleLogin(handle)
	exists, err := c.lookup.Exists(ctx, login)
	next := model.HandleExists
	result := "exists"
	if err != nil {
		c.log.Warn(ctx, "handle lookup failed, treating as missing",
			logger.String("login", login),
			logger.Error(err),
		)
		next, result = model.HandleMissing, "error"
	} else if !exists {
		next, result = model.HandleMissing, "missing"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen || c.input != handle {
		metrics.RecordHandleCheck("stale")
		return
	}
	c.status = next
	metrics.RecordHandleCheck(result)
}
