// Package dedupe provides the one-shot latch that lets each submission run
// its capture and upload cycle at most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// DefaultMaxSize is the number of request ids remembered by default.
const DefaultMaxSize = 50000

// Latch remembers which request ids already started their cycle.
type Latch interface {
	// Claim atomically records id. It returns true only for the first caller;
	// every later call for the same id returns false.
	Claim(ctx context.Context, id string) bool

	// Release forgets id so it can be claimed again. Only meant for a cycle
	// that was claimed but could not be started (e.g. queue backpressure).
	Release(ctx context.Context, id string)

	// Claimed reports whether id is currently held.
	Claimed(id string) bool

	Size() int64
}

// memoryLatch keeps ids in insertion order. When bounded, the oldest id is
// forgotten first; an id is only ever evicted long after its cycle started.
type memoryLatch struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int // <= 0 means unbounded
}

// NewLatch creates an in-memory latch.
func NewLatch(opts ...Option) Latch {
	l := &memoryLatch{
		maxSize: DefaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *memoryLatch) Claim(_ context.Context, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[id]; ok {
		return false
	}
	if l.maxSize > 0 && l.order.Len() >= l.maxSize {
		l.evictOldest()
	}
	l.seen[id] = l.order.PushBack(id)
	return true
}

func (l *memoryLatch) Release(_ context.Context, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.seen[id]; ok {
		l.order.Remove(el)
		delete(l.seen, id)
	}
}

func (l *memoryLatch) Claimed(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok
}

func (l *memoryLatch) Size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(l.order.Len())
}

// evictOldest must be called with l.mu held.
func (l *memoryLatch) evictOldest() {
	front := l.order.Front()
	if front == nil {
		return
	}
	l.order.Remove(front)
	delete(l.seen, front.Value.(string))
}
