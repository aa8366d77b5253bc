package dedupe

// Option configures the in-memory latch.
type Option func(*memoryLatch)

// WithMaxSize sets how many ids are remembered.
// If maxSize > 0 the oldest ids are forgotten first once full.
// If maxSize <= 0 the latch is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(l *memoryLatch) {
		l.maxSize = maxSize
	}
}
