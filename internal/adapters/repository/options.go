package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxEntries bounds the number of outcomes kept in memory; the oldest
// are dropped first. Zero or less means unbounded.
func WithMaxEntries(n int) Option {
	return func(s *MemoryStore) {
		s.maxEntries = n
	}
}
