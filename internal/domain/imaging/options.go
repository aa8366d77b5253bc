package imaging

import "github.com/okian/conftix/pkg/logger"

// Option configures a Compressor.
type Option func(*Compressor)

// WithMaxWidth sets the width above which images are scaled down.
func WithMaxWidth(w int) Option {
	return func(c *Compressor) {
		if w > 0 {
			c.maxWidth = w
		}
	}
}

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(c *Compressor) {
		if q >= 1 && q <= 100 {
			c.quality = q
		}
	}
}

// WithMaxBytes sets the output size ceiling.
func WithMaxBytes(n int) Option {
	return func(c *Compressor) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Compressor) {
		if l != nil {
			c.log = l
		}
	}
}
