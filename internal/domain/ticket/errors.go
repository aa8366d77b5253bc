package ticket

import "errors"

var (
	// ErrTaintedSurface is returned when a loaded element came from an
	// untrusted origin and would leak into the exported pixels.
	ErrTaintedSurface = errors.New("ticket surface tainted by untrusted image")
	// ErrEmptyNode is returned when asked to capture a nil node.
	ErrEmptyNode = errors.New("nothing to capture")
)
