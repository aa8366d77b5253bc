package queue

import "errors"

// Sentinel kinds for rejected jobs.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
