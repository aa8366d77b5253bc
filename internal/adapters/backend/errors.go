package backend

import "errors"

// ErrBackend is returned when the registration endpoint rejects or fails a
// submission.
var ErrBackend = errors.New("backend submission failed")
