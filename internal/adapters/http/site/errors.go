package site

import "errors"

// Error constants
var (
	ErrRender = errors.New("page render failed")
)

// MsgBusy is shown on the form when the ticket pipeline cannot be started.
const MsgBusy = "The ticket service is busy, please try again in a moment."

const (
	maxFormBody   = 12 << 20
	maxFormMemory = 1 << 20
)
