package submission

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSubmission is returned by Submit when any field fails validation.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrBusy is returned when the ticket job could not be queued.
	ErrBusy = errors.New("ticket pipeline busy")
	// ErrMissingRequestID is returned when a record without a request id is triggered.
	ErrMissingRequestID = errors.New("missing request id")
	// ErrNoTicket is returned when the renderer produced nothing to capture.
	ErrNoTicket = errors.New("ticket could not be rendered")
)

// MsgBusyRetry is stored on the outcome when the pipeline could not be queued.
// Such an outcome does not block a later trigger.
const MsgBusyRetry = "The ticket service is busy, please reload the page to try again."

// StageError tells which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage err was raised in, or "unknown".
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "unknown"
}
