package repository

import "errors"

// Sentinel kinds for outcome storage errors.
var (
	ErrNotFound         = errors.New("ticket outcome not found")
	ErrMissingRequestID = errors.New("request id is required")
	ErrUnknownDriver    = errors.New("unknown storage driver")
)
