package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

const (
	maxJSONBody   = 16 << 10
	maxAvatarBody = 10 << 20
)
