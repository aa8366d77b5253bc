package github

import "errors"

// ErrLookup wraps every failed call to the identity service.
var ErrLookup = errors.New("identity lookup failed")
