package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnknownClass = errors.New("unknown class")
	ErrUnknownTitle = errors.New("unknown competition class")
	ErrUnavailable  = errors.New("report unavailable")
)
