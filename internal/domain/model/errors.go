package model

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidModel = errors.New("invalid model")
)
