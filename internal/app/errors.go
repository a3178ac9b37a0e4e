package service

import "errors"

// Sentinel errors for report runs.
var (
	ErrNotStarted = errors.New("service not started")
	ErrNoInput    = errors.New("no input configured")
)
