package ingest

import "errors"

// Sentinel error kinds for ingestion.
var (
	ErrMalformedInput = errors.New("malformed input")
	ErrOpenInput      = errors.New("open input failed")
)
