package pdf

import "errors"

// Sentinel errors for PDF export.
var (
	ErrExport      = errors.New("pdf export failed")
	ErrMissingHTML = errors.New("html document not found")
)
