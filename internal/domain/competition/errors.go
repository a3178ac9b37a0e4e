package competition

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidSpec = errors.New("invalid competition spec")
)
