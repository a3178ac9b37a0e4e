package changes

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidPolicy = errors.New("invalid change policy")
)
