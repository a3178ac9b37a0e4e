package render

import "errors"

// Sentinel error kinds for rendering.
var (
	ErrTemplate = errors.New("template load failed")
	ErrRender   = errors.New("render failed")
	ErrAssets   = errors.New("copy assets failed")
)
