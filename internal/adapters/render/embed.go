package render

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html.tmpl
var templatesFS embed.FS

//go:embed assets/*
var assetsFS embed.FS

// DefaultTemplates returns the embedded report templates.
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return templatesFS
	}
	return sub
}

// DefaultAssets returns the embedded stylesheet set.
func DefaultAssets() fs.FS {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		return assetsFS
	}
	return sub
}
