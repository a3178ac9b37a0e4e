// Package site serves the generated report documents in serve mode.
package site

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"strings"
)

// Prefix is the URL path the documents are mounted under.
const Prefix = "/reports/"

// Error constants
var (
	ErrNoOutputDir = errors.New("output directory not configured")
)

// Register mounts the output directory at Prefix.
func Register(_ context.Context, mux *http.ServeMux, outputDir string) error {
	if mux == nil {
		panic("mux is nil")
	}
	if outputDir == "" {
		return ErrNoOutputDir
	}

	mux.Handle(Prefix, NewRootHandler(outputDir))
	return nil
}

// RootHandler serves files from the output directory.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a handler for the documents in dir.
func NewRootHandler(dir string) *RootHandler {
	return &RootHandler{
		files: http.StripPrefix(Prefix, http.FileServer(http.FS(os.DirFS(dir)))),
	}
}

// ServeHTTP serves GET requests for generated documents. Dot files and
// anything below a dot directory are hidden.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	if hidden(r.URL.Path) {
		http.NotFound(w, r)
		return
	}
	if strings.HasSuffix(r.URL.Path, ".pdf") {
		w.Header().Set("Content-Disposition", "inline; filename=\""+path.Base(r.URL.Path)+"\"")
	}
	h.files.ServeHTTP(w, r)
}

// hidden reports whether any segment of p starts with a dot.
func hidden(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
