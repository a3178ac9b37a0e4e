// Package render turns engine output into HTML documents and JSON dumps.
package render

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/okian/gliderindex/internal/domain/competition"
	"github.com/okian/gliderindex/internal/domain/model"
	"github.com/okian/gliderindex/internal/domain/roster"
)

// Template names looked up in the template filesystem.
const (
	IndexListTemplate   = "index_list.html.tmpl"
	CompetitionTemplate = "competition.html.tmpl"
)

const assetFilePermission = 0o644

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

// IndexListView is the data handed to the index list template.
type IndexListView struct {
	Title       string           `json:"title"`
	Edition     string           `json:"edition,omitempty"`
	Logo        string           `json:"-"`
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Sections    []roster.Section `json:"sections"`
}

// CompetitionView is the data handed to the competition template.
type CompetitionView struct {
	Title       string              `json:"title"`
	Logo        string              `json:"-"`
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Roster      []model.Model       `json:"roster,omitempty"`
	Classes     []competition.Class `json:"classes"`
}

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithTemplates replaces the embedded templates, e.g. with os.DirFS(assets).
func WithTemplates(fsys fs.FS) Option {
	return func(r *Renderer) {
		if fsys != nil {
			r.source = fsys
		}
	}
}

// Renderer executes the report templates.
type Renderer struct {
	source    fs.FS
	templates *template.Template
}

// New parses the report templates.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{source: DefaultTemplates()}
	for _, opt := range opts {
		opt(r)
	}

	t, err := template.New("reports").Funcs(Funcs()).ParseFS(r.source, "*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	for _, name := range []string{IndexListTemplate, CompetitionTemplate} {
		if t.Lookup(name) == nil {
			return nil, fmt.Errorf("%w: missing %s", ErrTemplate, name)
		}
	}
	r.templates = t
	return r, nil
}

// Funcs returns the helpers available to report templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatHandicap": FormatHandicap,
		"formatIndex":    FormatIndex,
	}
}

// FormatHandicap renders a rescaled handicap with three decimals.
func FormatHandicap(h float64) string {
	return strconv.FormatFloat(h, 'f', 3, 64)
}

// FormatIndex renders a raw handicap in its shortest exact form.
func FormatIndex(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// RenderIndexList writes the index list document to w.
func (r *Renderer) RenderIndexList(ctx context.Context, w io.Writer, view IndexListView) error {
	return r.execute(ctx, w, IndexListTemplate, view)
}

// RenderCompetition writes the competition document to w.
func (r *Renderer) RenderCompetition(ctx context.Context, w io.Writer, view CompetitionView) error {
	return r.execute(ctx, w, CompetitionTemplate, view)
}

func (r *Renderer) execute(ctx context.Context, w io.Writer, name string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, name, err)
	}
	return nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(ctx context.Context, w io.Writer, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%w: json: %w", ErrRender, err)
	}
	return nil
}

// CopyAssets copies the named files from src into dstDir.
func CopyAssets(ctx context.Context, src fs.FS, dstDir string, names ...string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrAssets, err)
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyAsset(src, name, filepath.Join(dstDir, filepath.Base(name))); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAssets, name, err)
		}
	}
	return nil
}

func copyAsset(src fs.FS, name, dst string) error {
	in, err := src.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, assetFilePermission)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
