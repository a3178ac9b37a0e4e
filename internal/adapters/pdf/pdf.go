// Package pdf prints rendered HTML reports to PDF with a headless browser.
package pdf

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/okian/gliderindex/pkg/logger"
	"github.com/okian/gliderindex/pkg/metrics"
)

const defaultTimeout = 60 * time.Second

// Exporter turns an HTML document on disk into a PDF document.
type Exporter interface {
	Export(ctx context.Context, htmlPath, pdfPath string) error
}

// NopExporter skips export; used when PDF output is disabled.
type NopExporter struct{}

// Export implements Exporter.
func (NopExporter) Export(context.Context, string, string) error { return nil }

// ChromeExporter drives a headless Chrome through the DevTools protocol.
type ChromeExporter struct {
	timeout  time.Duration
	execPath string
	logger   logger.Logger
}

// Option configures a ChromeExporter.
type Option func(*ChromeExporter)

// WithTimeout bounds one export, browser start included.
func WithTimeout(d time.Duration) Option {
	return func(e *ChromeExporter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithExecPath points at a specific Chrome or Chromium binary.
func WithExecPath(path string) Option {
	return func(e *ChromeExporter) {
		e.execPath = path
	}
}

// WithLogger sets a custom logger for the exporter.
func WithLogger(l logger.Logger) Option {
	return func(e *ChromeExporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewChromeExporter constructs a ChromeExporter.
func NewChromeExporter(opts ...Option) *ChromeExporter {
	e := &ChromeExporter{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export loads htmlPath in a fresh browser and writes the printed PDF to pdfPath.
func (e *ChromeExporter) Export(ctx context.Context, htmlPath, pdfPath string) error {
	target, err := fileURL(htmlPath)
	if err != nil {
		return err
	}

	start := time.Now()
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if e.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(e.execPath))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var buf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(target),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: print %s: %w", ErrExport, htmlPath, err)
	}

	if err := os.WriteFile(pdfPath, buf, 0o644); err != nil { //nolint:gosec // reports are meant to be shared
		return fmt.Errorf("%w: write %s: %w", ErrExport, pdfPath, err)
	}

	took := time.Since(start)
	metrics.RecordPDFLatency(float64(took.Milliseconds()))
	if e.logger != nil {
		e.logger.Debug(ctx, "pdf exported",
			logger.String("html", htmlPath),
			logger.String("pdf", pdfPath),
			logger.Int("bytes", len(buf)),
			logger.Duration("took", took),
		)
	}
	return nil
}

// fileURL resolves path to an absolute file:// URL after checking it exists.
func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExport, path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("%w: %w: %s", ErrExport, ErrMissingHTML, abs)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
