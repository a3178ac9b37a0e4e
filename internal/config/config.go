// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New(ctx) initializer to build a Config with defaults.
//   - Scalars may come from env; structured tables (catalog, classes,
//     layouts, change policy) come from the YAML file only.
//   - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"time"

	"github.com/okian/gliderindex/internal/adapters/ingest"
	"github.com/okian/gliderindex/internal/domain/changes"
	"github.com/okian/gliderindex/internal/domain/competition"
	"github.com/okian/gliderindex/internal/domain/roster"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text, json or pretty.
	LogFormat string `koanf:"log_format" validate:"oneof=text json pretty"`

	// Addr configures the HTTP listen address of serve mode, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// IndexInput and CompetitionInput are the CSV sources.
	IndexInput       string `koanf:"index_input"`
	CompetitionInput string `koanf:"competition_input"`

	// AssetsDir holds stylesheets, logo and optional template overrides.
	AssetsDir string `koanf:"assets_dir"`

	// OutputDir receives the generated documents.
	OutputDir string `koanf:"output_dir" validate:"required"`

	// PDFEnabled turns headless browser export on.
	PDFEnabled bool `koanf:"pdf_enabled"`

	// PDFTimeoutMS bounds one PDF export.
	PDFTimeoutMS int `koanf:"pdf_timeout_ms" validate:"gt=0"`

	// BrowserPath points at a Chrome/Chromium binary; empty uses the default lookup.
	BrowserPath string `koanf:"browser_path"`

	// JSONOutput writes a JSON dump next to each HTML document.
	JSONOutput bool `koanf:"json_output"`

	// CacheTTLMS controls reuse of engine outputs in serve mode. Zero disables it.
	CacheTTLMS int `koanf:"cache_ttl_ms" validate:"gte=0"`

	// IndexTitle and CompetitionTitle head the documents.
	IndexTitle       string `koanf:"index_title"`
	CompetitionTitle string `koanf:"competition_title"`

	// Catalog is the ordered section list of the index list.
	Catalog roster.Catalog `koanf:"catalog" validate:"dive"`

	// CompetitionClasses are the competition classes in output order.
	CompetitionClasses []competition.Spec `koanf:"competition_classes" validate:"dive"`

	// ChangePolicy decides which index list rows are highlighted.
	ChangePolicy changes.Policy `koanf:"change_policy"`

	// IndexLayout and CompetitionColumns describe the CSV sources.
	IndexLayout        ingest.IndexLayout        `koanf:"index_layout"`
	CompetitionColumns ingest.CompetitionColumns `koanf:"competition_columns"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		IndexInput:         "data/indexlist.csv",
		CompetitionInput:   "data/competition.csv",
		OutputDir:          "out",
		PDFEnabled:         true,
		PDFTimeoutMS:       60_000,
		CacheTTLMS:         60_000,
		IndexTitle:         "DMSt Indexliste",
		CompetitionTitle:   "Wettbewerbsklassen",
		Catalog:            roster.DefaultCatalog(),
		CompetitionClasses: competition.DefaultSpecs(),
		ChangePolicy:       changes.DefaultPolicy(),
		IndexLayout:        ingest.DefaultIndexLayout(),
		CompetitionColumns: ingest.DefaultCompetitionColumns(),
	}
	return c
}

// PDFTimeout returns PDFTimeoutMS as a duration.
func (c *Config) PDFTimeout() time.Duration {
	return time.Duration(c.PDFTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLMS as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMS) * time.Millisecond
}
