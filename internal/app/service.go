// Package service orchestrates report runs: ingestion, the grouping and
// classification engines, rendering and PDF export.
package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/okian/gliderindex/internal/adapters/ingest"
	"github.com/okian/gliderindex/internal/adapters/pdf"
	"github.com/okian/gliderindex/internal/adapters/render"
	"github.com/okian/gliderindex/internal/domain/changes"
	"github.com/okian/gliderindex/internal/domain/competition"
	"github.com/okian/gliderindex/internal/domain/model"
	"github.com/okian/gliderindex/internal/domain/roster"
	"github.com/okian/gliderindex/pkg/logger"
	"github.com/okian/gliderindex/pkg/metrics"
)

// Report names a generated document.
type Report string

// Supported reports.
const (
	ReportIndexList   Report = "index-list"
	ReportCompetition Report = "competition"
)

// Pipeline stages, used in errors and metrics.
const (
	stageIngest   = "ingest"
	stageValidate = "validate"
	stageRender   = "render"
	stageAssets   = "assets"
	stageJSON     = "json"
	stageExport   = "export"
)

const outputFilePermission = 0o644

// Result describes one finished report run.
type Result struct {
	RunID    string        `json:"run_id"`
	Report   Report        `json:"report"`
	HTMLPath string        `json:"html_path"`
	PDFPath  string        `json:"pdf_path,omitempty"`
	JSONPath string        `json:"json_path,omitempty"`
	Models   int           `json:"models"`
	Duration time.Duration `json:"duration_ns"`
	Finished time.Time     `json:"finished_at"`
}

// Service generates the index list and competition reports.
type Service struct {
	mu sync.RWMutex
	// Serializes asset copies when reports run concurrently.
	assetsMu sync.Mutex
	// One lock per report: runs of the same report write the same files.
	publishMu map[Report]*sync.Mutex

	// Collaborators
	renderer *render.Renderer
	exporter pdf.Exporter
	cache    *gocache.Cache

	// Engine configuration
	catalog roster.Catalog
	specs   []competition.Spec
	policy  changes.Policy

	// Input and output
	layout           ingest.IndexLayout
	columns          ingest.CompetitionColumns
	indexInput       string
	competitionInput string
	assetsDir        string
	outputDir        string
	jsonOutput       bool
	indexTitle       string
	competitionTitle string
	cacheTTL         time.Duration

	// State
	started  bool
	lastRuns map[Report]Result
	now      func() time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderer sets a prepared renderer instead of the default templates.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithExporter sets the PDF exporter. The default skips export.
func WithExporter(e pdf.Exporter) Option {
	return func(s *Service) {
		if e != nil {
			s.exporter = e
		}
	}
}

// WithCatalog sets the ordered class catalog of the index list.
func WithCatalog(c roster.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithCompetitionSpecs sets the competition classes in output order.
func WithCompetitionSpecs(specs []competition.Spec) Option {
	return func(s *Service) {
		if specs != nil {
			s.specs = specs
		}
	}
}

// WithChangePolicy sets the highlight policy applied while reading the index list.
func WithChangePolicy(p changes.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithIndexLayout sets the column layout of the index list source.
func WithIndexLayout(l ingest.IndexLayout) Option {
	return func(s *Service) {
		s.layout = l
	}
}

// WithCompetitionColumns sets the header names of the competition source.
func WithCompetitionColumns(c ingest.CompetitionColumns) Option {
	return func(s *Service) {
		if c.Name != "" && c.Handicap != "" {
			s.columns = c
		}
	}
}

// WithInputs sets the index list and competition source files.
func WithInputs(indexList, competitionList string) Option {
	return func(s *Service) {
		s.indexInput = indexList
		s.competitionInput = competitionList
	}
}

// WithAssetsDir points at a directory of stylesheets, logo and optional templates.
func WithAssetsDir(dir string) Option {
	return func(s *Service) {
		s.assetsDir = dir
	}
}

// WithOutputDir sets where documents are written.
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.outputDir = dir
		}
	}
}

// WithJSONOutput enables a JSON dump next to each HTML document.
func WithJSONOutput(enabled bool) Option {
	return func(s *Service) {
		s.jsonOutput = enabled
	}
}

// WithTitles sets the document titles.
func WithTitles(indexList, competitionList string) Option {
	return func(s *Service) {
		if indexList != "" {
			s.indexTitle = indexList
		}
		if competitionList != "" {
			s.competitionTitle = competitionList
		}
	}
}

// WithCacheTTL sets how long engine outputs are reused by IndexList and
// Competition. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		exporter:         pdf.NopExporter{},
		catalog:          roster.DefaultCatalog(),
		specs:            competition.DefaultSpecs(),
		policy:           changes.DefaultPolicy(),
		layout:           ingest.DefaultIndexLayout(),
		columns:          ingest.DefaultCompetitionColumns(),
		outputDir:        "out",
		indexTitle:       "Indexliste",
		competitionTitle: "Wettbewerbsklassen",
		cacheTTL:         time.Minute,
		lastRuns:         make(map[Report]Result),
		now:              time.Now,
		logger:           nil, // Will be replaced when service starts
	}
	s.publishMu = map[Report]*sync.Mutex{
		ReportIndexList:   {},
		ReportCompetition: {},
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start prepares the renderer and the output cache.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.renderer == nil {
		var opts []render.Option
		if s.assetsDir != "" {
			fsys := os.DirFS(s.assetsDir)
			if matches, _ := fs.Glob(fsys, "*.html.tmpl"); len(matches) > 0 {
				opts = append(opts, render.WithTemplates(fsys))
			}
		}
		r, err := render.New(opts...)
		if err != nil {
			return err
		}
		s.renderer = r
	}

	if s.cacheTTL > 0 {
		s.cache = gocache.New(s.cacheTTL, 2*s.cacheTTL)
	}

	s.started = true
	s.logger.Info(ctx, "report service started",
		logger.String("outputDir", s.outputDir),
		logger.String("assetsDir", s.assetsDir),
		logger.Int("classes", len(s.catalog)),
		logger.Int("competitionClasses", len(s.specs)),
		logger.String("edition", s.policy.Edition),
	)

	return nil
}

// Stop releases cached outputs.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.cache != nil {
		s.cache.Flush()
	}

	s.started = false
	s.logger.Info(context.Background(), "report service stopped")
}

// run carries the identity of one report run.
type run struct {
	id     string
	report Report
	start  time.Time
}

func (s *Service) newRun(report Report) run {
	return run{id: uuid.NewString(), report: report, start: s.now()}
}

// GenerateIndexList reads the index list, groups it by class and writes the documents.
func (s *Service) GenerateIndexList(ctx context.Context) (Result, error) {
	if err := s.ensureStarted(); err != nil {
		return Result{}, err
	}
	r := s.newRun(ReportIndexList)

	models, stage, err := s.loadIndexList(ctx)
	if err != nil {
		return Result{}, s.fail(ctx, r, stage, err)
	}

	sections := roster.Group(models, s.catalog)
	for _, sec := range sections {
		metrics.UpdateClassEntries(string(r.report), sec.Label, sec.Len())
		metrics.UpdateRosterBuckets(string(sec.Flag), len(sec.Buckets))
	}

	view := render.IndexListView{
		Title:       s.indexTitle,
		Edition:     s.policy.Edition,
		RunID:       r.id,
		GeneratedAt: r.start,
		Sections:    sections,
	}
	return s.publish(ctx, r, len(models), func(assets []string) (func(*os.File) error, any) {
		view.Logo = logoOf(assets)
		return func(f *os.File) error { return s.renderer.RenderIndexList(ctx, f, view) }, view
	})
}

// GenerateCompetition reads the competition list, classifies it and writes the documents.
func (s *Service) GenerateCompetition(ctx context.Context) (Result, error) {
	if err := s.ensureStarted(); err != nil {
		return Result{}, err
	}
	r := s.newRun(ReportCompetition)

	models, stage, err := s.loadCompetitionList(ctx)
	if err != nil {
		return Result{}, s.fail(ctx, r, stage, err)
	}

	classes := competition.ClassifyAll(models, s.specs)
	for _, c := range classes {
		metrics.UpdateClassEntries(string(r.report), c.Title, len(c.Entries))
	}

	view := render.CompetitionView{
		Title:       s.competitionTitle,
		RunID:       r.id,
		GeneratedAt: r.start,
		Roster:      models,
		Classes:     classes,
	}
	return s.publish(ctx, r, len(models), func(assets []string) (func(*os.File) error, any) {
		view.Logo = logoOf(assets)
		return func(f *os.File) error { return s.renderer.RenderCompetition(ctx, f, view) }, view
	})
}

// GenerateAll runs both reports concurrently. The first failure cancels the other.
func (s *Service) GenerateAll(ctx context.Context) ([]Result, error) {
	results := make([]Result, 2)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.GenerateIndexList(gctx)
		results[0] = res
		return err
	})
	g.Go(func() error {
		res, err := s.GenerateCompetition(gctx)
		results[1] = res
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// IndexList returns the grouped index list, reusing a cached result within the TTL.
func (s *Service) IndexList(ctx context.Context) ([]roster.Section, error) {
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}
	if v, ok := s.cached(ReportIndexList); ok {
		return v.([]roster.Section), nil
	}

	models, _, err := s.loadIndexList(ctx)
	if err != nil {
		return nil, err
	}
	sections := roster.Group(models, s.catalog)
	s.store(ReportIndexList, sections)
	return sections, nil
}

// Competition returns the competition classes, reusing a cached result within the TTL.
func (s *Service) Competition(ctx context.Context) ([]competition.Class, error) {
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}
	if v, ok := s.cached(ReportCompetition); ok {
		return v.([]competition.Class), nil
	}

	models, _, err := s.loadCompetitionList(ctx)
	if err != nil {
		return nil, err
	}
	classes := competition.ClassifyAll(models, s.specs)
	s.store(ReportCompetition, classes)
	return classes, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":            s.started,
		"outputDir":          s.outputDir,
		"jsonOutput":         s.jsonOutput,
		"cacheTTLMs":         s.cacheTTL.Milliseconds(),
		"classes":            len(s.catalog),
		"competitionClasses": len(s.specs),
		"edition":            s.policy.Edition,
	}
	if s.cache != nil {
		stats["cachedReports"] = s.cache.ItemCount()
	}

	runs := make(map[string]Result, len(s.lastRuns))
	for k, v := range s.lastRuns {
		runs[string(k)] = v
	}
	stats["lastRuns"] = runs

	return stats
}

func (s *Service) ensureStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) loadIndexList(ctx context.Context) ([]model.Model, string, error) {
	if s.indexInput == "" {
		return nil, stageIngest, fmt.Errorf("%w: index list", ErrNoInput)
	}
	rc, err := ingest.OpenFile(ctx, s.indexInput)
	if err != nil {
		return nil, stageIngest, err
	}
	defer func() { _ = rc.Close() }()

	models, err := ingest.ReadIndexList(ctx, rc, s.layout, s.policy)
	if err != nil {
		return nil, stageIngest, fmt.Errorf("%s: %w", s.indexInput, err)
	}
	if err := model.ValidateAll(models); err != nil {
		return nil, stageValidate, fmt.Errorf("%s: %w", s.indexInput, err)
	}
	return models, "", nil
}

func (s *Service) loadCompetitionList(ctx context.Context) ([]model.Model, string, error) {
	if s.competitionInput == "" {
		return nil, stageIngest, fmt.Errorf("%w: competition list", ErrNoInput)
	}
	rc, err := ingest.OpenFile(ctx, s.competitionInput)
	if err != nil {
		return nil, stageIngest, err
	}
	defer func() { _ = rc.Close() }()

	models, err := ingest.ReadCompetitionList(ctx, rc, s.columns)
	if err != nil {
		return nil, stageIngest, fmt.Errorf("%s: %w", s.competitionInput, err)
	}
	if err := model.ValidateAll(models); err != nil {
		return nil, stageValidate, fmt.Errorf("%s: %w", s.competitionInput, err)
	}
	return models, "", nil
}

// prepareFunc receives the copied asset names and returns the HTML writer
// and the value dumped as JSON.
type prepareFunc func(assets []string) (func(*os.File) error, any)

// publish writes the HTML document, its assets, the optional JSON dump and the PDF.
func (s *Service) publish(ctx context.Context, r run, models int, prepare prepareFunc) (Result, error) {
	metrics.RecordModelsIngested(string(r.report), models)

	mu := s.publishMu[r.report]
	mu.Lock()
	defer mu.Unlock()

	base := filepath.Join(s.outputDir, string(r.report))
	res := Result{
		RunID:    r.id,
		Report:   r.report,
		HTMLPath: base + ".html",
		Models:   models,
	}

	assets, err := s.copyAssets(ctx)
	if err != nil {
		return Result{}, s.fail(ctx, r, stageAssets, err)
	}
	writeHTML, dump := prepare(assets)

	if err := writeFile(res.HTMLPath, writeHTML); err != nil {
		return Result{}, s.fail(ctx, r, stageRender, err)
	}

	if s.jsonOutput {
		res.JSONPath = base + ".json"
		err := writeFile(res.JSONPath, func(f *os.File) error { return render.WriteJSON(ctx, f, dump) })
		if err != nil {
			return Result{}, s.fail(ctx, r, stageJSON, err)
		}
	}

	if _, skip := s.exporter.(pdf.NopExporter); !skip {
		res.PDFPath = base + ".pdf"
		if err := s.exporter.Export(ctx, res.HTMLPath, res.PDFPath); err != nil {
			return Result{}, s.fail(ctx, r, stageExport, err)
		}
	}

	res.Finished = s.now()
	res.Duration = res.Finished.Sub(r.start)

	s.mu.Lock()
	s.lastRuns[r.report] = res
	s.mu.Unlock()

	metrics.RecordReportRun(string(r.report), metrics.StatusOK)
	metrics.RecordReportDuration(string(r.report), float64(res.Duration.Milliseconds()))
	metrics.UpdateLastRun(string(r.report), res.Finished.Unix())
	s.logger.Info(ctx, "report generated",
		logger.String("report", string(r.report)),
		logger.String("runID", r.id),
		logger.Int("models", models),
		logger.String("html", res.HTMLPath),
		logger.String("pdf", res.PDFPath),
		logger.Duration("took", res.Duration),
	)
	return res, nil
}

// copyAssets copies every non-template file of the assets source into the
// output directory and returns their names.
func (s *Service) copyAssets(ctx context.Context) ([]string, error) {
	src := render.DefaultAssets()
	if s.assetsDir != "" {
		src = os.DirFS(s.assetsDir)
	}
	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrAssets, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), ".tmpl") {
			continue
		}
		names = append(names, e.Name())
	}
	s.assetsMu.Lock()
	defer s.assetsMu.Unlock()
	if err := render.CopyAssets(ctx, src, s.outputDir, names...); err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Service) fail(ctx context.Context, r run, stage string, err error) error {
	metrics.RecordStageError(stage)
	metrics.RecordReportRun(string(r.report), metrics.StatusError)
	s.logger.Error(ctx, "report failed",
		logger.String("report", string(r.report)),
		logger.String("runID", r.id),
		logger.String("stage", stage),
		logger.Error(err),
	)
	return fmt.Errorf("%s %s: %w", r.report, stage, err)
}

func (s *Service) cached(report Report) (interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(string(report))
	metrics.RecordCacheLookup(string(report), ok)
	return v, ok
}

func (s *Service) store(report Report, v interface{}) {
	if s.cache != nil {
		s.cache.SetDefault(string(report), v)
	}
}

// writeFile creates path and hands it to write, closing it afterwards.
func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePermission)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// logoOf returns the first asset matching *logo.* (dmst-logo.svg, logo.png), if any.
func logoOf(assets []string) string {
	for _, name := range assets {
		stem := strings.TrimSuffix(strings.ToLower(name), strings.ToLower(filepath.Ext(name)))
		if filepath.Ext(name) != "" && strings.HasSuffix(stem, "logo") {
			return name
		}
	}
	return ""
}
