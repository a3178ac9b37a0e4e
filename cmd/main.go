package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/gliderindex/internal/adapters/http/api"
	"github.com/okian/gliderindex/internal/adapters/http/site"
	"github.com/okian/gliderindex/internal/adapters/http/swagger"
	"github.com/okian/gliderindex/internal/adapters/pdf"
	service "github.com/okian/gliderindex/internal/app"
	"github.com/okian/gliderindex/internal/config"
	"github.com/okian/gliderindex/pkg/logger"
	"github.com/okian/gliderindex/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 5 * time.Minute
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	refreshInterval   = 30 * time.Second
)

// Commands.
const (
	cmdIndexList   = "index-list"
	cmdCompetition = "competition"
	cmdAll         = "all"
	cmdServe       = "serve"
)

var (
	errUsage        = errors.New("usage: gliderindex [flags] <index-list|competition|all|serve>")
	errInputCommand = errors.New("-input applies to index-list or competition only")
)

// options are the command line settings that override the configuration.
type options struct {
	command    string
	configPath string
	input      string
	assets     string
	output     string
	noPDF      bool
	jsonOutput bool
}

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}

// run parses args, loads the configuration and executes one command.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseArgs(args, stdout)
	if err != nil {
		return err
	}

	// Load configuration (defaults -> optional file -> env -> flags)
	path := opts.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	cfg, err := config.LoadFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}

	// Initialize logging
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(os.Stderr)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	if opts.command == cmdServe {
		return serve(ctx, cfg, svc, loggerInstance)
	}

	results, err := generate(ctx, svc, opts.command)
	if err != nil {
		return err
	}
	for _, res := range results {
		printResult(stdout, res)
	}
	return nil
}

// parseArgs reads the flags and the single command argument.
func parseArgs(args []string, output io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("gliderindex", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file (default: $"+config.EnvConfigFile+")")
	fs.StringVar(&opts.input, "input", "", "CSV source for the selected report")
	fs.StringVar(&opts.assets, "assets", "", "Directory with stylesheets, logo and template overrides")
	fs.StringVar(&opts.output, "output", "", "Output directory for the generated documents")
	fs.BoolVar(&opts.noPDF, "no-pdf", false, "Skip PDF export")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Write a JSON dump next to each HTML document")
	fs.Usage = func() {
		fmt.Fprintln(output, errUsage.Error())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		return options{}, errUsage
	}

	opts.command = fs.Arg(0)
	switch opts.command {
	case cmdIndexList, cmdCompetition:
	case cmdAll, cmdServe:
		if opts.input != "" {
			return options{}, errInputCommand
		}
	default:
		return options{}, fmt.Errorf("unknown command %q: %w", opts.command, errUsage)
	}
	return opts, nil
}

// apply overrides configuration values with the flags that were set.
func (o options) apply(cfg *config.Config) error {
	switch {
	case o.input == "":
	case o.command == cmdIndexList:
		cfg.IndexInput = o.input
	case o.command == cmdCompetition:
		cfg.CompetitionInput = o.input
	}
	if o.assets != "" {
		cfg.AssetsDir = o.assets
	}
	if o.output != "" {
		cfg.OutputDir = o.output
	}
	if o.noPDF {
		cfg.PDFEnabled = false
	}
	if o.jsonOutput {
		cfg.JSONOutput = true
	}
	return cfg.Validate()
}

// newService wires the report service from the configuration.
func newService(cfg *config.Config, l logger.Logger) *service.Service {
	var exporter pdf.Exporter = pdf.NopExporter{}
	if cfg.PDFEnabled {
		exporter = pdf.NewChromeExporter(
			pdf.WithTimeout(cfg.PDFTimeout()),
			pdf.WithExecPath(cfg.BrowserPath),
			pdf.WithLogger(l.Named("pdf")),
		)
	}

	return service.New(
		service.WithLogger(l.Named("service")),
		service.WithExporter(exporter),
		service.WithCatalog(cfg.Catalog),
		service.WithCompetitionSpecs(cfg.CompetitionClasses),
		service.WithChangePolicy(cfg.ChangePolicy),
		service.WithIndexLayout(cfg.IndexLayout),
		service.WithCompetitionColumns(cfg.CompetitionColumns),
		service.WithInputs(cfg.IndexInput, cfg.CompetitionInput),
		service.WithAssetsDir(cfg.AssetsDir),
		service.WithOutputDir(cfg.OutputDir),
		service.WithJSONOutput(cfg.JSONOutput),
		service.WithTitles(cfg.IndexTitle, cfg.CompetitionTitle),
		service.WithCacheTTL(cfg.CacheTTL()),
	)
}

// generate runs the report named by command.
func generate(ctx context.Context, svc *service.Service, command string) ([]service.Result, error) {
	switch command {
	case cmdIndexList:
		res, err := svc.GenerateIndexList(ctx)
		if err != nil {
			return nil, err
		}
		return []service.Result{res}, nil
	case cmdCompetition:
		res, err := svc.GenerateCompetition(ctx)
		if err != nil {
			return nil, err
		}
		return []service.Result{res}, nil
	case cmdAll:
		return svc.GenerateAll(ctx)
	default:
		return nil, fmt.Errorf("unknown command %q: %w", command, errUsage)
	}
}

func printResult(w io.Writer, res service.Result) {
	fmt.Fprintf(w, "%s\t%d models\t%s", res.Report, res.Models, res.HTMLPath)
	if res.PDFPath != "" {
		fmt.Fprintf(w, "\t%s", res.PDFPath)
	}
	if res.JSONPath != "" {
		fmt.Fprintf(w, "\t%s", res.JSONPath)
	}
	fmt.Fprintln(w)
}

// serve exposes the engine outputs over HTTP until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, svc *service.Service, l logger.Logger) error {
	registerRuntimeCollectors(metrics.GetRegistry())

	// Keep cached outputs fresh
	go startRefresher(ctx, svc, l, refreshInterval)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	if err := site.Register(ctx, mux, cfg.OutputDir); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		l.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
	}
	l.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}

	l.Info(ctx, "server stopped")
	return nil
}

// registerRuntimeCollectors adds Go runtime and process metrics to the
// report registry. Repeated registration is ignored.
func registerRuntimeCollectors(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		var are prometheus.AlreadyRegisteredError
		if err := reg.Register(c); err != nil && !errors.As(err, &are) {
			logger.Get().Warn(context.Background(), "runtime collector not registered", logger.Error(err))
		}
	}
}

// startRefresher periodically rebuilds the engine outputs served over HTTP.
func startRefresher(ctx context.Context, svc *service.Service, l logger.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh(ctx, svc, l)
		}
	}
}

// refresh loads both reports so that input errors show up in the logs
// before a client asks for them.
func refresh(ctx context.Context, svc *service.Service, l logger.Logger) {
	if _, err := svc.IndexList(ctx); err != nil {
		l.Warn(ctx, "index list refresh failed", logger.Error(err))
	}
	if _, err := svc.Competition(ctx); err != nil {
		l.Warn(ctx, "competition refresh failed", logger.Error(err))
	}
}
