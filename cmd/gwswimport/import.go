package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/compression"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/config"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/export"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/importer"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/store"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/logger"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/metrics"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/observability"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
)

func (a *app) newImportCmd() *cobra.Command {
	var (
		showProgress bool
		failOnErrors bool
	)
	cmd := &cobra.Command{
		Use:   "import [source]",
		Short: "Import a GWSW data set",
		Long: `Import a GWSW data set and assemble the sewer network.

The source is a local directory, file:// URI, s3://bucket/prefix or
gs://bucket/prefix. Every flag can also be set through a GWSW_* environment
variable, for example GWSW_WORKERS=8.

Example:
  gwswimport import ./gemeente --export network.json.gz --store snapshots.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(args)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runImport(cmd, cfg, showProgress, failOnErrors)
		},
	}

	f := cmd.Flags()
	f.String("source", "", "Source location (overrides the positional argument)")
	f.String("schema-version", "", "GWSW version (1.4 or 1.5); detected when empty")
	f.String("delimiter", "", "Column delimiter")
	f.Int("workers", 0, "Worker pool size; sized from the CPU count when 0")
	f.Duration("timeout", 0, "Import timeout")
	f.String("export", "", "Write the network to this file (.json, .yaml, .jsonl, optionally .gz/.zst/.lz4/.s2)")
	f.Bool("upload", false, "Upload the export to the source backend instead of a local file")
	f.String("store", "", "Save a snapshot to this database (postgres:// URL or SQLite path)")
	f.String("metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")
	f.Bool("trace", false, "Write OpenTelemetry spans to stderr")
	f.BoolVar(&showProgress, "progress", false, "Print stage progress to stderr")
	f.BoolVar(&failOnErrors, "fail-on-errors", false, "Exit with an error when the report holds warnings or errors")
	return cmd
}

// runImport runs one import with the observability stack set up from cfg.
func runImport(cmd *cobra.Command, cfg *config.ImportConfig, showProgress, failOnErrors bool) error {
	if err := logger.Init(cfg.Logging); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid logging configuration")
	}
	defer logger.Sync() //nolint:errcheck
	log := logger.Get().With(zap.String("component", "gwswimport-cli"))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(cfg.Tracing)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialise tracing")
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutCtx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	var m *metrics.Collector
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.NewCollector(reg)
		stopMetrics := serveMetrics(reg, cfg.Metrics, log)
		defer stopMetrics()
	}

	src, err := source.New(ctx, cfg.Source.URI, cfg.Source.Options)
	if err != nil {
		return err
	}
	defer src.Close()

	opts := []importer.Option{
		importer.WithVersion(cfg.Import.Version),
		importer.WithDelimiter(cfg.Import.DelimiterRune()),
		importer.WithWorkers(cfg.Import.Workers),
		importer.WithTimeout(cfg.Import.Timeout),
		importer.WithLogger(log),
		importer.WithMetrics(m),
	}
	if showProgress {
		opts = append(opts, importer.WithProgress(progressPrinter(cmd.ErrOrStderr())))
	}

	log.Info("starting import",
		zap.String("source", src.String()),
		zap.String("version", cfg.Import.Version),
		zap.Int("workers", cfg.Import.Workers))

	res, importErr := importer.Import(ctx, src, opts...)
	if res == nil {
		return importErr
	}
	if _, err := res.Report.WriteTo(cmd.OutOrStdout()); err != nil {
		log.Warn("failed to write report", zap.Error(err))
	}
	if importErr != nil {
		return importErr
	}

	stats := res.Graph.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Network: %d nodes, %d connections, %d cross-sections\n",
		stats.Nodes, stats.Edges, stats.Definitions)

	if cfg.Export.Enabled() {
		if err := writeExport(ctx, cfg.Export, src, res); err != nil {
			return err
		}
		log.Info("network exported", zap.String("path", cfg.Export.Path))
	}
	if cfg.Store.Enabled() {
		if err := saveSnapshot(ctx, cfg.Store, res, log); err != nil {
			return err
		}
	}

	if n := len(res.Report.Errors()); failOnErrors && n > 0 {
		return errors.Newf(errors.ErrorTypeData, "import reported %d problem(s)", n).
			WithDetail("run_id", res.RunID)
	}
	return nil
}

func writeExport(ctx context.Context, cfg config.ExportConfig, src source.Source, res *importer.Result) error {
	level, err := compression.ParseLevel(cfg.Level)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid export level")
	}
	var opts []export.Option
	if cfg.Pretty {
		opts = append(opts, export.WithPretty())
	}
	if cfg.Report {
		opts = append(opts, export.WithReport(res.Report))
	}

	if cfg.Upload {
		up, ok := src.(source.Uploader)
		if !ok {
			return errors.Newf(errors.ErrorTypeConfig, "source %s does not accept uploads", src)
		}
		_, alg, err := export.FromName(cfg.Path)
		if err != nil {
			return err
		}
		opts = append(opts, export.WithCompression(alg, level))
		return export.Upload(ctx, up, cfg.Path, res.Graph, opts...)
	}

	format, alg, err := export.FromName(cfg.Path)
	if err != nil {
		return err
	}
	opts = append([]export.Option{export.WithFormat(format), export.WithCompression(alg, level)}, opts...)

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to create export directory")
		}
	}
	f, err := os.Create(cfg.Path) //nolint:gosec // path comes from the command line
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create export file").
			WithDetail("path", cfg.Path)
	}
	if err := export.Write(f, res.Graph, opts...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveSnapshot(ctx context.Context, cfg config.StoreConfig, res *importer.Result, log *zap.Logger) error {
	st, err := store.Open(ctx, cfg.DSN, log)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Save(ctx, res.RunID, res.Version, res.Graph, res.Report)
}

func progressPrinter(w io.Writer) importer.ProgressFunc {
	return func(stage string, done, total int) {
		if total == 0 {
			return
		}
		fmt.Fprintf(w, "%-9s %3d%% (%d/%d)\n", stage, done*100/total, done, total)
	}
}

// serveMetrics serves reg on cfg.Address until the returned function is
// called.
func serveMetrics(reg *prometheus.Registry, cfg config.MetricsConfig, log *zap.Logger) func() {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("metrics server starting", zap.String("addr", cfg.Address), zap.String("path", path))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
}
