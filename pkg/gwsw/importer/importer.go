// Package importer runs a complete GWSW import: schema selection, decoding,
// feature generation and network assembly.
//
// # Basic Usage
//
//	src, _ := source.New(ctx, "testdata/gwsw", source.Options{})
//	res, err := importer.Import(ctx, src, importer.WithWorkers(8))
//	if err != nil {
//		return err
//	}
//	for _, e := range res.Report.Errors() {
//		fmt.Println(e.Message)
//	}
//
// A cancelled or timed out run returns the partial result together with an
// error of type errors.ErrorTypeCancelled.
package importer

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/internal/pipeline"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/assembler"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/decoder"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/element"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/generator"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/network"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/schema"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/logger"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/metrics"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/observability"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
)

// Stage names passed to ProgressFunc.
const (
	StageDecode   = "decode"
	StageGenerate = "generate"
	StageAssemble = "assemble"
)

// ProgressFunc receives the progress of a stage. Calls for one stage are
// serialised.
type ProgressFunc func(stage string, done, total int)

// Config configures an Importer.
type Config struct {
	Version       string
	Delimiter     rune
	Workers       int
	Timeout       time.Duration
	RunID         string
	Logger        *zap.Logger
	Metrics       *metrics.Collector
	Progress      ProgressFunc
	Registrations []generator.Registration
}

// Option configures an Importer.
type Option func(*Config)

// WithVersion forces the GWSW version instead of detecting it.
func WithVersion(v string) Option {
	return func(c *Config) { c.Version = v }
}

// WithDelimiter sets the field delimiter.
func WithDelimiter(r rune) Option {
	return func(c *Config) { c.Delimiter = r }
}

// WithWorkers sets the pool size of the decode and generate stages.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithTimeout bounds the whole run.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRunID sets the run id attached to log lines.
func WithRunID(id string) Option {
	return func(c *Config) { c.RunID = id }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics records the run on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) { c.Progress = fn }
}

// WithRegistrations adds generator registrations on top of the defaults.
func WithRegistrations(r ...Registration) Option {
	return func(c *Config) { c.Registrations = append(c.Registrations, r...) }
}

// Registration is re-exported so callers can extend the factory without
// importing the generator package.
type Registration = generator.Registration

// FileSummary describes one decoded file.
type FileSummary struct {
	Name        string `json:"name" yaml:"name"`
	ElementType string `json:"element_type" yaml:"element_type"`
	Rows        int    `json:"rows" yaml:"rows"`
	Skipped     int    `json:"skipped" yaml:"skipped"`
	Elements    int    `json:"elements" yaml:"elements"`
	Failed      bool   `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Result is the outcome of a run. Graph and Report are always set.
type Result struct {
	RunID    string         `json:"run_id" yaml:"run_id"`
	Version  string         `json:"version" yaml:"version"`
	Graph    *network.Graph `json:"-" yaml:"-"`
	Report   *report.Report `json:"report" yaml:"report"`
	Files    []FileSummary  `json:"files" yaml:"files"`
	Features int            `json:"features" yaml:"features"`
	Duration time.Duration  `json:"duration" yaml:"duration"`
}

// Importer runs imports with one configuration. It is safe for concurrent use.
type Importer struct {
	cfg Config
}

// New creates an importer.
func New(opts ...Option) *Importer {
	cfg := Config{Delimiter: ';'}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Importer{cfg: cfg}
}

// Import is a shorthand for New(opts...).Import.
func Import(ctx context.Context, src source.Source, opts ...Option) (*Result, error) {
	return New(opts...).Import(ctx, src)
}

// run is the state of one Import call.
type run struct {
	cfg    Config
	log    *zap.Logger
	sink   *report.Collector
	result *Result
}

// Import reads the file set in src and assembles it into a network graph.
// Schema and listing failures abort the run. File, row and generation
// failures are recorded in the report and the run continues.
func (im *Importer) Import(ctx context.Context, src source.Source) (*Result, error) {
	if src == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "source is nil")
	}
	start := time.Now()
	cfg := im.cfg
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	ctx = logger.ContextWithRunID(ctx, cfg.RunID)

	log := cfg.Logger
	if log == nil {
		log = logger.WithContext(ctx)
	} else {
		log = log.With(zap.String("run_id", cfg.RunID))
	}
	log = log.With(zap.String("component", "importer"))

	r := &run{
		cfg:  cfg,
		log:  log,
		sink: report.NewCollector(log),
		result: &Result{
			RunID: cfg.RunID,
			Graph: network.New(),
		},
	}

	ctx, span := observability.StartSpan(ctx, "import",
		attribute.String("source", src.String()),
		attribute.String("run_id", cfg.RunID))
	err := r.execute(ctx, src)
	observability.EndSpan(span, err)

	r.result.Duration = time.Since(start)
	r.result.Report = r.sink.Drain()
	r.result.Report.Duration = r.result.Duration
	for _, level := range []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel} {
		cfg.Metrics.ReportEntries(level.String(), r.result.Report.Count(level))
	}

	stats := r.result.Graph.Stats()
	log.Info("import finished",
		zap.Duration("duration", r.result.Duration),
		zap.Int("nodes", stats.Nodes),
		zap.Int("edges", stats.Edges),
		zap.Int("errors", len(r.result.Report.Errors())),
		zap.Error(err))
	return r.result, err
}

func (r *run) execute(ctx context.Context, src source.Source) error {
	observability.LogSystemInfo(ctx, r.log)

	s, err := schema.Load(ctx, src,
		schema.WithVersion(r.cfg.Version),
		schema.WithDelimiter(r.cfg.Delimiter),
		schema.WithSink(r.sink),
		schema.WithLogger(r.log))
	if err != nil {
		return err
	}
	r.result.Version = s.Version()

	files, err := r.listFiles(ctx, src, s)
	if err != nil {
		return err
	}

	elements, err := r.decode(ctx, src, s, files)
	if err != nil {
		return err
	}

	features, err := r.generate(ctx, elements)
	if err != nil {
		return err
	}

	return r.assemble(ctx, features)
}

// listFiles returns the delimited files of src. Other files are ignored.
func (r *run) listFiles(ctx context.Context, src source.Source, s *schema.Schema) ([]source.File, error) {
	all, err := source.Files(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx, "listing")
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list source files").
			WithDetail("source", src.String())
	}
	files := make([]source.File, 0, len(all))
	for _, f := range all {
		if !strings.EqualFold(path.Ext(f.BaseName()), ".csv") {
			r.log.Debug("ignoring file", zap.String("file", f.Name))
			continue
		}
		files = append(files, f)
	}
	r.log.Info("files found",
		zap.Int("files", len(files)),
		zap.String("version", s.Version()),
		zap.String("source", src.String()))
	return files, nil
}

// poolOptions configures the coordinator for the assembly passes.
func (r *run) poolOptions() []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithWorkers(r.cfg.Workers),
		pipeline.WithLogger(r.log),
	}
	if g := r.cfg.Metrics.ActiveWorkers(); g != nil {
		opts = append(opts, pipeline.WithActiveGauge(g))
	}
	return opts
}

// pipelineOptions configures the coordinator for a stage with progress.
func (r *run) pipelineOptions(stage string) []pipeline.Option {
	opts := append(r.poolOptions(), pipeline.WithName(stage))
	if r.cfg.Progress != nil {
		progress := r.cfg.Progress
		opts = append(opts, pipeline.WithProgress(func(done, total int) {
			progress(stage, done, total)
		}))
	}
	return opts
}

func (r *run) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx = logger.ContextWithStage(ctx, name)
	ctx, span := observability.StartSpan(ctx, name)
	timer := r.cfg.Metrics.StartTimer(name)
	err := fn(ctx)
	d := timer.Stop()
	observability.EndSpan(span, err)
	r.log.Info("stage completed", zap.String("stage", name), zap.Duration("duration", d))
	return err
}

// decode reads every file on the coordinator, one file per item. A file
// error drops that file only.
func (r *run) decode(ctx context.Context, src source.Source, s *schema.Schema, files []source.File) ([]*element.Element, error) {
	var elements []*element.Element
	err := r.stage(ctx, StageDecode, func(ctx context.Context) error {
		dec := decoder.New(s,
			decoder.WithDelimiter(r.cfg.Delimiter),
			decoder.WithWorkers(r.cfg.Workers),
			decoder.WithSink(r.sink),
			decoder.WithLogger(r.log))

		res := pipeline.Run(ctx, files, func(ctx context.Context, f source.File) (*decoder.Result, error) {
			return dec.DecodeFile(logger.ContextWithFile(ctx, f.BaseName()), src, f)
		}, r.pipelineOptions(StageDecode)...)

		failed := make(map[int]bool, len(res.Errors))
		for _, ie := range res.Errors {
			f := files[ie.Index]
			failed[ie.Index] = true
			r.cfg.Metrics.FileFailed()
			r.sink.Log(report.Entry{
				Level:   zapcore.ErrorLevel,
				Message: fmt.Sprintf("File %s is skipped: %v", f.BaseName(), ie.Err),
				File:    f.BaseName(),
				Time:    time.Now(),
			})
		}

		for i, f := range files {
			if !res.OK[i] {
				if failed[i] {
					r.result.Files = append(r.result.Files, FileSummary{Name: f.BaseName(), Failed: true})
				}
				continue
			}
			dr := res.Values[i]
			r.cfg.Metrics.RowsDecoded(dr.File, dr.Rows, dr.Skipped)
			r.cfg.Metrics.ElementsBuilt(dr.ElementType, len(dr.Elements))
			r.result.Files = append(r.result.Files, FileSummary{
				Name:        dr.File,
				ElementType: dr.ElementType,
				Rows:        dr.Rows,
				Skipped:     dr.Skipped,
				Elements:    len(dr.Elements),
			})
			elements = append(elements, dr.Elements...)
		}
		if res.Cancelled || ctx.Err() != nil {
			return cancelled(ctx, StageDecode)
		}
		return nil
	})
	return elements, err
}

// generate converts every element into a feature on the coordinator. A
// generator failure drops that element only.
func (r *run) generate(ctx context.Context, elements []*element.Element) ([]feature.Feature, error) {
	var features []feature.Feature
	err := r.stage(ctx, StageGenerate, func(ctx context.Context) error {
		factory := generator.NewFactory(r.sink, r.cfg.Registrations...)

		res := pipeline.Run(ctx, elements, func(_ context.Context, el *element.Element) (feature.Feature, error) {
			return factory.Generate(el)
		}, r.pipelineOptions(StageGenerate)...)

		for _, ie := range res.Errors {
			el := elements[ie.Index]
			r.sink.Log(report.Entry{
				Level:   zapcore.ErrorLevel,
				Message: ie.Err.Error(),
				File:    el.File,
				Line:    el.Line,
				Element: el.TypeName,
				Time:    time.Now(),
			})
		}
		for _, f := range res.Collect() {
			if f == nil {
				continue
			}
			r.cfg.Metrics.FeatureGenerated(kindOf(f))
			features = append(features, f)
		}
		r.result.Features = len(features)
		if res.Cancelled || ctx.Err() != nil {
			return cancelled(ctx, StageGenerate)
		}
		return nil
	})
	return features, err
}

func (r *run) assemble(ctx context.Context, features []feature.Feature) error {
	return r.stage(ctx, StageAssemble, func(ctx context.Context) error {
		if r.cfg.Progress != nil {
			r.cfg.Progress(StageAssemble, 0, 1)
		}
		err := assembler.Assemble(ctx, r.result.Graph, features,
			assembler.WithSink(r.sink),
			assembler.WithLogger(r.log),
			assembler.WithMetrics(r.cfg.Metrics),
			assembler.WithPipelineOptions(r.poolOptions()...))
		if err != nil {
			return err
		}
		if r.cfg.Progress != nil {
			r.cfg.Progress(StageAssemble, 1, 1)
		}
		return nil
	})
}

func cancelled(ctx context.Context, stage string) error {
	cause := ctx.Err()
	if cause == nil {
		cause = context.Canceled
	}
	return errors.Wrap(cause, errors.ErrorTypeCancelled, "import cancelled during "+stage).
		WithDetail("stage", stage)
}

// kindOf names a feature for metrics.
func kindOf(f feature.Feature) string {
	switch v := f.(type) {
	case *feature.SewerConnection:
		return v.Kind.String()
	case *feature.OutletCompartment:
		return "OutletCompartment"
	case *feature.Compartment:
		return "Compartment"
	case *feature.CrossSection:
		return "CrossSection"
	case *feature.Surface:
		return "Surface"
	case *feature.RunoffDefinition:
		return "RunoffDefinition"
	case *feature.DryWeatherFlowDefinition:
		return "DryWeatherFlow"
	case *feature.Discharge:
		return "Discharge"
	default:
		return fmt.Sprintf("%T", f)
	}
}
