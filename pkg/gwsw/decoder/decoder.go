// Package decoder turns GWSW delimited files into elements using the
// attribute schema.
package decoder

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/internal/pipeline"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/element"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/schema"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/pool"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
)

const bom = "\ufeff"

var buffers = pool.New(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) { b.Reset() },
)

// Config configures a Decoder.
type Config struct {
	Delimiter rune
	Workers   int
	Sink      report.Sink
	Logger    *zap.Logger
	Pipeline  []pipeline.Option
}

// Option configures a Decoder.
type Option func(*Config)

// WithDelimiter sets the field delimiter. The default is ';'.
func WithDelimiter(r rune) Option {
	return func(c *Config) { c.Delimiter = r }
}

// WithWorkers sets the row worker count.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithSink routes decoder warnings to sink.
func WithSink(s report.Sink) Option {
	return func(c *Config) { c.Sink = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithPipelineOptions passes extra options to the row pool.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(c *Config) { c.Pipeline = append(c.Pipeline, opts...) }
}

// Decoder decodes files against one schema. It is safe for concurrent use.
type Decoder struct {
	schema *schema.Schema
	cfg    Config
	values *pool.Interner
}

// New creates a decoder for s.
func New(s *schema.Schema, opts ...Option) *Decoder {
	cfg := Config{Delimiter: ';'}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Sink == nil {
		cfg.Sink = report.NewCollector(cfg.Logger)
	}
	return &Decoder{schema: s, cfg: cfg, values: pool.NewInterner(0)}
}

// Result is the outcome of decoding one file.
type Result struct {
	File        string
	ElementType string
	Elements    []*element.Element
	Rows        int
	Skipped     int
	Unmapped    []string
}

type row struct {
	line   int
	fields []string
}

// Decode reads one file. name is the logical file name used to select the
// element type. Unknown files and header mismatches return a file error and
// no elements.
func (d *Decoder) Decode(ctx context.Context, name string, r io.Reader) (*Result, error) {
	base := baseName(name)
	elementType, ok := d.schema.ElementTypeForFile(base)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeFile, "file %s will not be mapped", base).
			WithDetail("file", base).
			WithDetail("schema_version", d.schema.Version())
	}
	canonical, _ := d.schema.FileName(base)

	buf := buffers.Get()
	defer buffers.Put(buf)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read file").
			WithDetail("file", canonical)
	}
	data := bytes.TrimPrefix(buf.Bytes(), []byte(bom))
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte(string(utf8.RuneError)))
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = d.cfg.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Newf(errors.ErrorTypeFile, "file %s is empty", canonical).
			WithDetail("file", canonical)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read header").
			WithDetail("file", canonical)
	}

	defs, unmapped, err := d.mapHeader(canonical, elementType, header)
	if err != nil {
		return nil, err
	}

	res := &Result{File: canonical, ElementType: elementType, Unmapped: unmapped}
	for _, col := range unmapped {
		d.cfg.Sink.Log(report.Entry{
			Level:   zapcore.WarnLevel,
			Message: fmt.Sprintf("Column '%s' is not part of GWSW %s and will be ignored", col, d.schema.Version()),
			File:    canonical,
			Line:    1,
			Element: elementType,
			Key:     col,
		})
	}

	var rows []row
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			d.cfg.Sink.Log(report.Entry{
				Level:   zapcore.ErrorLevel,
				Message: fmt.Sprintf("Could not read row: %v", err),
				File:    canonical,
				Line:    line,
				Element: elementType,
			})
			continue
		}
		line, _ := cr.FieldPos(0)
		res.Rows++
		if len(fields) == 0 || strings.TrimSpace(fields[0]) == "" {
			res.Skipped++
			continue
		}
		rows = append(rows, row{line: line, fields: fields})
	}

	opts := append([]pipeline.Option{
		pipeline.WithWorkers(d.cfg.Workers),
		pipeline.WithName("decode " + canonical),
		pipeline.WithLogger(d.cfg.Logger),
	}, d.cfg.Pipeline...)
	results := pipeline.Run(ctx, rows, func(_ context.Context, rw row) (*element.Element, error) {
		return d.buildElement(elementType, canonical, rw, defs), nil
	}, opts...)

	// Results are in row order, which is line order.
	res.Elements = results.Collect()
	if results.Cancelled {
		return res, errors.New(errors.ErrorTypeCancelled, "decoding cancelled").
			WithDetail("file", canonical)
	}

	d.cfg.Logger.Debug("Decoded file",
		zap.String("file", canonical),
		zap.String("element_type", elementType),
		zap.Int("rows", res.Rows),
		zap.Int("elements", len(res.Elements)),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// mapHeader checks the header against the schema columns of file and
// returns one definition per header cell.
func (d *Decoder) mapHeader(file, elementType string, header []string) ([]*schema.AttributeDefinition, []string, error) {
	expected := d.schema.ColumnDefinitions(file)
	if len(header) < len(expected) {
		return nil, nil, errors.Newf(errors.ErrorTypeFile,
			"header of %s has %d columns, GWSW %s expects %d", file, len(header), d.schema.Version(), len(expected)).
			WithDetail("file", file).
			WithDetail("expected", len(expected)).
			WithDetail("actual", len(header))
	}

	defs := make([]*schema.AttributeDefinition, len(header))
	var unmapped []string
	for i, cell := range header {
		cell = strings.Trim(strings.TrimSpace(cell), `"`)
		if i < len(expected) {
			if !strings.EqualFold(cell, expected[i].LocalKey) {
				return nil, nil, errors.Newf(errors.ErrorTypeFile,
					"header of %s does not match GWSW %s at column %d: expected '%s', found '%s'",
					file, d.schema.Version(), i+1, expected[i].LocalKey, cell).
					WithDetail("file", file).
					WithDetail("position", i+1).
					WithDetail("expected", expected[i].LocalKey).
					WithDetail("actual", cell)
			}
			defs[i] = expected[i]
			continue
		}
		unmapped = append(unmapped, cell)
	}
	return defs, unmapped, nil
}

// buildElement interns the cell values; most columns repeat a few codes.
func (d *Decoder) buildElement(elementType, file string, rw row, defs []*schema.AttributeDefinition) *element.Element {
	attrs := make([]element.Attribute, len(defs))
	for i, def := range defs {
		v := ""
		if i < len(rw.fields) {
			v = d.values.Intern(rw.fields[i])
		}
		attrs[i] = element.Attribute{Definition: def, Value: v, Line: rw.line}
	}
	return element.New(elementType, file, rw.line, attrs)
}

// DecodeFile opens f from src and decodes it.
func (d *Decoder) DecodeFile(ctx context.Context, src source.Source, f source.File) (*Result, error) {
	r, err := source.OpenFile(ctx, src, f)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return d.Decode(ctx, f.Logical, r)
}

func baseName(name string) string {
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		return name[i+1:]
	}
	return name
}
