// Package export writes an assembled network as JSON or YAML documents,
// optionally compressed, to a writer or to an upload target.
package export

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/compression"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/network"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/json"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatJSONLines writes one record per line, tagged with its record type.
	FormatJSONLines Format = "jsonl"
)

// ParseFormat parses a configured format name. The empty string is JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "jsonl", "ndjson":
		return FormatJSONLines, nil
	}
	return "", errors.Newf(errors.ErrorTypeValidation, "unsupported export format %q", s)
}

// FromName derives format and compression from a file name such as
// "network.yaml.gz".
func FromName(name string) (Format, compression.Algorithm, error) {
	alg, rest := compression.Detect(name)
	f, err := ParseFormat(strings.TrimPrefix(path.Ext(rest), "."))
	return f, alg, err
}

// Options configures an export.
type Options struct {
	Format      Format
	Compression compression.Algorithm
	Level       compression.Level
	Pretty      bool
	Report      *report.Report
}

// Option configures an export.
type Option func(*Options)

// WithFormat sets the encoding.
func WithFormat(f Format) Option {
	return func(o *Options) { o.Format = f }
}

// WithCompression compresses the output with alg at level.
func WithCompression(alg compression.Algorithm, level compression.Level) Option {
	return func(o *Options) {
		o.Compression = alg
		o.Level = level
	}
}

// WithPretty indents JSON output.
func WithPretty() Option {
	return func(o *Options) { o.Pretty = true }
}

// WithReport includes the report entries in the document.
func WithReport(r *report.Report) Option {
	return func(o *Options) { o.Report = r }
}

func newOptions(opts []Option) Options {
	o := Options{Format: FormatJSON, Compression: compression.None, Level: compression.Default}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Write encodes g to w.
func Write(w io.Writer, g *network.Graph, opts ...Option) error {
	if g == nil {
		return errors.New(errors.ErrorTypeValidation, "network graph is nil")
	}
	o := newOptions(opts)
	doc := Build(g, o.Report)

	out := w
	var zw io.WriteCloser
	if o.Compression != "" && o.Compression != compression.None {
		var err error
		zw, err = compression.NewWriter(w, o.Compression, o.Level)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeValidation, "failed to create compressor").
				WithDetail("algorithm", string(o.Compression))
		}
		out = zw
	}

	if err := encode(out, doc, o); err != nil {
		if zw != nil {
			zw.Close()
		}
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode network").
			WithDetail("format", string(o.Format))
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to flush compressor")
		}
	}
	return nil
}

func encode(w io.Writer, doc *Document, o Options) error {
	switch o.Format {
	case FormatJSON:
		return json.Encode(w, doc, o.Pretty)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSONLines:
		return encodeLines(w, doc)
	}
	return errors.Newf(errors.ErrorTypeValidation, "unsupported export format %q", o.Format)
}

type line struct {
	Record string      `json:"record"`
	Data   interface{} `json:"data"`
}

func encodeLines(w io.Writer, doc *Document) error {
	le := json.NewLineEncoder(w)
	defer le.Close()
	for _, n := range doc.Nodes {
		if err := le.Encode(line{"node", n}); err != nil {
			return err
		}
	}
	for _, e := range doc.Edges {
		if err := le.Encode(line{"edge", e}); err != nil {
			return err
		}
	}
	for _, cs := range doc.CrossSections {
		if err := le.Encode(line{"cross_section", cs}); err != nil {
			return err
		}
	}
	for _, c := range doc.Catchments {
		if err := le.Encode(line{"catchment", c}); err != nil {
			return err
		}
	}
	for _, e := range doc.Report {
		if err := le.Encode(line{"report", e}); err != nil {
			return err
		}
	}
	return nil
}

// Upload encodes g and stores it as name on up. Format and compression not
// set by opts are derived from name.
func Upload(ctx context.Context, up source.Uploader, name string, g *network.Graph, opts ...Option) error {
	f, alg, err := FromName(name)
	if err != nil {
		return err
	}
	opts = append([]Option{WithFormat(f), WithCompression(alg, compression.Default)}, opts...)

	buf := json.GetBuffer()
	defer json.PutBuffer(buf)
	if err := Write(buf, g, opts...); err != nil {
		return err
	}
	if err := up.Upload(ctx, name, bytes.NewReader(buf.Bytes())); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload export").
			WithDetail("name", name)
	}
	return nil
}
