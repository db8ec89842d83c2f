package schema

import (
	"bufio"
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/logger"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
)

// MarkerFile is read to detect the revision of a file set. MarkerColumn only
// exists in its header from GWSW 1.5 on.
const (
	MarkerFile   = "Knooppunt.csv"
	MarkerColumn = "ITO_IDE"
)

type loadOptions struct {
	version   string
	delimiter rune
	sink      report.Sink
	logger    *zap.Logger
}

// Option configures Load.
type Option func(*loadOptions)

// WithVersion forces a revision instead of detecting it.
func WithVersion(v string) Option {
	return func(o *loadOptions) { o.version = strings.TrimSpace(v) }
}

// WithDelimiter sets the delimiter used to split the marker header.
func WithDelimiter(r rune) Option {
	return func(o *loadOptions) { o.delimiter = r }
}

// WithSink routes schema warnings to sink.
func WithSink(sink report.Sink) Option {
	return func(o *loadOptions) { o.sink = sink }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *loadOptions) { o.logger = l }
}

// Load selects the revision for the file set in src and parses its embedded
// definition table.
func Load(ctx context.Context, src source.Source, opts ...Option) (*Schema, error) {
	o := loadOptions{delimiter: ';'}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.WithContext(ctx).With(zap.String("component", "schema"))
	}
	if o.sink == nil {
		o.sink = report.NewCollector(o.logger)
	}

	version := o.version
	if version == "" {
		version = Detect(ctx, src, o.delimiter, o.sink)
	} else if _, ok := tables[version]; !ok {
		return nil, errors.Newf(errors.ErrorTypeSchema, "unsupported GWSW version %q", version).
			WithDetail("supported", Versions())
	}

	s, err := Embedded(version, o.sink)
	if err != nil {
		return nil, err
	}
	o.logger.Info("attribute schema loaded", s.Fields()...)
	return s, nil
}

// Detect reads the marker header from src. Missing or unreadable markers fall
// back to the oldest revision.
func Detect(ctx context.Context, src source.Source, delimiter rune, sink report.Sink) string {
	if src == nil {
		return Version14
	}
	files, err := source.Files(ctx, src)
	if err != nil {
		sink.Infof("Could not list %s to detect the GWSW version, using version %s", src, Version14)
		return Version14
	}
	f, ok := source.Find(files, MarkerFile)
	if !ok {
		sink.Infof("%s not found, using GWSW version %s", MarkerFile, Version14)
		return Version14
	}

	r, err := source.OpenFile(ctx, src, f)
	if err != nil {
		sink.Infof("Could not read %s, using GWSW version %s", f.Name, Version14)
		return Version14
	}
	defer r.Close()

	header, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && header == "" {
		sink.Infof("Could not read the header of %s, using GWSW version %s", f.Name, Version14)
		return Version14
	}
	header = strings.TrimPrefix(header, "\ufeff")
	for _, col := range strings.Split(header, string(delimiter)) {
		if strings.EqualFold(strings.Trim(strings.TrimSpace(col), `"`), MarkerColumn) {
			return Version15
		}
	}
	return Version14
}
