// Package config defines the configuration of a GWSW import run.
//
// A single ImportConfig covers the whole run, organised into sections:
//   - Source: where the GWSW files are read from
//   - Import: schema version, delimiter, workers and timeout
//   - Export: optional document written after the run
//   - Store: optional snapshot database
//   - Logging, Metrics and Tracing: observability
//
// Example usage:
//
//	cfg, err := config.Load("gwsw.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"time"
	"unicode/utf8"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/compression"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/export"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/schema"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/logger"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/observability"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
)

// ImportConfig is the configuration of one import run.
type ImportConfig struct {
	Source  SourceConfig                `yaml:"source" json:"source"`
	Import  ImportSettings              `yaml:"import" json:"import"`
	Export  ExportConfig                `yaml:"export" json:"export"`
	Store   StoreConfig                 `yaml:"store" json:"store"`
	Logging logger.Config               `yaml:"logging" json:"logging"`
	Metrics MetricsConfig               `yaml:"metrics" json:"metrics"`
	Tracing observability.TracingConfig `yaml:"tracing" json:"tracing"`
}

// SourceConfig locates the input files.
type SourceConfig struct {
	// URI is a local directory, file:// URI, s3://bucket/prefix or
	// gs://bucket/prefix.
	URI     string         `yaml:"uri" json:"uri"`
	Options source.Options `yaml:"options" json:"options"`
}

// ImportSettings controls decoding and assembly.
type ImportSettings struct {
	// Version is the GWSW schema version. Empty detects it from the files.
	Version   string `yaml:"version" json:"version"`
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	// Workers is the pool size. Zero sizes it from the CPU count.
	Workers int           `yaml:"workers" json:"workers"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ExportConfig writes the assembled network after the run.
type ExportConfig struct {
	// Path is a local file name or a name on the source backend when
	// Upload is set. Format and compression follow its extensions.
	Path   string `yaml:"path" json:"path"`
	Upload bool   `yaml:"upload" json:"upload"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
	Report bool   `yaml:"report" json:"report"`
	Level  string `yaml:"level" json:"level"`
}

// Enabled reports whether an export is configured.
func (e ExportConfig) Enabled() bool { return e.Path != "" }

// StoreConfig persists a snapshot of the run.
type StoreConfig struct {
	// DSN is a postgres:// URL, a sqlite:// URL or a SQLite file path.
	DSN string `yaml:"dsn" json:"dsn"`
}

// Enabled reports whether a snapshot store is configured.
func (s StoreConfig) Enabled() bool { return s.DSN != "" }

// MetricsConfig exposes prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// NewImportConfig returns a configuration with defaults for every section.
func NewImportConfig() *ImportConfig {
	return &ImportConfig{
		Import: ImportSettings{
			Delimiter: ";",
			Timeout:   30 * time.Minute,
		},
		Export: ExportConfig{
			Report: true,
			Level:  "default",
		},
		Logging: logger.Config{
			Level:    "info",
			Encoding: "console",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
			Path:    "/metrics",
		},
		Tracing: observability.DefaultTracingConfig(),
	}
}

// Validate checks required fields and value ranges.
func (c *ImportConfig) Validate() error {
	if c.Source.URI == "" {
		return invalid("source.uri is required")
	}
	if v := c.Import.Version; v != "" && !supported(v) {
		return invalid("import.version %q is not supported", v).WithDetail("supported", schema.Versions())
	}
	if utf8.RuneCountInString(c.Import.Delimiter) != 1 {
		return invalid("import.delimiter must be a single character, got %q", c.Import.Delimiter)
	}
	if c.Import.Workers < 0 {
		return invalid("import.workers cannot be negative")
	}
	if c.Import.Timeout < 0 {
		return invalid("import.timeout cannot be negative")
	}
	if c.Export.Enabled() {
		if _, _, err := export.FromName(c.Export.Path); err != nil {
			return invalid("export.path %q has no supported format extension", c.Export.Path)
		}
		if _, err := compression.ParseLevel(c.Export.Level); err != nil {
			return invalid("export.level %q is not supported", c.Export.Level)
		}
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return invalid("metrics.address is required when metrics are enabled")
	}
	if r := c.Tracing.SamplingRate; r < 0 || r > 1 {
		return invalid("tracing.sampling_rate must be between 0 and 1")
	}
	return nil
}

// DelimiterRune returns the delimiter as a rune.
func (s ImportSettings) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(s.Delimiter)
	return r
}

func supported(v string) bool {
	for _, s := range schema.Versions() {
		if s == v {
			return true
		}
	}
	return false
}

func invalid(format string, args ...interface{}) *errors.Error {
	return errors.Newf(errors.ErrorTypeConfig, format, args...)
}
