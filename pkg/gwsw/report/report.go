// Package report collects the warnings and errors of one import run.
//
// Workers append entries concurrently through a Sink. The run drains the sink
// once at the end into a Report that lists every entry with enough context
// (file, line, element, attribute, raw value) to locate the source row.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Entry is one logged message.
type Entry struct {
	Level   zapcore.Level `json:"-" yaml:"-"`
	Message string        `json:"message" yaml:"message"`
	File    string        `json:"file,omitempty" yaml:"file,omitempty"`
	Line    int           `json:"line,omitempty" yaml:"line,omitempty"`
	Element string        `json:"element,omitempty" yaml:"element,omitempty"`
	Key     string        `json:"key,omitempty" yaml:"key,omitempty"`
	Value   string        `json:"value,omitempty" yaml:"value,omitempty"`
	Time    time.Time     `json:"time" yaml:"time"`
	seq     int
}

// LevelName is the lower case level, used by the exporters.
func (e Entry) LevelName() string {
	return e.Level.String()
}

func (e Entry) fields() []zap.Field {
	fields := make([]zap.Field, 0, 5)
	if e.File != "" {
		fields = append(fields, zap.String("file", e.File))
	}
	if e.Line > 0 {
		fields = append(fields, zap.Int("line", e.Line))
	}
	if e.Element != "" {
		fields = append(fields, zap.String("element", e.Element))
	}
	if e.Key != "" {
		fields = append(fields, zap.String("attribute", e.Key))
	}
	if e.Value != "" {
		fields = append(fields, zap.String("value", e.Value))
	}
	return fields
}

// Sink accepts leveled messages. Implementations must be safe for concurrent use.
type Sink interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Log(e Entry)
}

// Collector is the append-only Sink used by an import run. Every entry is
// also forwarded to the zap logger.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	logger  *zap.Logger
	drained bool
}

// NewCollector creates a collector forwarding to logger. A nil logger disables forwarding.
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{logger: logger}
}

// Infof logs an info entry.
func (c *Collector) Infof(format string, args ...interface{}) {
	c.Log(Entry{Level: zapcore.InfoLevel, Message: fmt.Sprintf(format, args...)})
}

// Warnf logs a warning entry.
func (c *Collector) Warnf(format string, args ...interface{}) {
	c.Log(Entry{Level: zapcore.WarnLevel, Message: fmt.Sprintf(format, args...)})
}

// Errorf logs an error entry.
func (c *Collector) Errorf(format string, args ...interface{}) {
	c.Log(Entry{Level: zapcore.ErrorLevel, Message: fmt.Sprintf(format, args...)})
}

// Log appends e. Entries logged after Drain are forwarded to zap only.
func (c *Collector) Log(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if ce := c.logger.Check(e.Level, e.Message); ce != nil {
		ce.Write(e.fields()...)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drained {
		return
	}
	e.seq = len(c.entries)
	c.entries = append(c.entries, e)
}

// Len returns the number of collected entries.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Drain closes the collector and returns the report.
func (c *Collector) Drain() *Report {
	c.mu.Lock()
	entries := c.entries
	c.entries = nil
	c.drained = true
	c.mu.Unlock()

	// Concurrent workers append in scheduling order; sort so the report is stable.
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.seq < b.seq
	})
	return &Report{Entries: entries}
}

// Report is the end-of-run summary.
type Report struct {
	Entries  []Entry       `json:"entries" yaml:"entries"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Errors returns every warning or error entry. This is the error list
// surfaced to the caller.
func (r *Report) Errors() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Level >= zapcore.WarnLevel {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of entries at level.
func (r *Report) Count(level zapcore.Level) int {
	n := 0
	for _, e := range r.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// WriteTo writes a human readable summary.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Import finished in %s: %d warning(s), %d error(s)\n",
		r.Duration.Round(time.Millisecond), r.Count(zapcore.WarnLevel), r.Count(zapcore.ErrorLevel))

	for _, e := range r.Errors() {
		sb.WriteString(strings.ToUpper(e.Level.String()))
		sb.WriteString(": ")
		sb.WriteString(e.Message)
		if loc := location(e); loc != "" {
			sb.WriteString(" (")
			sb.WriteString(loc)
			sb.WriteString(")")
		}
		sb.WriteByte('\n')
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

func location(e Entry) string {
	var parts []string
	if e.File != "" {
		if e.Line > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", e.File, e.Line))
		} else {
			parts = append(parts, e.File)
		}
	}
	if e.Element != "" {
		parts = append(parts, "element "+e.Element)
	}
	if e.Key != "" {
		parts = append(parts, "attribute "+e.Key)
	}
	if e.Value != "" {
		parts = append(parts, fmt.Sprintf("value %q", e.Value))
	}
	return strings.Join(parts, ", ")
}
