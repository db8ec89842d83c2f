// Package metrics exposes Prometheus metrics of GWSW import runs.
//
// A Collector registers its metrics on the registerer it is created with.
// All methods are safe on a nil *Collector, so components can take an
// optional collector without checks.
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewCollector(reg)
//
//	timer := m.StartTimer("decode")
//	decodeFiles()
//	timer.Stop()
//
//	m.RowsDecoded("Knooppunt.csv", rows, skipped)
//	m.FeatureGenerated("Pipe")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gwsw"

// Collector holds the metrics of the importer.
type Collector struct {
	rowsDecoded     *prometheus.CounterVec   // rows read per file
	rowsSkipped     *prometheus.CounterVec   // blank rows per file
	elements        *prometheus.CounterVec   // elements per element type
	features        *prometheus.CounterVec   // features per kind
	reportEntries   *prometheus.CounterVec   // report entries per level
	filesFailed     prometheus.Counter       // files aborted by a file error
	stageDuration   *prometheus.HistogramVec // stage and pass durations
	activeWorkers   prometheus.Gauge         // in-flight coordinator workers
	edgesRemoved    prometheus.Counter       // dangling edges removed
	defaultProfiles prometheus.Counter       // default cross-sections created
}

// NewCollector creates and registers the importer metrics on reg. A nil reg
// uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Collector{
		rowsDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_decoded_total",
			Help:      "Total number of data rows decoded",
		}, []string{"file"}),
		rowsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Total number of rows skipped because their first cell is blank",
		}, []string{"file"}),
		elements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elements_total",
			Help:      "Total number of elements built",
		}, []string{"element_type"}),
		features: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_generated_total",
			Help:      "Total number of features generated",
		}, []string{"kind"}),
		reportEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_entries_total",
			Help:      "Total number of report entries by level",
		}, []string{"level"}),
		filesFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Total number of files that could not be decoded",
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of import stages and assembly passes",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		activeWorkers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Number of coordinator workers currently running an item",
		}),
		edgesRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_removed_total",
			Help:      "Total number of edges removed because an endpoint is missing",
		}),
		defaultProfiles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "default_profiles_total",
			Help:      "Total number of default cross-sections assigned during assembly",
		}),
	}
}

// RowsDecoded adds decoded and skipped rows of file.
func (c *Collector) RowsDecoded(file string, rows, skipped int) {
	if c == nil {
		return
	}
	c.rowsDecoded.WithLabelValues(file).Add(float64(rows))
	c.rowsSkipped.WithLabelValues(file).Add(float64(skipped))
}

// ElementsBuilt adds n elements of elementType.
func (c *Collector) ElementsBuilt(elementType string, n int) {
	if c == nil {
		return
	}
	c.elements.WithLabelValues(elementType).Add(float64(n))
}

// FeatureGenerated counts one feature of kind.
func (c *Collector) FeatureGenerated(kind string) {
	if c == nil {
		return
	}
	c.features.WithLabelValues(kind).Inc()
}

// ReportEntries adds n entries of level.
func (c *Collector) ReportEntries(level string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.reportEntries.WithLabelValues(level).Add(float64(n))
}

// FileFailed counts a file aborted by a file error.
func (c *Collector) FileFailed() {
	if c == nil {
		return
	}
	c.filesFailed.Inc()
}

// EdgesRemoved adds n removed dangling edges.
func (c *Collector) EdgesRemoved(n int) {
	if c == nil || n == 0 {
		return
	}
	c.edgesRemoved.Add(float64(n))
}

// DefaultProfileAssigned counts one default cross-section.
func (c *Collector) DefaultProfileAssigned() {
	if c == nil {
		return
	}
	c.defaultProfiles.Inc()
}

// ObserveStage records the duration of stage.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ActiveWorkers returns the worker gauge, or nil for a nil collector.
func (c *Collector) ActiveWorkers() prometheus.Gauge {
	if c == nil {
		return nil
	}
	return c.activeWorkers
}

// Timer measures one stage.
type Timer struct {
	c     *Collector
	stage string
	start time.Time
}

// StartTimer starts timing stage.
func (c *Collector) StartTimer(stage string) *Timer {
	return &Timer{c: c, stage: stage, start: time.Now()}
}

// Stop records and returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.c.ObserveStage(t.stage, d)
	return d
}
