package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCollector(reg)

	m.RowsDecoded("Knooppunt.csv", 10, 2)
	m.RowsDecoded("Knooppunt.csv", 5, 0)
	m.ElementsBuilt("Node", 15)
	m.FeatureGenerated("Pipe")
	m.FeatureGenerated("Pipe")
	m.ReportEntries("warn", 3)
	m.FileFailed()
	m.EdgesRemoved(1)
	m.DefaultProfileAssigned()
	m.ActiveWorkers().Set(4)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.rowsDecoded.WithLabelValues("Knooppunt.csv")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsSkipped.WithLabelValues("Knooppunt.csv")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.features.WithLabelValues("Pipe")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.reportEntries.WithLabelValues("warn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesFailed))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.activeWorkers))

	timer := m.StartTimer("decode")
	time.Sleep(time.Millisecond)
	assert.Greater(t, timer.Stop(), time.Duration(0))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilCollector(t *testing.T) {
	var m *Collector
	assert.NotPanics(t, func() {
		m.RowsDecoded("a", 1, 1)
		m.ElementsBuilt("Node", 1)
		m.FeatureGenerated("Pipe")
		m.ReportEntries("warn", 1)
		m.FileFailed()
		m.EdgesRemoved(1)
		m.DefaultProfileAssigned()
		m.ObserveStage("x", time.Second)
		m.StartTimer("x").Stop()
	})
	assert.Nil(t, m.ActiveWorkers())
}
