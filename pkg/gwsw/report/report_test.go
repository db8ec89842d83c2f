package report

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCollectorConcurrentAppend(t *testing.T) {
	c := NewCollector(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Log(Entry{Level: zapcore.WarnLevel, Message: "w", File: "Knooppunt.csv", Line: 50 - i})
		}(i)
	}
	wg.Wait()

	r := c.Drain()
	require.Len(t, r.Entries, 50)
	for i := 1; i < len(r.Entries); i++ {
		assert.LessOrEqual(t, r.Entries[i-1].Line, r.Entries[i].Line)
	}
}

func TestCollectorForwardsToZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewCollector(zap.New(core))

	c.Log(Entry{Level: zapcore.ErrorLevel, Message: "could not parse attribute", File: "Profiel.csv", Line: 3, Key: "WIDTH", Value: "abc"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "could not parse attribute", entry.Message)
	assert.Equal(t, "Profiel.csv", entry.ContextMap()["file"])
	assert.Equal(t, "abc", entry.ContextMap()["value"])
}

func TestDrainStopsCollecting(t *testing.T) {
	c := NewCollector(nil)
	c.Warnf("first")
	r := c.Drain()
	c.Warnf("late")

	assert.Len(t, r.Entries, 1)
	assert.Equal(t, 0, c.Len())
}

func TestReportErrorsAndSummary(t *testing.T) {
	c := NewCollector(nil)
	c.Infof("Done importing %d files", 3)
	c.Warnf("default profile used for %q", "PRO1")
	c.Log(Entry{Level: zapcore.ErrorLevel, Message: "header mismatch", File: "Verbinding.csv", Line: 1})

	r := c.Drain()
	assert.Len(t, r.Errors(), 2)
	assert.Equal(t, 1, r.Count(zapcore.InfoLevel))

	var buf bytes.Buffer
	_, err := r.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 warning(s), 1 error(s)")
	assert.Contains(t, buf.String(), "ERROR: header mismatch (Verbinding.csv:1)")
	assert.NotContains(t, buf.String(), "Done importing")
}
