package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap/zaptest"
)

func TestTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(DefaultTracingConfig())
	require.NoError(t, err)
	defer func() { assert.NoError(t, shutdown(context.Background())) }()

	_, span := StartSpan(context.Background(), "decode")
	assert.False(t, span.IsRecording())
	EndSpan(span, nil)
}

func TestTracingExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultTracingConfig()
	config.Enabled = true
	config.Writer = &buf

	shutdown, err := InitTracing(config)
	require.NoError(t, err)

	ctx, parent := StartSpan(context.Background(), "import", attribute.String("source", "testdata"))
	assert.True(t, parent.IsRecording())
	_, child := StartSpan(ctx, "assemble.geometry")
	EndSpan(child, errors.New("boom"))
	EndSpan(parent, nil)

	require.NoError(t, shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "assemble.geometry")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "gwsw-import")

	// restore the no-op tracer for other tests
	_, err = InitTracing(DefaultTracingConfig())
	require.NoError(t, err)
}

func TestProbeSystem(t *testing.T) {
	info := LogSystemInfo(context.Background(), zaptest.NewLogger(t))
	assert.Greater(t, info.LogicalCPUs, 0)
}
