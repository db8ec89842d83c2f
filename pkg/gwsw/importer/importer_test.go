package importer

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/schema"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/metrics"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/testutil"
)

// threeRowFileSet is an outlet node, a profile with an unknown shape and one
// pipe from the node to itself.
func threeRowFileSet(t *testing.T) *testutil.FileSet {
	return testutil.NewFileSet(t, schema.Version14).
		Add("Knooppunt.csv", testutil.Row{"UNIQUE_ID": "put1", "NODE_TYPE": "UIT"}).
		Add("Profiel.csv", testutil.Row{"CROSS_SECTION_ID": "PRO1", "CROSS_SECTION_SHAPE": "XYZ"}).
		Add("Verbinding.csv", testutil.Row{
			"UNIQUE_ID":        "lei1",
			"PIPE_TYPE":        "GSL",
			"SOURCE_NODE_ID":   "put1",
			"TARGET_NODE_ID":   "put1",
			"CROSS_SECTION_ID": "PRO1",
		})
}

func TestImportEndToEnd(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	dir := threeRowFileSet(t).WriteDir()
	src, err := source.NewLocal(dir)
	require.NoError(t, err)

	m := metrics.NewCollector(prometheus.NewRegistry())
	res, err := Import(ctx, src, WithLogger(testutil.TestLogger(t)), WithMetrics(m), WithWorkers(2))
	require.NoError(t, err)

	assert.Equal(t, schema.Version14, res.Version)
	assert.Len(t, res.RunID, 36)
	assert.Equal(t, 3, res.Features)
	require.Len(t, res.Files, 3)

	g := res.Graph
	nodes := g.Nodes()
	require.Len(t, nodes, 1)
	outlet, ok := nodes[0].(*feature.OutletCompartment)
	require.True(t, ok, "node type UIT gives an outlet")
	assert.Equal(t, "put1", outlet.Name)

	defs := g.Definitions()
	require.Len(t, defs, 1)
	assert.True(t, defs[0].Default)
	assert.Equal(t, feature.ShapeCircle, defs[0].Shape)

	edges := g.Edges()
	require.Len(t, edges, 1)
	e := edges[0]
	assert.Equal(t, feature.KindPipe, e.Kind)
	assert.Same(t, outlet, e.Source)
	assert.Same(t, outlet, e.Target)
	assert.Same(t, defs[0], e.CrossSection.Definition)

	errs := res.Report.Errors()
	require.Len(t, errs, 1, "only the unknown shape is reported")
	assert.Contains(t, errs[0].Message, "unknown shape 'XYZ'")
	assert.Equal(t, "Profiel.csv", errs[0].File)
}

func TestImportFileErrorIsolated(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	fs := threeRowFileSet(t)
	files := map[string][]byte{
		"Knooppunt.csv":  fs.Content("Knooppunt.csv"),
		"Profiel.csv":    fs.Content("Profiel.csv"),
		"Verbinding.csv": []byte("NOT;A;HEADER\nx;y;z\n"),
		"readme.txt":     []byte("ignored"),
	}
	res, err := Import(ctx, source.NewMemory(files), WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)

	assert.Len(t, res.Graph.Nodes(), 1)
	assert.Empty(t, res.Graph.Edges())

	var failed []string
	for _, f := range res.Files {
		if f.Failed {
			failed = append(failed, f.Name)
		}
	}
	assert.Equal(t, []string{"Verbinding.csv"}, failed)

	errs := res.Report.Errors()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[1].Message, "Verbinding.csv is skipped")
}

func TestImportProgress(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	var (
		mu     sync.Mutex
		stages = map[string][2]int{}
	)
	progress := func(stage string, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		stages[stage] = [2]int{done, total}
	}
	_, err := Import(ctx, threeRowFileSet(t).Memory(), WithProgress(progress), WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)

	assert.Equal(t, [2]int{3, 3}, stages[StageDecode])
	assert.Equal(t, [2]int{3, 3}, stages[StageGenerate])
	assert.Equal(t, [2]int{1, 1}, stages[StageAssemble])
}

func TestImportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Import(ctx, threeRowFileSet(t).Memory(),
		WithVersion(schema.Version14),
		WithLogger(testutil.TestLogger(t)))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCancelled))
	require.NotNil(t, res)
	assert.NotNil(t, res.Graph, "a cancelled run still returns the partial graph")
	assert.NotNil(t, res.Report)
}

func TestImportUnsupportedVersion(t *testing.T) {
	res, err := Import(context.Background(), threeRowFileSet(t).Memory(),
		WithVersion("9.9"),
		WithLogger(testutil.TestLogger(t)))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
	assert.Empty(t, res.Graph.Nodes())
}

func TestImportNilSource(t *testing.T) {
	_, err := Import(context.Background(), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
