package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/network"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/testutil"
)

func snapshotGraph() *network.Graph {
	g := network.New()
	a := &feature.Compartment{Name: "put1", ManholeID: "put1", Geometry: &feature.Point{X: 10, Y: 20}}
	b := &feature.OutletCompartment{Compartment: feature.Compartment{Name: "uit1", ManholeID: "uit1"}, SurfaceWaterLevel: 1.5}
	g.AddNode(a)
	g.AddNode(b)
	def := &feature.CrossSection{Name: "PRO1", Shape: feature.ShapeCircle, Width: 0.5, Height: 0.5}
	g.AddDefinition(def)
	e := &network.Edge{
		SewerConnection: &feature.SewerConnection{Name: "lei1", Kind: feature.KindPipe, SourceID: "put1", TargetID: "uit1", Length: 30},
		Source:          a,
		Target:          b,
	}
	g.AddEdge(e)
	g.SetUsage(e, &network.CrossSectionUsage{Name: "SewerProfile_", Edge: "lei1", Definition: def})
	return g
}

func snapshotReport() *report.Report {
	return &report.Report{Entries: []report.Entry{
		{Level: zapcore.InfoLevel, Message: "version 1.4"},
		{Level: zapcore.WarnLevel, Message: "unknown shape", File: "Profiel.csv", Line: 3, Key: "CROSS_SECTION_SHAPE", Value: "XYZ"},
	}}
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	s, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "snapshots.db"), testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		dialect Dialect
		driver  string
		source  string
	}{
		{"postgres://u:p@localhost/gwsw", DialectPostgres, "pgx", "postgres://u:p@localhost/gwsw"},
		{"postgresql://localhost/gwsw", DialectPostgres, "pgx", "postgresql://localhost/gwsw"},
		{"sqlite:///tmp/a.db", DialectSQLite, "sqlite", "/tmp/a.db"},
		{"snapshots.db", DialectSQLite, "sqlite", "snapshots.db"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			dialect, driver, source := ParseDSN(tt.dsn)
			assert.Equal(t, tt.dialect, dialect)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestBindPostgres(t *testing.T) {
	s := &Store{dialect: DialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", s.bind("SELECT a FROM t WHERE x = ? AND y = ?"))

	s.dialect = DialectSQLite
	assert.Equal(t, "x = ?", s.bind("x = ?"))
}

func TestSaveAndRead(t *testing.T) {
	s := openSQLite(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	require.NoError(t, s.Save(ctx, "run-1", "1.4", snapshotGraph(), snapshotReport()))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "1.4", runs[0].Version)
	assert.Equal(t, 2, runs[0].Nodes)
	assert.Equal(t, 1, runs[0].Edges)
	assert.Equal(t, 1, runs[0].Errors)
	assert.WithinDuration(t, time.Now(), runs[0].CreatedAt, time.Minute)

	nodes, err := s.Nodes(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "put1", nodes[0].Name)
	require.NotNil(t, nodes[0].Geometry)
	assert.Equal(t, 10.0, nodes[0].Geometry.X)
	assert.Equal(t, "outlet", nodes[1].Type)

	edges, err := s.EdgesFrom(ctx, "run-1", "put1")
	require.NoError(t, err)
	assert.Equal(t, []string{"lei1"}, edges)

	n, err := s.ErrorCount(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoredDocument(t *testing.T) {
	s := openSQLite(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	require.NoError(t, s.Save(ctx, "run-1", "1.4", snapshotGraph(), snapshotReport()))

	var codec string
	var body []byte
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT codec, body FROM documents WHERE run_id = ?`, "run-1").Scan(&codec, &body))
	assert.Equal(t, "zstd", codec)
	assert.NotContains(t, string(body), "lei1", "body is compressed")

	doc, err := s.Document(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Stats.Nodes)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "lei1", doc.Edges[0].Name)
	assert.Equal(t, "PRO1", doc.Edges[0].Definition)
	require.Len(t, doc.Report, 2)
	assert.Equal(t, "warn", doc.Report[1].Level)

	_, err = s.Document(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestSaveDuplicateRun(t *testing.T) {
	s := openSQLite(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	require.NoError(t, s.Save(ctx, "run-1", "1.4", snapshotGraph(), nil))
	err := s.Save(ctx, "run-1", "1.4", snapshotGraph(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))

	nodes, err := s.Nodes(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, nodes, 2, "the failed save is rolled back")
}

func TestSaveNilGraph(t *testing.T) {
	s := openSQLite(t)
	err := s.Save(context.Background(), "run-1", "1.4", nil, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestReopenKeepsRuns(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "run-1", "1.5", snapshotGraph(), nil))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "1.5", runs[0].Version)
}

func TestPostgresIntegration(t *testing.T) {
	dsn := testutil.IntegrationTest(t, "GWSW_TEST_POSTGRES_DSN")
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	s, err := Open(ctx, dsn, testutil.TestLogger(t))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, DialectPostgres, s.Dialect())

	runID := fmt.Sprintf("it-%d", time.Now().UnixNano())
	require.NoError(t, s.Save(ctx, runID, "1.4", snapshotGraph(), snapshotReport()))

	nodes, err := s.Nodes(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	n, err := s.ErrorCount(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc, err := s.Document(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, doc.Edges, 1)
}
