package export

import (
	"bufio"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/compression"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/network"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/json"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/source"
)

func sampleGraph() *network.Graph {
	g := network.New()
	a := &feature.Compartment{Name: "put1", ManholeID: "put1", Geometry: &feature.Point{X: 1, Y: 2}}
	b := &feature.OutletCompartment{Compartment: feature.Compartment{Name: "uit1", ManholeID: "uit1"}, SurfaceWaterLevel: 0.4}
	g.AddNode(a)
	g.AddNode(b)
	def := &feature.CrossSection{Name: "PRO1", Shape: feature.ShapeEgg, Material: feature.PVC, Width: 0.4, Height: 0.6}
	g.AddDefinition(def)
	e := &network.Edge{
		SewerConnection: &feature.SewerConnection{Name: "lei1", Kind: feature.KindPipe, SourceID: "put1", TargetID: "uit1", Length: 12},
		Source:          a,
		Target:          b,
	}
	g.AddEdge(e)
	g.SetUsage(e, &network.CrossSectionUsage{Name: "SewerProfile_", Edge: "lei1", Definition: def})
	return g
}

func sampleReport() *report.Report {
	return &report.Report{Entries: []report.Entry{
		{Level: zapcore.WarnLevel, Message: "unknown shape", File: "Profiel.csv", Line: 2},
	}}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleGraph(), WithReport(sampleReport()), WithPretty()))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "compartment", doc.Nodes[0].Type)
	assert.Equal(t, "outlet", doc.Nodes[1].Type)
	require.NotNil(t, doc.Nodes[1].SurfaceWaterLevel)
	assert.Equal(t, 0.4, *doc.Nodes[1].SurfaceWaterLevel)

	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "Pipe", doc.Edges[0].Kind)
	assert.Equal(t, "PRO1", doc.Edges[0].Definition)
	assert.Equal(t, "SewerProfile_", doc.Edges[0].CrossSection)

	require.Len(t, doc.CrossSections, 1)
	assert.Equal(t, feature.ShapeEgg.String(), doc.CrossSections[0].Shape)
	require.Len(t, doc.Report, 1)
	assert.Equal(t, "warn", doc.Report[0].Level)
	assert.Equal(t, "Profiel.csv", doc.Report[0].File)
}

func TestWriteCompressedYAML(t *testing.T) {
	for _, alg := range []compression.Algorithm{compression.Gzip, compression.Zstd, compression.LZ4} {
		t.Run(string(alg), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, sampleGraph(), WithFormat(FormatYAML), WithCompression(alg, compression.Fastest)))

			raw, err := compression.Decompress(buf.Bytes(), alg)
			require.NoError(t, err)
			var doc map[string]interface{}
			require.NoError(t, yaml.Unmarshal(raw, &doc))
			assert.Contains(t, doc, "nodes")
			assert.Contains(t, doc, "edges")
		})
	}
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleGraph(), WithFormat(FormatJSONLines), WithReport(sampleReport())))

	var records []string
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var l struct {
			Record string `json:"record"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		records = append(records, l.Record)
	}
	assert.Equal(t, []string{"node", "node", "edge", "cross_section", "report"}, records)
}

func TestFromName(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		alg     compression.Algorithm
		wantErr bool
	}{
		{"network.json", FormatJSON, compression.None, false},
		{"network.yaml.gz", FormatYAML, compression.Gzip, false},
		{"out/network.jsonl.zst", FormatJSONLines, compression.Zstd, false},
		{"network.xml", "", compression.None, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, alg, err := FromName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, f)
			assert.Equal(t, tt.alg, alg)
		})
	}
}

func TestUpload(t *testing.T) {
	mem := source.NewMemory(nil)
	require.NoError(t, Upload(context.Background(), mem, "network.json.gz", sampleGraph()))

	data, ok := mem.Bytes("network.json.gz")
	require.True(t, ok)
	raw, err := compression.Decompress(data, compression.Gzip)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lei1"`)
}

func TestWriteNilGraph(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, nil))
}
