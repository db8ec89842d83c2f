package assembler

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/internal/pipeline"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/network"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/testutil"
)

func compartment(name string, line int, x, y float64) *feature.Compartment {
	return &feature.Compartment{
		Location:  feature.Location{File: "Knooppunt.csv", Line: line},
		Name:      name,
		ManholeID: name,
		Geometry:  &feature.Point{X: x, Y: y},
	}
}

func pipe(name string, line int, src, tgt, profile string) *feature.SewerConnection {
	return &feature.SewerConnection{
		Location:       feature.Location{File: "Verbinding.csv", Line: line},
		Name:           name,
		Kind:           feature.KindPipe,
		Origin:         feature.OriginConnection,
		SourceID:       src,
		TargetID:       tgt,
		CrossSectionID: profile,
		Length:         10,
	}
}

func circle(name string, d float64) *feature.CrossSection {
	return &feature.CrossSection{
		Location: feature.Location{File: "Profiel.csv", Line: 2},
		Name:     name,
		Shape:    feature.ShapeCircle,
		Material: feature.PVC,
		Width:    d,
		Height:   d,
	}
}

func assemble(t *testing.T, features ...feature.Feature) (*network.Graph, *report.Report) {
	t.Helper()
	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	logger := testutil.TestLogger(t)
	sink := report.NewCollector(logger)
	g := network.New()
	err := Assemble(ctx, g, features,
		WithSink(sink),
		WithLogger(logger),
		WithPipelineOptions(pipeline.WithWorkers(4)))
	require.NoError(t, err)
	return g, sink.Drain()
}

func messages(entries []report.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestAssembleNilGraph(t *testing.T) {
	err := Assemble(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, ErrNilGraph))
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Assemble(ctx, network.New(), []feature.Feature{compartment("a", 2, 0, 0)})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCancelled))
}

func TestAssemblePipeNetwork(t *testing.T) {
	profile := circle("PRO1", 0.5)
	g, rep := assemble(t,
		pipe("lei1", 2, "put1", "put2", "PRO1"),
		pipe("lei2", 3, "put2", "put1", "PRO1"),
		compartment("put2", 3, 10, 0),
		compartment("put1", 2, 0, 0),
		profile,
	)

	assert.Empty(t, rep.Errors())
	nodes := g.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "put1", nodes[0].FeatureName(), "attach order follows file and line")

	edges := g.Edges()
	require.Len(t, edges, 2)
	e := edges[0]
	assert.Equal(t, "put1", e.Source.FeatureName())
	assert.Equal(t, "put2", e.Target.FeatureName())
	assert.Equal(t, []feature.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, e.Geometry)
	assert.Equal(t, feature.PVC, e.Material)

	require.NotNil(t, e.CrossSection)
	assert.Same(t, profile, e.CrossSection.Definition)
	assert.Same(t, profile, edges[1].CrossSection.Definition, "usages share the definition")
	assert.Equal(t, UsageName, edges[0].CrossSection.Name)
	assert.Equal(t, UsageName+"_1", edges[1].CrossSection.Name)
	assert.Equal(t, "lei2", edges[1].CrossSection.Edge)

	manholes := g.Manholes()
	require.Len(t, manholes, 2)
	assert.Equal(t, &feature.Point{X: 0, Y: 0}, manholes[0].Position)
}

func TestAssembleManholePosition(t *testing.T) {
	a := compartment("a", 2, 0, 0)
	b := compartment("b", 3, 4, 2)
	a.ManholeID, b.ManholeID = "m1", "m1"
	g, _ := assemble(t, a, b)

	manholes := g.Manholes()
	require.Len(t, manholes, 1)
	assert.Equal(t, []string{"a", "b"}, manholes[0].Compartments)
	assert.Equal(t, &feature.Point{X: 2, Y: 1}, manholes[0].Position)
}

func TestAssembleReconnect(t *testing.T) {
	a := compartment("a", 2, 0, 0)
	b := compartment("b", 3, 3, 4)
	b.ManholeID = "MH-B"
	g, rep := assemble(t, a, b, pipe("p", 2, " A ", "mh-b", "P"), circle("P", 0.3))

	assert.Empty(t, rep.Errors())
	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Source.FeatureName())
	assert.Equal(t, "b", edges[0].Target.FeatureName())
	assert.Equal(t, "a", edges[0].SourceID)
	assert.True(t, edges[0].HasGeometry())
}

func TestAssembleZeroLength(t *testing.T) {
	tests := []struct {
		name   string
		target *feature.Compartment
		want   float64
	}{
		{"endpoint distance", compartment("b", 3, 3, 4), 5},
		{"coincident endpoints", compartment("b", 3, 0, 0), FallbackLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pipe("p", 2, "a", "b", "P")
			p.Length = 0
			g, rep := assemble(t, compartment("a", 2, 0, 0), tt.target, p, circle("P", 0.3))

			assert.Empty(t, rep.Errors(), "length fixes are debug entries")
			assert.Equal(t, 1, rep.Count(zapcore.DebugLevel))
			assert.InDelta(t, tt.want, g.Edges()[0].Length, 1e-9)
		})
	}
}

func TestAssembleDefaultProfiles(t *testing.T) {
	weir := pipe("w1", 3, "a", "b", "")
	weir.Kind = feature.KindWeir
	g, rep := assemble(t,
		compartment("a", 2, 0, 0),
		compartment("b", 3, 1, 0),
		pipe("p1", 2, "a", "b", ""),
		weir,
		pipe("p3", 4, "a", "b", "MISSING"),
	)

	errs := messages(rep.Errors())
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "for pipe 'p1'")
	assert.Contains(t, errs[1], "for sewer connection 'w1'")
	assert.Contains(t, errs[2], "Cross-section 'MISSING' of pipe 'p3' could not be found")

	for _, e := range g.Edges() {
		def := e.CrossSection.Definition
		require.NotNil(t, def)
		assert.True(t, def.Default)
		assert.Equal(t, feature.ShapeCircle, def.Shape)
		assert.Equal(t, DefaultConnectionDiameter, def.Diameter())
		assert.Equal(t, feature.MaterialUnknown, def.Material)
	}
	assert.Empty(t, g.Definitions(), "default profiles are not shared")
}

func TestAssembleOrifice(t *testing.T) {
	rect := &feature.CrossSection{Name: "R", Shape: feature.ShapeRectangle, Width: 2, Height: 0.5}
	trap := &feature.CrossSection{Name: "T", Shape: feature.ShapeTrapezoid, Width: 1, Slope: 2, MaxFlowWidth: 9}

	tests := []struct {
		name       string
		profile    *feature.CrossSection
		crestWidth float64
		gate       float64
		lowerEdge  float64
		warnings   int
	}{
		{"circle", circle("C", 1), math.Sqrt(math.Pi / 4), math.Sqrt(math.Pi / 4), 1.5 + math.Sqrt(math.Pi/4), 0},
		{"width and height", rect, 2, 0.5, 0, 0},
		{"trapezoid", trap, 9, 2, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := pipe("o1", 2, "a", "b", tt.profile.Name)
			o.Kind = feature.KindOrifice
			o.Orifice = &feature.Orifice{CrestLevel: 1.5, ContractionCoefficient: 0.63}
			g, rep := assemble(t, compartment("a", 2, 0, 0), compartment("b", 3, 1, 0), o, tt.profile)

			assert.Len(t, rep.Errors(), tt.warnings)
			got := g.Edges()[0].Orifice
			assert.InDelta(t, tt.crestWidth, got.CrestWidth, 1e-9)
			assert.InDelta(t, tt.gate, got.GateOpening, 1e-9)
			assert.InDelta(t, tt.lowerEdge, got.LowerEdgeLevel, 1e-9)
		})
	}
}

func TestAssembleRemovesDanglingEdges(t *testing.T) {
	g, rep := assemble(t,
		compartment("a", 2, 0, 0),
		pipe("p1", 2, "nowhere", "a", "P"),
		pipe("p2", 3, "a", "nowhere", "P"),
		pipe("p3", 4, "a", "a", "P"),
		circle("P", 0.3),
	)

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "p3", edges[0].Name)
	assert.Equal(t, []string{
		"Could not find source node for connection 'p1'. Removing it from the model.",
		"Could not find target node for connection 'p2'. Removing it from the model.",
	}, messages(rep.Errors()))
}

func TestAssembleUniqueNames(t *testing.T) {
	g, rep := assemble(t,
		compartment("a", 2, 0, 0),
		compartment("a", 3, 1, 0),
		compartment("a_1", 4, 2, 0),
		pipe("p", 2, "a", "a_1", "P"),
		pipe("p", 3, "a_1", "a", "P"),
		circle("P", 0.3),
		circle("P", 0.6),
	)

	var names []string
	for _, n := range g.Nodes() {
		names = append(names, n.FeatureName())
	}
	assert.Equal(t, []string{"a", "a_2", "a_1"}, names)

	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, "p", edges[0].Name)
	assert.Equal(t, "p_1", edges[1].Name)
	assert.Equal(t, "p_1", edges[1].CrossSection.Edge)
	assert.Equal(t, "a_1", edges[1].SourceID)
	assert.Equal(t, 0.3, edges[1].CrossSection.Definition.Diameter(), "first definition wins")
	assert.Len(t, g.Definitions(), 1)
	assert.NotEmpty(t, rep.Errors())
}

func TestAssembleUniqueDefaultProfiles(t *testing.T) {
	g, _ := assemble(t,
		compartment("a", 2, 0, 0),
		compartment("b", 3, 1, 0),
		pipe("p", 2, "a", "b", ""),
		pipe("p", 3, "b", "a", ""),
		circle("P", 0.3),
	)

	edges := g.Edges()
	require.Len(t, edges, 2)
	var defs []string
	for _, e := range edges {
		require.NotNil(t, e.CrossSection)
		assert.True(t, e.CrossSection.Definition.Default)
		defs = append(defs, e.CrossSection.Definition.Name)
	}
	assert.Equal(t, []string{"Default_p", "Default_p_1"}, defs)

	shared := g.Definitions()
	require.Len(t, shared, 1)
	assert.Equal(t, "P", shared[0].Name, "shared definitions keep their names")
}

func TestUniqueNames(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"no duplicates", []string{"a", "b"}, []string{"a", "b"}},
		{"suffixes in order", []string{"a", "a", "a"}, []string{"a", "a_1", "a_2"}},
		{"skip taken", []string{"a", "a", "a_1"}, []string{"a", "a_2", "a_1"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uniqueNames(tt.in))
		})
	}
}

func TestAssembleStructures(t *testing.T) {
	put := compartment("put1", 2, 5, 5)
	put.Width = 1.2
	structureOutlet := &feature.OutletCompartment{
		Compartment:       feature.Compartment{Location: feature.Location{File: "Kunstwerk.csv", Line: 2}, Name: "put1"},
		SurfaceWaterLevel: 0.7,
		FromStructure:     true,
	}
	pump := &feature.SewerConnection{
		Location: feature.Location{File: "Kunstwerk.csv", Line: 3},
		Name:     "gem1",
		Kind:     feature.KindPump,
		Origin:   feature.OriginStructure,
		Pump:     &feature.Pump{Capacity: 0.25},
	}
	conn := pipe("gem1", 2, "put1", "put2", "P")
	conn.Kind = feature.KindGeneric

	g, _ := assemble(t, structureOutlet, pump, put, compartment("put2", 3, 0, 0), conn, circle("P", 0.3))

	n, ok := g.Node("put1")
	require.True(t, ok)
	out, ok := n.(*feature.OutletCompartment)
	require.True(t, ok)
	assert.Equal(t, 0.7, out.SurfaceWaterLevel)
	assert.Equal(t, 1.2, out.Width)
	assert.Equal(t, &feature.Point{X: 5, Y: 5}, out.Geometry)

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, feature.KindPump, edges[0].Kind)
	assert.Equal(t, 0.25, edges[0].Pump.Capacity)
	assert.Same(t, n, edges[0].Source)
}

func TestAssembleRainfallRunoff(t *testing.T) {
	loc := feature.Location{File: "Oppervlak.csv", Line: 2}
	g, rep := assemble(t,
		compartment("put1", 2, 0, 0),
		&feature.Surface{Location: loc, CatchmentID: "c1", MeteoStationID: "m1", SurfaceType: feature.SurfaceType(0), Area: 10},
		&feature.Surface{Location: loc, CatchmentID: "c1", SurfaceType: feature.SurfaceType(0), Area: 5},
		&feature.Surface{Location: loc, CatchmentID: "c1", SurfaceType: feature.SurfaceType(3), Area: 2},
		&feature.Discharge{Location: loc, CatchmentID: "c1", Type: feature.DischargeDryWeather, DistributionID: feature.DefaultDryWeatherFlow, PollutionUnits: 3},
		&feature.Discharge{Location: loc, CatchmentID: "put1", Type: feature.DischargeLateral},
		&feature.Discharge{Location: loc, CatchmentID: "put1", Type: feature.DischargeLateral},
		&feature.Discharge{Location: loc, CatchmentID: "ghost", Type: feature.DischargeLateral},
	)

	catchments := g.Catchments()
	require.Len(t, catchments, 3)
	c := catchments[0]
	assert.Equal(t, "c1", c.Name)
	assert.Equal(t, "m1", c.MeteoStationID)
	assert.Equal(t, 15.0, c.Areas[0])
	assert.Equal(t, 2.0, c.Areas[3])
	assert.Equal(t, 17.0, c.TotalArea())
	assert.Equal(t, []string{feature.DefaultDryWeatherFlow}, c.DryWeatherFlowIDs)
	assert.Equal(t, 3, c.PollutionUnits)

	laterals := g.Laterals()
	require.Len(t, laterals, 2)
	assert.Equal(t, "lat_put1", laterals[0].Name)
	assert.Equal(t, "lat_put1_1", laterals[1].Name)
	for _, l := range laterals {
		assert.Equal(t, "put1", l.Node)
	}

	errs := messages(rep.Errors())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "'ghost' could not be linked")
}
