package export

import (
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/network"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
)

// Document is the serialised form of a network. Enumerations are written as
// their names.
type Document struct {
	Stats           network.Stats                       `json:"stats" yaml:"stats"`
	Nodes           []Node                              `json:"nodes" yaml:"nodes"`
	Manholes        []*network.Manhole                  `json:"manholes" yaml:"manholes"`
	Edges           []Edge                              `json:"edges" yaml:"edges"`
	CrossSections   []CrossSection                      `json:"cross_sections" yaml:"cross_sections"`
	Catchments      []*network.Catchment                `json:"catchments,omitempty" yaml:"catchments,omitempty"`
	Runoff          []Runoff                            `json:"runoff,omitempty" yaml:"runoff,omitempty"`
	DryWeatherFlows []*feature.DryWeatherFlowDefinition `json:"dry_weather_flows,omitempty" yaml:"dry_weather_flows,omitempty"`
	Laterals        []*network.LateralSource            `json:"laterals,omitempty" yaml:"laterals,omitempty"`
	Report          []ReportEntry                       `json:"report,omitempty" yaml:"report,omitempty"`
}

// Node is a compartment or outlet.
type Node struct {
	Name              string         `json:"name" yaml:"name"`
	Type              string         `json:"type" yaml:"type"`
	ManholeID         string         `json:"manhole_id" yaml:"manhole_id"`
	Geometry          *feature.Point `json:"geometry,omitempty" yaml:"geometry,omitempty"`
	Shape             string         `json:"shape" yaml:"shape"`
	Material          string         `json:"material" yaml:"material"`
	StorageType       string         `json:"storage_type" yaml:"storage_type"`
	Width             float64        `json:"width" yaml:"width"`
	Length            float64        `json:"length" yaml:"length"`
	BottomLevel       float64        `json:"bottom_level" yaml:"bottom_level"`
	SurfaceLevel      float64        `json:"surface_level" yaml:"surface_level"`
	InitialWaterLevel float64        `json:"initial_water_level" yaml:"initial_water_level"`
	FloodableArea     float64        `json:"floodable_area,omitempty" yaml:"floodable_area,omitempty"`
	SurfaceWaterLevel *float64       `json:"surface_water_level,omitempty" yaml:"surface_water_level,omitempty"`
}

// Edge is a sewer connection.
type Edge struct {
	Name          string           `json:"name" yaml:"name"`
	Kind          string           `json:"kind" yaml:"kind"`
	Source        string           `json:"source" yaml:"source"`
	Target        string           `json:"target" yaml:"target"`
	Length        float64          `json:"length" yaml:"length"`
	LevelSource   float64          `json:"level_source" yaml:"level_source"`
	LevelTarget   float64          `json:"level_target" yaml:"level_target"`
	Material      string           `json:"material" yaml:"material"`
	WaterType     string           `json:"water_type" yaml:"water_type"`
	FlowDirection string           `json:"flow_direction" yaml:"flow_direction"`
	CrossSection  string           `json:"cross_section,omitempty" yaml:"cross_section,omitempty"`
	Definition    string           `json:"definition,omitempty" yaml:"definition,omitempty"`
	Geometry      []feature.Point  `json:"geometry,omitempty" yaml:"geometry,omitempty"`
	Pump          *feature.Pump    `json:"pump,omitempty" yaml:"pump,omitempty"`
	Weir          *feature.Weir    `json:"weir,omitempty" yaml:"weir,omitempty"`
	Orifice       *feature.Orifice `json:"orifice,omitempty" yaml:"orifice,omitempty"`
}

// CrossSection is a cross-section definition, shared or default.
type CrossSection struct {
	Name     string  `json:"name" yaml:"name"`
	Shape    string  `json:"shape" yaml:"shape"`
	Material string  `json:"material" yaml:"material"`
	Width    float64 `json:"width" yaml:"width"`
	Height   float64 `json:"height" yaml:"height"`
	Default  bool    `json:"default,omitempty" yaml:"default,omitempty"`
}

// Runoff is a runoff definition with its surface type.
type Runoff struct {
	SurfaceType string                    `json:"surface_type" yaml:"surface_type"`
	Parameters  *feature.RunoffDefinition `json:"parameters" yaml:"parameters"`
}

// ReportEntry is a report entry with its level name.
type ReportEntry struct {
	Level string `json:"level" yaml:"level"`
	report.Entry `yaml:",inline"`
}

// Build converts g into a document. rep may be nil.
func Build(g *network.Graph, rep *report.Report) *Document {
	doc := &Document{
		Stats:           g.Stats(),
		Manholes:        g.Manholes(),
		Catchments:      g.Catchments(),
		DryWeatherFlows: g.DryWeatherFlows(),
		Laterals:        g.Laterals(),
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, nodeRecord(n))
	}

	seen := make(map[*feature.CrossSection]bool)
	addDefinition := func(cs *feature.CrossSection) {
		if cs == nil || seen[cs] {
			return
		}
		seen[cs] = true
		doc.CrossSections = append(doc.CrossSections, CrossSection{
			Name:     cs.Name,
			Shape:    cs.Shape.String(),
			Material: cs.Material.String(),
			Width:    cs.Width,
			Height:   cs.Height,
			Default:  cs.Default,
		})
	}
	for _, cs := range g.Definitions() {
		addDefinition(cs)
	}
	for _, e := range g.Edges() {
		rec := Edge{
			Name:          e.Name,
			Kind:          e.Kind.String(),
			Source:        e.SourceID,
			Target:        e.TargetID,
			Length:        e.Length,
			LevelSource:   e.LevelSource,
			LevelTarget:   e.LevelTarget,
			Material:      e.Material.String(),
			WaterType:     e.WaterType.String(),
			FlowDirection: e.FlowDirection.String(),
			Geometry:      e.Geometry,
			Pump:          e.Pump,
			Weir:          e.Weir,
			Orifice:       e.Orifice,
		}
		if u := e.CrossSection; u != nil {
			rec.CrossSection = u.Name
			rec.Definition = u.DefinitionName()
			addDefinition(u.Definition)
		}
		doc.Edges = append(doc.Edges, rec)
	}

	for _, r := range g.RunoffDefinitions() {
		doc.Runoff = append(doc.Runoff, Runoff{SurfaceType: r.SurfaceType.String(), Parameters: r})
	}
	if rep != nil {
		for _, e := range rep.Entries {
			doc.Report = append(doc.Report, ReportEntry{Level: e.LevelName(), Entry: e})
		}
	}
	return doc
}

func nodeRecord(n feature.Node) Node {
	c := n.Base()
	rec := Node{
		Name:              c.Name,
		Type:              "compartment",
		ManholeID:         c.ManholeID,
		Geometry:          c.Geometry,
		Shape:             c.Shape.String(),
		Material:          c.Material.String(),
		StorageType:       c.StorageType.String(),
		Width:             c.Width,
		Length:            c.Length,
		BottomLevel:       c.BottomLevel,
		SurfaceLevel:      c.SurfaceLevel,
		InitialWaterLevel: c.InitialWaterLevel,
		FloodableArea:     c.FloodableArea,
	}
	if o, ok := n.(*feature.OutletCompartment); ok {
		rec.Type = "outlet"
		level := o.SurfaceWaterLevel
		rec.SurfaceWaterLevel = &level
	}
	return rec
}
