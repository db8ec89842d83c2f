// Package feature defines the typed network features built from GWSW rows.
package feature

import (
	"math"
	"time"
)

// Feature is implemented by every generated network object.
type Feature interface {
	FeatureName() string
	Source() Location
}

// Location is the file position a feature was generated from.
type Location struct {
	File string `json:"file,omitempty" yaml:"file,omitempty"`
	Line int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// Source returns l.
func (l Location) Source() Location { return l }

// Before orders locations by file, then line.
func (l Location) Before(o Location) bool {
	if l.File != o.File {
		return l.File < o.File
	}
	return l.Line < o.Line
}

// Point is a planar coordinate in the file's reference system.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance returns the euclidean distance to o.
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Compartment is one chamber of a manhole.
type Compartment struct {
	Location
	Name              string      `json:"name" yaml:"name"`
	ManholeID         string      `json:"manhole_id" yaml:"manhole_id"`
	SewerSystemID     string      `json:"sewer_system_id,omitempty" yaml:"sewer_system_id,omitempty"`
	Geometry          *Point      `json:"geometry,omitempty" yaml:"geometry,omitempty"`
	Shape             NodeShape   `json:"-" yaml:"-"`
	Material          Material    `json:"-" yaml:"-"`
	Width             float64     `json:"width" yaml:"width"`
	Length            float64     `json:"length" yaml:"length"`
	BottomLevel       float64     `json:"bottom_level" yaml:"bottom_level"`
	SurfaceLevel      float64     `json:"surface_level" yaml:"surface_level"`
	InitialWaterLevel float64     `json:"initial_water_level" yaml:"initial_water_level"`
	StorageType       StorageType `json:"-" yaml:"-"`
	FloodableArea     float64     `json:"floodable_area" yaml:"floodable_area"`
	InstallationDate  time.Time   `json:"installation_date,omitempty" yaml:"installation_date,omitempty"`
}

// FeatureName implements Feature.
func (c *Compartment) FeatureName() string { return c.Name }

// OutletCompartment is a compartment discharging to surface water.
type OutletCompartment struct {
	Compartment
	SurfaceWaterLevel float64 `json:"surface_water_level" yaml:"surface_water_level"`
	// FromStructure marks outlets generated from a Kunstwerk row. They are
	// merged into a compartment of the same name during assembly.
	FromStructure bool `json:"-" yaml:"-"`
}

// Base returns the embedded compartment.
func (o *OutletCompartment) Base() *Compartment { return &o.Compartment }

// Node is implemented by Compartment and OutletCompartment.
type Node interface {
	Feature
	Base() *Compartment
}

// Base returns c.
func (c *Compartment) Base() *Compartment { return c }

// Origin is the GWSW file a connection was generated from.
type Origin int

const (
	OriginConnection Origin = iota
	OriginStructure
)

func (o Origin) String() string {
	if o == OriginStructure {
		return "Structure"
	}
	return "Connection"
}

// ConnectionKind is the hydraulic role of a sewer connection.
type ConnectionKind int

const (
	KindGeneric ConnectionKind = iota
	KindPipe
	KindPump
	KindWeir
	KindOrifice
)

var kindNames = [...]string{"SewerConnection", "Pipe", "Pump", "Weir", "Orifice"}

func (k ConnectionKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "SewerConnection"
}

// Pump parameters. Capacity is in m³/s.
type Pump struct {
	Capacity           float64 `json:"capacity" yaml:"capacity"`
	StartLevelSuction  float64 `json:"start_level_suction" yaml:"start_level_suction"`
	StopLevelSuction   float64 `json:"stop_level_suction" yaml:"stop_level_suction"`
	StartLevelDelivery float64 `json:"start_level_delivery" yaml:"start_level_delivery"`
	StopLevelDelivery  float64 `json:"stop_level_delivery" yaml:"stop_level_delivery"`
}

// Weir parameters.
type Weir struct {
	CrestWidth           float64 `json:"crest_width" yaml:"crest_width"`
	CrestLevel           float64 `json:"crest_level" yaml:"crest_level"`
	DischargeCoefficient float64 `json:"discharge_coefficient" yaml:"discharge_coefficient"`
}

// Orifice parameters. GateOpening, CrestWidth and LowerEdgeLevel are derived
// from the cross-section during assembly.
type Orifice struct {
	CrestLevel             float64 `json:"crest_level" yaml:"crest_level"`
	ContractionCoefficient float64 `json:"contraction_coefficient" yaml:"contraction_coefficient"`
	MaxDischarge           float64 `json:"max_discharge" yaml:"max_discharge"`
	UseMaxDischarge        bool    `json:"use_max_discharge" yaml:"use_max_discharge"`
	GateOpening            float64 `json:"gate_opening" yaml:"gate_opening"`
	CrestWidth             float64 `json:"crest_width" yaml:"crest_width"`
	LowerEdgeLevel         float64 `json:"lower_edge_level" yaml:"lower_edge_level"`
}

// SewerConnection is a pipe, pump, weir, orifice or generic link.
type SewerConnection struct {
	Location
	Name               string         `json:"name" yaml:"name"`
	Kind               ConnectionKind `json:"-" yaml:"-"`
	Origin             Origin         `json:"-" yaml:"-"`
	TypeCode           string         `json:"type_code,omitempty" yaml:"type_code,omitempty"`
	PipeID             string         `json:"pipe_id,omitempty" yaml:"pipe_id,omitempty"`
	SourceID           string         `json:"source" yaml:"source"`
	TargetID           string         `json:"target" yaml:"target"`
	LevelSource        float64        `json:"level_source" yaml:"level_source"`
	LevelTarget        float64        `json:"level_target" yaml:"level_target"`
	Length             float64        `json:"length" yaml:"length"`
	WaterType          WaterType      `json:"-" yaml:"-"`
	FlowDirection      FlowDirection  `json:"-" yaml:"-"`
	CrossSectionID     string         `json:"cross_section_id,omitempty" yaml:"cross_section_id,omitempty"`
	EntranceLossSource float64        `json:"entrance_loss_source" yaml:"entrance_loss_source"`
	ExitLossSource     float64        `json:"exit_loss_source" yaml:"exit_loss_source"`
	EntranceLossTarget float64        `json:"entrance_loss_target" yaml:"entrance_loss_target"`
	ExitLossTarget     float64        `json:"exit_loss_target" yaml:"exit_loss_target"`
	Material           Material       `json:"-" yaml:"-"`
	Pump               *Pump          `json:"pump,omitempty" yaml:"pump,omitempty"`
	Weir               *Weir          `json:"weir,omitempty" yaml:"weir,omitempty"`
	Orifice            *Orifice       `json:"orifice,omitempty" yaml:"orifice,omitempty"`
}

// FeatureName implements Feature.
func (s *SewerConnection) FeatureName() string { return s.Name }

// IsPipe reports whether the connection is a pipe.
func (s *SewerConnection) IsPipe() bool { return s.Kind == KindPipe }

// CrossSection is a profile definition. Dimensions are in metres.
type CrossSection struct {
	Location
	Name         string   `json:"name" yaml:"name"`
	Shape        Shape    `json:"-" yaml:"-"`
	Material     Material `json:"-" yaml:"-"`
	Width        float64  `json:"width" yaml:"width"`
	Height       float64  `json:"height" yaml:"height"`
	ArcHeight    float64  `json:"arc_height,omitempty" yaml:"arc_height,omitempty"`
	Slope        float64  `json:"slope,omitempty" yaml:"slope,omitempty"`
	MaxFlowWidth float64  `json:"max_flow_width,omitempty" yaml:"max_flow_width,omitempty"`
	Default      bool     `json:"default,omitempty" yaml:"default,omitempty"`
}

// FeatureName implements Feature.
func (c *CrossSection) FeatureName() string { return c.Name }

// Diameter returns the width of a circular profile.
func (c *CrossSection) Diameter() float64 { return c.Width }

// HighestPoint returns the top of the profile above its invert.
func (c *CrossSection) HighestPoint() float64 {
	switch c.Shape {
	case ShapeCircle:
		return c.Width
	case ShapeTrapezoid:
		return (c.MaxFlowWidth - c.Width) / 2 / math.Max(c.Slope, 1e-9)
	default:
		return c.Height
	}
}

// MaxWidth returns the widest point of the profile.
func (c *CrossSection) MaxWidth() float64 {
	if c.Shape == ShapeTrapezoid {
		return c.MaxFlowWidth
	}
	return c.Width
}

// Surface is an NWRW runoff area of a catchment.
type Surface struct {
	Location
	CatchmentID    string      `json:"catchment" yaml:"catchment"`
	MeteoStationID string      `json:"meteo_station,omitempty" yaml:"meteo_station,omitempty"`
	SurfaceType    SurfaceType `json:"-" yaml:"-"`
	Area           float64     `json:"area" yaml:"area"`
}

// FeatureName implements Feature.
func (s *Surface) FeatureName() string { return s.CatchmentID }

// RunoffDefinition holds the NWRW parameters of one surface type.
type RunoffDefinition struct {
	Location
	SurfaceType           SurfaceType `json:"-" yaml:"-"`
	SurfaceStorage        float64     `json:"surface_storage" yaml:"surface_storage"`
	InfiltrationMax       float64     `json:"infiltration_max" yaml:"infiltration_max"`
	InfiltrationMin       float64     `json:"infiltration_min" yaml:"infiltration_min"`
	InfiltrationReduction float64     `json:"infiltration_reduction" yaml:"infiltration_reduction"`
	InfiltrationRecovery  float64     `json:"infiltration_recovery" yaml:"infiltration_recovery"`
	RunoffDelay           float64     `json:"runoff_delay" yaml:"runoff_delay"`
	RunoffLength          float64     `json:"runoff_length" yaml:"runoff_length"`
	RunoffSlope           float64     `json:"runoff_slope" yaml:"runoff_slope"`
}

// FeatureName implements Feature.
func (r *RunoffDefinition) FeatureName() string { return r.SurfaceType.String() }

// DryWeatherFlowDefinition is a daily distribution of dry weather flow.
type DryWeatherFlowDefinition struct {
	Location
	Name              string           `json:"name" yaml:"name"`
	DistributionType  DistributionType `json:"-" yaml:"-"`
	DailyVolume       float64          `json:"daily_volume" yaml:"daily_volume"`
	HourlyPercentages [24]float64      `json:"hourly_percentages" yaml:"hourly_percentages"`
}

// FeatureName implements Feature.
func (d *DryWeatherFlowDefinition) FeatureName() string { return d.Name }

// DefaultDryWeatherFlow is the distribution used by discharges without one.
const DefaultDryWeatherFlow = "Default_DWA"

// Discharge is a dry weather or lateral inflow of a catchment.
type Discharge struct {
	Location
	CatchmentID    string        `json:"catchment" yaml:"catchment"`
	Type           DischargeType `json:"-" yaml:"-"`
	DistributionID string        `json:"distribution,omitempty" yaml:"distribution,omitempty"`
	PollutionUnits int           `json:"pollution_units" yaml:"pollution_units"`
	SurfaceArea    float64       `json:"surface_area,omitempty" yaml:"surface_area,omitempty"`
}

// FeatureName implements Feature.
func (d *Discharge) FeatureName() string { return d.CatchmentID }
