package feature

import "github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/element"

// Material of a profile, manhole or pipe.
type Material int

const (
	MaterialUnknown Material = iota
	Concrete
	PVC
	Stoneware
	CastIron
	Masonry
	HDPE
	Polyester
	Steel
	SheetMetal
)

var materialNames = [...]string{"Unknown", "Concrete", "PVC", "Stoneware", "CastIron", "Masonry", "HDPE", "Polyester", "Steel", "SheetMetal"}

func (m Material) String() string {
	if int(m) < len(materialNames) {
		return materialNames[m]
	}
	return "Unknown"
}

// MaterialCodes maps GWSW material codes.
var MaterialCodes = element.NewEnumTable("material",
	element.EnumPair[Material]{Code: "BET", Value: Concrete},
	element.EnumPair[Material]{Code: "PVC", Value: PVC},
	element.EnumPair[Material]{Code: "GRE", Value: Stoneware},
	element.EnumPair[Material]{Code: "GIJ", Value: CastIron},
	element.EnumPair[Material]{Code: "MSW", Value: Masonry},
	element.EnumPair[Material]{Code: "HPE", Value: HDPE},
	element.EnumPair[Material]{Code: "PES", Value: Polyester},
	element.EnumPair[Material]{Code: "STL", Value: Steel},
	element.EnumPair[Material]{Code: "PLI", Value: SheetMetal},
)

// Shape is the shape of a cross-section profile.
type Shape int

const (
	ShapeCircle Shape = iota
	ShapeRectangle
	ShapeEgg
	ShapeArch
	ShapeCunette
	ShapeTrapezoid
	ShapeEllipse
	ShapeUShape
	ShapeInvertedEgg
)

var shapeNames = [...]string{"Circle", "Rectangle", "Egg", "Arch", "Cunette", "Trapezoid", "Ellipse", "UShape", "InvertedEgg"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "Unknown"
}

// HasWidthAndHeight reports whether the shape is described by a width and a
// height rather than a diameter or slopes.
func (s Shape) HasWidthAndHeight() bool {
	switch s {
	case ShapeRectangle, ShapeEgg, ShapeArch, ShapeCunette, ShapeEllipse, ShapeUShape, ShapeInvertedEgg:
		return true
	}
	return false
}

// ShapeCodes maps GWSW profile shape codes.
var ShapeCodes = element.NewEnumTable("profile shape",
	element.EnumPair[Shape]{Code: "RND", Value: ShapeCircle},
	element.EnumPair[Shape]{Code: "RHK", Value: ShapeRectangle},
	element.EnumPair[Shape]{Code: "EIV", Value: ShapeEgg},
	element.EnumPair[Shape]{Code: "MVR", Value: ShapeArch},
	element.EnumPair[Shape]{Code: "HEU", Value: ShapeCunette},
	element.EnumPair[Shape]{Code: "TPZ", Value: ShapeTrapezoid},
	element.EnumPair[Shape]{Code: "OVA", Value: ShapeEllipse},
	element.EnumPair[Shape]{Code: "UVR", Value: ShapeUShape},
	element.EnumPair[Shape]{Code: "OEI", Value: ShapeInvertedEgg},
)

// NodeShape is the floor plan of a manhole compartment.
type NodeShape int

const (
	NodeShapeUnknown NodeShape = iota
	NodeShapeRound
	NodeShapeRectangular
	NodeShapeSquare
)

var nodeShapeNames = [...]string{"Unknown", "Round", "Rectangular", "Square"}

func (s NodeShape) String() string {
	if int(s) < len(nodeShapeNames) {
		return nodeShapeNames[s]
	}
	return "Unknown"
}

// NodeShapeCodes maps GWSW manhole shape codes.
var NodeShapeCodes = element.NewEnumTable("manhole shape",
	element.EnumPair[NodeShape]{Code: "RND", Value: NodeShapeRound},
	element.EnumPair[NodeShape]{Code: "RHK", Value: NodeShapeRectangular},
	element.EnumPair[NodeShape]{Code: "VRK", Value: NodeShapeSquare},
)

// StorageType is the surface schematisation of a compartment.
type StorageType int

const (
	StorageReservoir StorageType = iota
	StorageClosed
	StorageLoss
)

var storageNames = [...]string{"Reservoir", "Closed", "Loss"}

func (s StorageType) String() string {
	if int(s) < len(storageNames) {
		return storageNames[s]
	}
	return "Reservoir"
}

// StorageTypeCodes maps GWSW surface schematisation codes.
var StorageTypeCodes = element.NewEnumTable("surface schematisation",
	element.EnumPair[StorageType]{Code: "RES", Value: StorageReservoir},
	element.EnumPair[StorageType]{Code: "GSL", Value: StorageClosed},
	element.EnumPair[StorageType]{Code: "VRL", Value: StorageLoss},
)

// NodeType classifies a Knooppunt row.
type NodeType int

const (
	NodeTypeUnknown NodeType = iota
	NodeTypeManhole
	NodeTypeOutlet
	NodeTypeConnection
)

// NodeTypeCodes maps GWSW node type codes.
var NodeTypeCodes = element.NewEnumTable("node type",
	element.EnumPair[NodeType]{Code: "INS", Value: NodeTypeManhole},
	element.EnumPair[NodeType]{Code: "UIT", Value: NodeTypeOutlet},
	element.EnumPair[NodeType]{Code: "VBK", Value: NodeTypeConnection},
)

// WaterType is the collected water type of a connection.
type WaterType int

const (
	WaterTypeNone WaterType = iota
	WaterTypeDryWeather
	WaterTypeStormWater
	WaterTypeCombined
)

var waterTypeNames = [...]string{"None", "DryWeather", "StormWater", "Combined"}

func (w WaterType) String() string {
	if int(w) < len(waterTypeNames) {
		return waterTypeNames[w]
	}
	return "None"
}

// WaterTypeCodes maps GWSW collection type codes.
var WaterTypeCodes = element.NewEnumTable("water type",
	element.EnumPair[WaterType]{Code: "NVT", Value: WaterTypeNone},
	element.EnumPair[WaterType]{Code: "DWA", Value: WaterTypeDryWeather},
	element.EnumPair[WaterType]{Code: "HWA", Value: WaterTypeStormWater},
	element.EnumPair[WaterType]{Code: "GMD", Value: WaterTypeCombined},
)

// FlowDirection restricts the flow through a connection.
type FlowDirection int

const (
	FlowOpen FlowDirection = iota
	FlowClosed
	FlowPositive
	FlowNegative
)

var flowNames = [...]string{"Open", "Closed", "Positive", "Negative"}

func (f FlowDirection) String() string {
	if int(f) < len(flowNames) {
		return flowNames[f]
	}
	return "Open"
}

// AllowPositive reports whether flow from source to target is allowed.
func (f FlowDirection) AllowPositive() bool {
	return f == FlowOpen || f == FlowPositive
}

// AllowNegative reports whether flow from target to source is allowed.
func (f FlowDirection) AllowNegative() bool {
	return f == FlowOpen || f == FlowNegative
}

// FlowDirectionCodes maps GWSW flow direction codes.
var FlowDirectionCodes = element.NewEnumTable("flow direction",
	element.EnumPair[FlowDirection]{Code: "OPN", Value: FlowOpen},
	element.EnumPair[FlowDirection]{Code: "GSL", Value: FlowClosed},
	element.EnumPair[FlowDirection]{Code: "1_2", Value: FlowPositive},
	element.EnumPair[FlowDirection]{Code: "2_1", Value: FlowNegative},
)

// SurfaceType is one of the twelve NWRW runoff surfaces.
type SurfaceType int

const (
	SurfaceClosedPavedWithSlope SurfaceType = iota
	SurfaceClosedPavedFlat
	SurfaceClosedPavedFlatStretched
	SurfaceOpenPavedWithSlope
	SurfaceOpenPavedFlat
	SurfaceOpenPavedFlatStretched
	SurfaceRoofWithSlope
	SurfaceRoofFlat
	SurfaceRoofFlatStretched
	SurfaceUnpavedWithSlope
	SurfaceUnpavedFlat
	SurfaceUnpavedFlatStretched
)

// SurfaceTypeCount is the number of NWRW surfaces.
const SurfaceTypeCount = 12

var surfaceNames = [SurfaceTypeCount]string{
	"ClosedPavedWithSlope", "ClosedPavedFlat", "ClosedPavedFlatStretched",
	"OpenPavedWithSlope", "OpenPavedFlat", "OpenPavedFlatStretched",
	"RoofWithSlope", "RoofFlat", "RoofFlatStretched",
	"UnpavedWithSlope", "UnpavedFlat", "UnpavedFlatStretched",
}

func (s SurfaceType) String() string {
	if s >= 0 && int(s) < SurfaceTypeCount {
		return surfaceNames[s]
	}
	return "Unknown"
}

// SurfaceTypeCodes maps NWRW surface codes.
var SurfaceTypeCodes = element.NewEnumTable("surface type",
	element.EnumPair[SurfaceType]{Code: "GVH_HEL", Value: SurfaceClosedPavedWithSlope},
	element.EnumPair[SurfaceType]{Code: "GVH_VLA", Value: SurfaceClosedPavedFlat},
	element.EnumPair[SurfaceType]{Code: "GVH_VLU", Value: SurfaceClosedPavedFlatStretched},
	element.EnumPair[SurfaceType]{Code: "OVH_HEL", Value: SurfaceOpenPavedWithSlope},
	element.EnumPair[SurfaceType]{Code: "OVH_VLA", Value: SurfaceOpenPavedFlat},
	element.EnumPair[SurfaceType]{Code: "OVH_VLU", Value: SurfaceOpenPavedFlatStretched},
	element.EnumPair[SurfaceType]{Code: "DAK_HEL", Value: SurfaceRoofWithSlope},
	element.EnumPair[SurfaceType]{Code: "DAK_VLA", Value: SurfaceRoofFlat},
	element.EnumPair[SurfaceType]{Code: "DAK_VLU", Value: SurfaceRoofFlatStretched},
	element.EnumPair[SurfaceType]{Code: "ONV_HEL", Value: SurfaceUnpavedWithSlope},
	element.EnumPair[SurfaceType]{Code: "ONV_VLA", Value: SurfaceUnpavedFlat},
	element.EnumPair[SurfaceType]{Code: "ONV_VLU", Value: SurfaceUnpavedFlatStretched},
)

// DischargeType separates dry weather flow from lateral discharges.
type DischargeType int

const (
	DischargeDryWeather DischargeType = iota
	DischargeLateral
)

func (d DischargeType) String() string {
	if d == DischargeLateral {
		return "Lateral"
	}
	return "DryWeather"
}

// DischargeTypeCodes maps GWSW discharge type codes.
var DischargeTypeCodes = element.NewEnumTable("discharge type",
	element.EnumPair[DischargeType]{Code: "DWA", Value: DischargeDryWeather},
	element.EnumPair[DischargeType]{Code: "LAT", Value: DischargeLateral},
)

// DistributionType is the kind of a Verloop distribution.
type DistributionType int

const (
	DistributionDryWeather DistributionType = iota
	DistributionLateral
)

func (d DistributionType) String() string {
	if d == DistributionLateral {
		return "Lateral"
	}
	return "DryWeather"
}

// DistributionTypeCodes maps GWSW distribution type codes.
var DistributionTypeCodes = element.NewEnumTable("distribution type",
	element.EnumPair[DistributionType]{Code: "DWA", Value: DistributionDryWeather},
	element.EnumPair[DistributionType]{Code: "LAT", Value: DistributionLateral},
)
