package generator

import (
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/element"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
)

// compartmentDraft is a compartment under construction. Steps receive and
// return it by value.
type compartmentDraft struct {
	el  *element.Element
	acc element.Accessor
	c   feature.Compartment
}

type compartmentStep func(compartmentDraft) compartmentDraft

// compartmentSteps run in this order. Length and floodable area read the
// shape and storage type resolved by earlier steps.
var compartmentSteps = []compartmentStep{
	withGeometry,
	withManhole,
	withShape,
	withWidth,
	withLength,
	withLevels,
	withStorageType,
	withFloodableArea,
	withMaterial,
	withInstallationDate,
}

// buildCompartment runs the step pipeline over el. It reports false when el
// has no identifier.
func buildCompartment(acc element.Accessor, el *element.Element) (feature.Compartment, bool) {
	name, ok := requireID(acc, el, "UNIQUE_ID")
	if !ok {
		return feature.Compartment{}, false
	}
	d := compartmentDraft{
		el:  el,
		acc: acc,
		c:   feature.Compartment{Location: location(el), Name: name},
	}
	for _, step := range compartmentSteps {
		d = step(d)
	}
	return d.c, true
}

// withGeometry needs both coordinates; otherwise the geometry stays nil.
func withGeometry(d compartmentDraft) compartmentDraft {
	x, okX := d.acc.OptionalFloat(d.el, "NODE_XCOORD")
	y, okY := d.acc.OptionalFloat(d.el, "NODE_YCOORD")
	if okX && okY {
		d.c.Geometry = &feature.Point{X: x, Y: y}
	}
	return d
}

// withManhole links the compartment to its parent manhole. Without a manhole
// id the compartment is its own manhole.
func withManhole(d compartmentDraft) compartmentDraft {
	d.c.ManholeID = d.acc.String(d.el, "MANHOLE_ID", d.c.Name)
	d.c.SewerSystemID = d.acc.String(d.el, "SEWER_SYSTEM_ID", "")
	return d
}

// withShape leaves a blank shape unknown with an info entry. Unrecognised
// codes are warned about by element.Enum.
func withShape(d compartmentDraft) compartmentDraft {
	if !d.acc.Has(d.el, "NODE_SHAPE") {
		d.c.Shape = feature.NodeShapeUnknown
		if d.acc.Sink != nil {
			d.acc.Sink.Log(report.Entry{
				Level:   zapcore.InfoLevel,
				Message: "Manhole '" + d.c.Name + "' has no shape; its shape is unknown.",
				File:    d.el.File,
				Line:    d.el.Line,
				Element: d.el.TypeName,
				Key:     "NODE_SHAPE",
			})
		}
		return d
	}
	d.c.Shape = element.Enum(d.acc, d.el, "NODE_SHAPE", feature.NodeShapeCodes, feature.NodeShapeUnknown)
	return d
}

func withWidth(d compartmentDraft) compartmentDraft {
	d.c.Width = mm(d.acc.Float(d.el, "NODE_WIDTH", 0))
	return d
}

// withLength requires the shape. Round compartments copy the width; unknown
// shapes keep a zero length.
func withLength(d compartmentDraft) compartmentDraft {
	switch d.c.Shape {
	case feature.NodeShapeRectangular, feature.NodeShapeSquare:
		d.c.Length = mm(d.acc.Float(d.el, "NODE_LENGTH", 0))
	case feature.NodeShapeRound:
		d.c.Length = d.c.Width
	}
	return d
}

func withLevels(d compartmentDraft) compartmentDraft {
	d.c.BottomLevel = d.acc.Float(d.el, "BOTTOM_LEVEL", 0)
	d.c.SurfaceLevel = d.acc.Float(d.el, "SURFACE_LEVEL", 0)
	d.c.InitialWaterLevel = d.acc.Float(d.el, "INITIAL_WATER_LEVEL", d.c.BottomLevel)
	return d
}

func withStorageType(d compartmentDraft) compartmentDraft {
	d.c.StorageType = element.Enum(d.acc, d.el, "SURFACE_SCHEMATISATION", feature.StorageTypeCodes, feature.StorageReservoir)
	return d
}

// withFloodableArea requires the storage type; only reservoirs flood.
func withFloodableArea(d compartmentDraft) compartmentDraft {
	if d.c.StorageType == feature.StorageReservoir {
		d.c.FloodableArea = d.acc.Float(d.el, "FLOODABLE_AREA", 0)
	}
	return d
}

func withMaterial(d compartmentDraft) compartmentDraft {
	d.c.Material = element.Enum(d.acc, d.el, "NODE_MATERIAL", feature.MaterialCodes, feature.MaterialUnknown)
	return d
}

func withInstallationDate(d compartmentDraft) compartmentDraft {
	d.c.InstallationDate = d.acc.Date(d.el, "INSTALLATION_DATE", time.Time{})
	return d
}

func newCompartment(acc element.Accessor) Generator {
	return Func(func(el *element.Element) (feature.Feature, error) {
		c, ok := buildCompartment(acc, el)
		if !ok {
			return nil, nil
		}
		return &c, nil
	})
}

func newOutlet(acc element.Accessor) Generator {
	return Func(func(el *element.Element) (feature.Feature, error) {
		c, ok := buildCompartment(acc, el)
		if !ok {
			return nil, nil
		}
		return &feature.OutletCompartment{Compartment: c}, nil
	})
}

// newStructureOutlet reads the surface water level of an outlet structure.
// The rest of the compartment is taken from the node during assembly.
func newStructureOutlet(acc element.Accessor) Generator {
	return Func(func(el *element.Element) (feature.Feature, error) {
		name, ok := requireID(acc, el, "UNIQUE_ID")
		if !ok {
			return nil, nil
		}
		return &feature.OutletCompartment{
			Compartment:       feature.Compartment{Location: location(el), Name: name, ManholeID: name},
			SurfaceWaterLevel: acc.Float(el, "SURFACE_WATER_LEVEL", 0),
			FromStructure:     true,
		}, nil
	})
}
