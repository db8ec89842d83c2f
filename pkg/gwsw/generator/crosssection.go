package generator

import (
	"math"
	"strings"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/element"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
)

// Default profile of a crosssection whose shape is missing or unknown.
const (
	DefaultProfileDiameter = 0.1
	DefaultProfileMaterial = feature.Concrete
)

// proportionTolerance is the allowed height deviation in millimetres.
const proportionTolerance = 0.1

// shapeDefaults are the dimensions, in metres, used when a profile is
// incomplete.
type shapeDefaults struct {
	width, height float64
	// ratio is the nominal height/width proportion. Zero means the height
	// does not follow from the width.
	ratio float64
	// ratioName is used in the proportion warning, e.g. "1:0.634".
	ratioName string
	// checkRatio enables the advisory proportion check.
	checkRatio bool
}

var widthHeightDefaults = map[feature.Shape]shapeDefaults{
	feature.ShapeRectangle:   {width: 1.0, height: 1.0},
	feature.ShapeEllipse:     {width: 1.0, height: 1.0},
	feature.ShapeUShape:      {width: 1.0, height: 1.0},
	feature.ShapeArch:        {width: 1.0, height: 2.0},
	feature.ShapeEgg:         {width: 2.0, height: 3.0, ratio: 1.5, ratioName: "2:3", checkRatio: true},
	feature.ShapeInvertedEgg: {width: 2.0, height: 3.0, ratio: 1.5, ratioName: "2:3", checkRatio: true},
	feature.ShapeCunette:     {width: 1.0, height: 0.634, ratio: 0.634, ratioName: "1:0.634", checkRatio: true},
}

const (
	defaultCircleDiameter    = 0.16
	defaultTrapezoidWidth    = 10.0
	defaultTrapezoidSlope    = 2.0
	trapezoidFlowWidthFactor = 2.0
	missingProfileMessage    = "Sewer profile '%s' is missing its %s. Default profile property values are used for this profile."
	proportionMessage        = "Sewer profile '%s' (%s) has width %.1f mm and height %.1f mm, which does not match the nominal proportion %s (expected height %.1f mm). The given values are used."
	unknownShapeMessage      = "Sewer profile '%s' has unknown shape '%s'. A default profile is used: circle, diameter %.1f m, material %s."
	missingShapeMessage      = "Sewer profile '%s' has no shape. A default profile is used: circle, diameter %.1f m, material %s."
)

// profileGenerator builds a crosssection of one shape.
type profileGenerator struct {
	acc   element.Accessor
	shape feature.Shape
}

func profile(shape feature.Shape) Constructor {
	return func(acc element.Accessor) Generator {
		return &profileGenerator{acc: acc, shape: shape}
	}
}

func (g *profileGenerator) Generate(el *element.Element) (feature.Feature, error) {
	name, ok := requireID(g.acc, el, "CROSS_SECTION_ID")
	if !ok {
		return nil, nil
	}
	cs := &feature.CrossSection{
		Location: location(el),
		Name:     name,
		Shape:    g.shape,
		Material: element.Enum(g.acc, el, "MATERIAL", feature.MaterialCodes, feature.MaterialUnknown),
	}

	switch g.shape {
	case feature.ShapeCircle:
		g.circle(el, cs)
	case feature.ShapeTrapezoid:
		g.trapezoid(el, cs)
	default:
		g.widthHeight(el, cs)
	}
	return cs, nil
}

func (g *profileGenerator) circle(el *element.Element, cs *feature.CrossSection) {
	d, ok := g.acc.OptionalFloat(el, "WIDTH")
	if !ok {
		warn(g.acc, el, "WIDTH", missingProfileMessage, cs.Name, "diameter")
		cs.Width = defaultCircleDiameter
		return
	}
	cs.Width = mm(d)
}

func (g *profileGenerator) widthHeight(el *element.Element, cs *feature.CrossSection) {
	def := widthHeightDefaults[g.shape]
	w, hasWidth := g.acc.OptionalFloat(el, "WIDTH")
	h, hasHeight := g.acc.OptionalFloat(el, "HEIGHT")

	switch {
	case !hasWidth:
		warn(g.acc, el, "WIDTH", missingProfileMessage, cs.Name, "width")
		cs.Width, cs.Height = def.width, def.height
	case !hasHeight:
		warn(g.acc, el, "HEIGHT", missingProfileMessage, cs.Name, "height")
		cs.Width = mm(w)
		if def.ratio > 0 {
			cs.Height = def.ratio * cs.Width
		} else {
			cs.Height = def.height
		}
	default:
		cs.Width, cs.Height = mm(w), mm(h)
		if def.checkRatio {
			nominal := def.ratio * w
			if math.Abs(h-nominal) > proportionTolerance {
				warn(g.acc, el, "HEIGHT", proportionMessage, cs.Name, strings.ToLower(g.shape.String()), w, h, def.ratioName, nominal)
			}
		}
	}

	if g.shape == feature.ShapeArch {
		cs.ArcHeight = cs.Height
	}
}

func (g *profileGenerator) trapezoid(el *element.Element, cs *feature.CrossSection) {
	var missing []string

	w, ok := g.acc.OptionalFloat(el, "WIDTH")
	if ok {
		cs.Width = mm(w)
	} else {
		missing = append(missing, "bottom width")
		cs.Width = defaultTrapezoidWidth
	}

	s1, ok1 := g.acc.OptionalFloat(el, "SLOPE_1")
	s2, ok2 := g.acc.OptionalFloat(el, "SLOPE_2")
	switch {
	case ok1 && ok2:
		cs.Slope = (s1 + s2) / 2
	case ok1:
		cs.Slope = s1
	case ok2:
		cs.Slope = s2
	default:
		missing = append(missing, "slope")
		cs.Slope = defaultTrapezoidSlope
	}
	cs.MaxFlowWidth = trapezoidFlowWidthFactor * cs.Width

	if len(missing) > 0 {
		warn(g.acc, el, "WIDTH", missingProfileMessage, cs.Name, strings.Join(missing, " and "))
	}
}

// defaultProfile is the fallback for a missing or unknown shape code.
type defaultProfile struct {
	acc element.Accessor
}

func newDefaultProfile(acc element.Accessor) Generator {
	return &defaultProfile{acc: acc}
}

func (g *defaultProfile) Generate(el *element.Element) (feature.Feature, error) {
	name, ok := requireID(g.acc, el, "CROSS_SECTION_ID")
	if !ok {
		return nil, nil
	}
	if code := g.acc.String(el, "CROSS_SECTION_SHAPE", ""); code != "" {
		warn(g.acc, el, "CROSS_SECTION_SHAPE", unknownShapeMessage, name, code, DefaultProfileDiameter, DefaultProfileMaterial)
	} else {
		warn(g.acc, el, "CROSS_SECTION_SHAPE", missingShapeMessage, name, DefaultProfileDiameter, DefaultProfileMaterial)
	}
	return NewDefaultCrossSection(name, DefaultProfileDiameter, DefaultProfileMaterial, location(el)), nil
}

// NewDefaultCrossSection returns a circular default profile.
func NewDefaultCrossSection(name string, diameter float64, material feature.Material, loc feature.Location) *feature.CrossSection {
	return &feature.CrossSection{
		Location: loc,
		Name:     name,
		Shape:    feature.ShapeCircle,
		Material: material,
		Width:    diameter,
		Height:   diameter,
		Default:  true,
	}
}
