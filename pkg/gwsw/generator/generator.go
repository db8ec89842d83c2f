// Package generator turns decoded GWSW elements into network features.
//
// The Factory is a registry keyed by element type and discriminator code.
// Every generator reads its element through element.Accessor, so missing or
// malformed values fall back to defaults and end up in the run report.
package generator

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/element"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
)

// Generator builds one feature from an element. A nil feature with a nil
// error means the element was skipped and the reason was logged.
type Generator interface {
	Generate(el *element.Element) (feature.Feature, error)
}

// Func adapts a function to Generator.
type Func func(el *element.Element) (feature.Feature, error)

// Generate implements Generator.
func (f Func) Generate(el *element.Element) (feature.Feature, error) { return f(el) }

// Constructor creates a generator bound to an accessor.
type Constructor func(acc element.Accessor) Generator

// dispatch selects a generator by the code stored under key.
type dispatch struct {
	key      string
	byCode   map[string]Generator
	fallback Generator
}

// Factory maps element type and discriminator code to a generator.
type Factory struct {
	acc      element.Accessor
	registry map[string]*dispatch
}

// Registration binds a discriminator code to a constructor. An empty Code
// registers the fallback of the element type.
type Registration struct {
	ElementType   string
	Discriminator string
	Code          string
	New           Constructor
}

// DefaultRegistrations returns the built-in GWSW generators.
func DefaultRegistrations() []Registration {
	regs := []Registration{
		{ElementType: element.TypeNode, Discriminator: "NODE_TYPE", New: newCompartment},
		{ElementType: element.TypeNode, Discriminator: "NODE_TYPE", Code: "UIT", New: newOutlet},

		{ElementType: element.TypeConnection, Discriminator: "PIPE_TYPE", New: connection(feature.KindGeneric)},
		{ElementType: element.TypeConnection, Discriminator: "PIPE_TYPE", Code: "GSL", New: connection(feature.KindPipe)},
		{ElementType: element.TypeConnection, Discriminator: "PIPE_TYPE", Code: "ITR", New: connection(feature.KindPipe)},
		{ElementType: element.TypeConnection, Discriminator: "PIPE_TYPE", Code: "OPL", New: connection(feature.KindPipe)},
		{ElementType: element.TypeConnection, Discriminator: "PIPE_TYPE", Code: "DRL", New: connection(feature.KindOrifice)},
		{ElementType: element.TypeConnection, Discriminator: "PIPE_TYPE", Code: "PMP", New: connection(feature.KindPump)},
		{ElementType: element.TypeConnection, Discriminator: "PIPE_TYPE", Code: "OVS", New: connection(feature.KindWeir)},

		{ElementType: element.TypeStructure, Discriminator: "STRUCTURE_TYPE", New: structure(feature.KindGeneric)},
		{ElementType: element.TypeStructure, Discriminator: "STRUCTURE_TYPE", Code: "PMP", New: structure(feature.KindPump)},
		{ElementType: element.TypeStructure, Discriminator: "STRUCTURE_TYPE", Code: "OVS", New: structure(feature.KindWeir)},
		{ElementType: element.TypeStructure, Discriminator: "STRUCTURE_TYPE", Code: "DRL", New: structure(feature.KindOrifice)},
		{ElementType: element.TypeStructure, Discriminator: "STRUCTURE_TYPE", Code: "UIT", New: newStructureOutlet},

		{ElementType: element.TypeCrosssection, Discriminator: "CROSS_SECTION_SHAPE", New: newDefaultProfile},

		{ElementType: element.TypeSurface, New: newSurface},
		{ElementType: element.TypeRunoff, New: newRunoff},
		{ElementType: element.TypeDistribution, New: newDistribution},
		{ElementType: element.TypeDischarge, New: newDischarge},
	}
	for _, code := range feature.ShapeCodes.Codes() {
		shape, _ := feature.ShapeCodes.Lookup(code)
		regs = append(regs, Registration{
			ElementType:   element.TypeCrosssection,
			Discriminator: "CROSS_SECTION_SHAPE",
			Code:          code,
			New:           profile(shape),
		})
	}
	return regs
}

// NewFactory builds a factory with the default registrations. Warnings of
// every generator go to sink.
func NewFactory(sink report.Sink, extra ...Registration) *Factory {
	f := &Factory{
		acc:      element.Accessor{Sink: sink},
		registry: make(map[string]*dispatch),
	}
	for _, r := range append(DefaultRegistrations(), extra...) {
		f.Register(r)
	}
	return f
}

// Register adds or replaces a registration.
func (f *Factory) Register(r Registration) {
	d, ok := f.registry[r.ElementType]
	if !ok {
		d = &dispatch{key: r.Discriminator, byCode: make(map[string]Generator)}
		f.registry[r.ElementType] = d
	}
	g := r.New(f.acc)
	if r.Code == "" {
		d.fallback = g
		return
	}
	d.byCode[element.NormalizeCode(r.Code)] = g
}

// Select returns the generator for el, or nil when no generator applies.
func (f *Factory) Select(el *element.Element) Generator {
	if el == nil {
		return nil
	}
	d, ok := f.registry[el.TypeName]
	if !ok {
		return nil
	}
	if d.key != "" {
		if g, ok := d.byCode[element.NormalizeCode(f.acc.String(el, d.key, ""))]; ok {
			return g
		}
	}
	return d.fallback
}

// Generate selects and runs the generator for el. Elements without a
// generator yield nil.
func (f *Factory) Generate(el *element.Element) (feature.Feature, error) {
	g := f.Select(el)
	if g == nil {
		return nil, nil
	}
	feat, err := g.Generate(el)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeGeneration,
			fmt.Sprintf("could not generate %s from %s line %d", el.TypeName, el.File, el.Line)).
			WithDetail("element", el.TypeName).
			WithDetail("line", el.Line)
	}
	return feat, nil
}

// warn logs a warning located at el.
func warn(acc element.Accessor, el *element.Element, key, format string, args ...interface{}) {
	if acc.Sink == nil {
		return
	}
	acc.Sink.Log(report.Entry{
		Level:   zapcore.WarnLevel,
		Message: fmt.Sprintf(format, args...),
		File:    el.File,
		Line:    el.Line,
		Element: el.TypeName,
		Key:     key,
		Value:   el.Value(key),
	})
}

// requireID returns the identifier under key, or logs and reports false.
func requireID(acc element.Accessor, el *element.Element, key string) (string, bool) {
	id := acc.String(el, key, "")
	if id == "" {
		warn(acc, el, key, "%s on line %d of %s has no %s and is skipped", el.TypeName, el.Line, el.File, key)
		return "", false
	}
	return id, true
}

func location(el *element.Element) feature.Location {
	return feature.Location{File: el.File, Line: el.Line}
}

// mm converts millimetres to metres.
func mm(v float64) float64 { return v / 1000 }
