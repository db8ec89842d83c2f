package assembler

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/internal/pipeline"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/generator"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/network"
)

const (
	// DefaultConnectionDiameter is the diameter of the profile given to a
	// connection without a usable cross-section id.
	DefaultConnectionDiameter = 0.4
	// FallbackLength is used when a connection has no length and its
	// endpoints coincide.
	FallbackLength = 0.1
	// UsageName is the base name of cross-section usages.
	UsageName = "SewerProfile_"
	// DefaultProfilePrefix prefixes the per-connection default profiles.
	DefaultProfilePrefix = "Default_"
	// LateralPrefix prefixes the names of lateral sources.
	LateralPrefix = "lat_"

	zeroLength = 1e-6
)

func (a *Assembler) geometry(ctx context.Context, s *state) error {
	return a.forEachEdge(ctx, "geometry", s, func(e *network.Edge) {
		if !e.HasGeometry() {
			lineBetween(e)
		}
	})
}

// lineBetween sets a straight geometry when both endpoints have a position.
func lineBetween(e *network.Edge) bool {
	if e.Source == nil || e.Target == nil {
		return false
	}
	src, tgt := e.Source.Base().Geometry, e.Target.Base().Geometry
	if src == nil || tgt == nil {
		return false
	}
	e.Geometry = []feature.Point{*src, *tgt}
	return true
}

// reconnect resolves the endpoints of edges without geometry by normalised
// name, first against compartment names and then against manhole ids.
func (a *Assembler) reconnect(ctx context.Context, s *state) error {
	compartments := make(map[string]feature.Node)
	for _, n := range s.g.Nodes() {
		key := normalizeName(n.FeatureName())
		if _, ok := compartments[key]; !ok {
			compartments[key] = n
		}
	}
	manholes := make(map[string]feature.Node)
	for _, id := range s.manholeOrder {
		nodes := s.manholeNodes[id]
		if len(nodes) == 0 {
			continue
		}
		key := normalizeName(id)
		if _, ok := manholes[key]; !ok {
			manholes[key] = nodes[0]
		}
	}
	find := func(id string) feature.Node {
		key := normalizeName(id)
		if key == "" {
			return nil
		}
		if n, ok := compartments[key]; ok {
			return n
		}
		return manholes[key]
	}

	return a.forEachEdge(ctx, "reconnect", s, func(e *network.Edge) {
		if e.HasGeometry() {
			return
		}
		if n := find(e.SourceID); n != nil {
			e.Source = n
		}
		if n := find(e.TargetID); n != nil {
			e.Target = n
		}
		lineBetween(e)
	})
}

func (a *Assembler) zeroLength(ctx context.Context, s *state) error {
	return a.forEachEdge(ctx, "zero_length", s, func(e *network.Edge) {
		if math.Abs(e.Length) >= zeroLength {
			return
		}
		length := endpointDistance(e)
		if length < zeroLength {
			length = FallbackLength
		}
		e.Length = length
		a.log(zapcore.DebugLevel, e.Location, fmt.Sprintf("Connection '%s' has no length; length set to %.3f m", e.Name, length))
	})
}

func endpointDistance(e *network.Edge) float64 {
	if e.Source == nil || e.Target == nil {
		return 0
	}
	src, tgt := e.Source.Base().Geometry, e.Target.Base().Geometry
	if src == nil || tgt == nil {
		return 0
	}
	return src.Distance(*tgt)
}

func connectionNoun(e *network.Edge) string {
	if e.IsPipe() {
		return "pipe"
	}
	return "sewer connection"
}

// crossSections binds every edge to a shared definition, or to a fresh
// default profile when its cross-section id is missing or unknown.
func (a *Assembler) crossSections(ctx context.Context, s *state) error {
	return a.forEachEdge(ctx, "cross_sections", s, func(e *network.Edge) {
		def, ok := s.g.Definition(e.CrossSectionID)
		switch {
		case e.CrossSectionID == "":
			a.warn(e.Location, "No cross-section id defined for %s '%s'. A default profile is used: circle, diameter %.1f m.",
				connectionNoun(e), e.Name, DefaultConnectionDiameter)
			def = a.defaultProfile(e)
		case !ok:
			a.warn(e.Location, "Cross-section '%s' of %s '%s' could not be found. A default profile is used: circle, diameter %.1f m.",
				e.CrossSectionID, connectionNoun(e), e.Name, DefaultConnectionDiameter)
			def = a.defaultProfile(e)
		}
		s.g.SetUsage(e, &network.CrossSectionUsage{Name: UsageName, Edge: e.Name, Definition: def})
	})
}

func (a *Assembler) defaultProfile(e *network.Edge) *feature.CrossSection {
	a.cfg.Metrics.DefaultProfileAssigned()
	return generator.NewDefaultCrossSection(DefaultProfilePrefix+e.Name, DefaultConnectionDiameter, feature.MaterialUnknown, e.Location)
}

func (a *Assembler) pipeMaterial(ctx context.Context, s *state) error {
	return a.forEachEdge(ctx, "pipe_material", s, func(e *network.Edge) {
		if e.IsPipe() && e.CrossSection != nil && e.CrossSection.Definition != nil {
			e.Material = e.CrossSection.Definition.Material
		}
	})
}

// orifices derives the gate opening and crest width of orifice edges from
// their cross-section definition.
func (a *Assembler) orifices(ctx context.Context, s *state) error {
	return a.forEachEdge(ctx, "orifices", s, func(e *network.Edge) {
		if e.Kind != feature.KindOrifice || e.CrossSection == nil || e.CrossSection.Definition == nil {
			return
		}
		if e.Orifice == nil {
			e.Orifice = &feature.Orifice{ContractionCoefficient: generator.DefaultContractionCoefficient}
		}
		def, o := e.CrossSection.Definition, e.Orifice
		switch {
		case def.Shape.HasWidthAndHeight():
			o.GateOpening = def.Height
			o.CrestWidth = def.Width
		case def.Shape == feature.ShapeCircle:
			d := def.Diameter()
			o.CrestWidth = math.Sqrt(d * d / 4 * math.Pi)
			o.GateOpening = o.CrestWidth
			o.LowerEdgeLevel = o.CrestLevel + o.CrestWidth
		default:
			a.warn(e.Location, "Shape '%s' is not fully supported for orifice '%s'. The gate opening is set to the highest point of the profile and the crest width to its maximum width.",
				def.Shape, e.Name)
			o.GateOpening = def.HighestPoint()
			o.CrestWidth = def.MaxWidth()
		}
	})
}

func (a *Assembler) danglingEdges(_ context.Context, s *state) error {
	removed := s.g.RemoveEdges(func(e *network.Edge) bool {
		return e.Source == nil || e.Target == nil
	})
	for _, e := range removed {
		end := "target"
		if e.Source == nil {
			end = "source"
		}
		a.warn(e.Location, "Could not find %s node for connection '%s'. Removing it from the model.", end, e.Name)
	}
	a.cfg.Metrics.EdgesRemoved(len(removed))
	return nil
}

// uniqueNames renames duplicate node, edge and usage names in attach order
// and rewrites the references to renamed nodes. Default profiles take the
// final name of their edge.
func (a *Assembler) uniqueNames(_ context.Context, s *state) error {
	nodes := s.g.Nodes()
	renamed := uniqueNames(namesOf(len(nodes), func(i int) string { return nodes[i].FeatureName() }))
	for i, n := range nodes {
		if b := n.Base(); b.Name != renamed[i] {
			a.warn(b.Location, "Duplicate node name '%s' renamed to '%s'", b.Name, renamed[i])
			b.Name = renamed[i]
		}
	}

	edges := s.g.Edges()
	renamed = uniqueNames(namesOf(len(edges), func(i int) string { return edges[i].Name }))
	for i, e := range edges {
		if e.Name != renamed[i] {
			a.warn(e.Location, "Duplicate connection name '%s' renamed to '%s'", e.Name, renamed[i])
			e.Name = renamed[i]
		}
		if e.Source != nil {
			e.SourceID = e.Source.FeatureName()
		}
		if e.Target != nil {
			e.TargetID = e.Target.FeatureName()
		}
	}

	usages := s.g.Usages()
	renamed = uniqueNames(namesOf(len(usages), func(i int) string { return usages[i].Name }))
	for i, u := range usages {
		u.Name = renamed[i]
	}
	for _, e := range edges {
		if e.CrossSection == nil {
			continue
		}
		e.CrossSection.Edge = e.Name
		if def := e.CrossSection.Definition; def != nil && !s.isShared(def) {
			def.Name = DefaultProfilePrefix + e.Name
		}
	}

	s.g.SetManholes(buildManholes(s))
	return nil
}

// isShared reports whether def is one of the graph's shared definitions
// rather than a per-connection default profile.
func (s *state) isShared(def *feature.CrossSection) bool {
	d, ok := s.g.Definition(def.Name)
	return ok && d == def
}

func namesOf(n int, name func(int) string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = name(i)
	}
	return out
}

// uniqueNames returns names with every repeated name suffixed by _1, _2 and
// so on. The first occurrence keeps its name. Suffixes skip names that occur
// anywhere in the input or were handed out before.
func uniqueNames(names []string) []string {
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		if !seen[n] {
			seen[n] = true
			out[i] = n
			continue
		}
		for k := 1; ; k++ {
			candidate := fmt.Sprintf("%s_%d", n, k)
			if !taken[candidate] {
				taken[candidate] = true
				seen[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

// rainfallRunoff aggregates surfaces and discharges into catchments and
// links lateral discharges to the network.
func (a *Assembler) rainfallRunoff(ctx context.Context, s *state) error {
	catchments := aggregateCatchments(s.g.Surfaces(), s.g.Discharges())

	known := make(map[string]bool)
	for _, d := range s.g.DryWeatherFlows() {
		known[d.Name] = true
	}
	for _, d := range s.g.Discharges() {
		if d.Type == feature.DischargeDryWeather && d.DistributionID != "" &&
			d.DistributionID != feature.DefaultDryWeatherFlow && !known[d.DistributionID] {
			a.warn(d.Location, "Dry weather flow distribution '%s' of catchment '%s' is not defined", d.DistributionID, d.CatchmentID)
		}
	}
	s.g.SetCatchments(catchments)

	var lateral []*feature.Discharge
	for _, d := range s.g.Discharges() {
		if d.Type == feature.DischargeLateral {
			lateral = append(lateral, d)
		}
	}
	if len(lateral) == 0 {
		return nil
	}

	opts := append([]pipeline.Option{
		pipeline.WithName("assemble rainfall_runoff"),
		pipeline.WithLogger(a.cfg.Logger),
	}, a.cfg.Pipeline...)
	res := pipeline.Run(ctx, lateral, func(_ context.Context, d *feature.Discharge) (*network.LateralSource, error) {
		return a.linkLateral(s.g, d), nil
	}, opts...)
	var linked []*network.LateralSource
	for _, l := range res.Collect() {
		if l != nil {
			linked = append(linked, l)
		}
	}
	renamed := uniqueNames(namesOf(len(linked), func(i int) string { return linked[i].Name }))
	for i, l := range linked {
		l.Name = renamed[i]
		s.g.AddLateral(l)
	}
	if res.Cancelled {
		return errors.New(errors.ErrorTypeCancelled, "assembly cancelled during pass rainfall_runoff")
	}
	return nil
}

func (a *Assembler) linkLateral(g *network.Graph, d *feature.Discharge) *network.LateralSource {
	l := &network.LateralSource{Name: LateralPrefix + d.CatchmentID, Discharge: d}
	if e, ok := g.Edge(d.CatchmentID); ok {
		l.Edge = e.Name
		return l
	}
	if n, ok := g.Node(d.CatchmentID); ok {
		l.Node = n.FeatureName()
		return l
	}
	a.warn(d.Location, "Lateral discharge '%s' could not be linked to a connection or node and is skipped", d.CatchmentID)
	return nil
}

func aggregateCatchments(surfaces []*feature.Surface, discharges []*feature.Discharge) []*network.Catchment {
	var order []*network.Catchment
	byName := make(map[string]*network.Catchment)
	get := func(name string) *network.Catchment {
		c, ok := byName[name]
		if !ok {
			c = &network.Catchment{Name: name}
			byName[name] = c
			order = append(order, c)
		}
		return c
	}
	for _, sf := range surfaces {
		c := get(sf.CatchmentID)
		if c.MeteoStationID == "" {
			c.MeteoStationID = sf.MeteoStationID
		}
		if int(sf.SurfaceType) < len(c.Areas) {
			c.Areas[sf.SurfaceType] += sf.Area
		}
	}
	for _, d := range discharges {
		c := get(d.CatchmentID)
		c.PollutionUnits += d.PollutionUnits
		if d.DistributionID != "" && !contains(c.DryWeatherFlowIDs, d.DistributionID) {
			c.DryWeatherFlowIDs = append(c.DryWeatherFlowIDs, d.DistributionID)
		}
	}
	return order
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
