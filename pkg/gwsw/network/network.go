// Package network holds the assembled sewer network.
//
// A Graph is filled by the assembler. Every mutation takes the graph lock,
// so assembly passes may run over the edges in parallel.
package network

import (
	"sort"
	"sync"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
)

// Manhole groups the compartments sharing a parent manhole id.
type Manhole struct {
	Name         string         `json:"name" yaml:"name"`
	Compartments []string       `json:"compartments" yaml:"compartments"`
	Position     *feature.Point `json:"position,omitempty" yaml:"position,omitempty"`
}

// CrossSectionUsage binds an edge to a shared cross-section definition.
type CrossSectionUsage struct {
	Name       string                `json:"name" yaml:"name"`
	Edge       string                `json:"edge" yaml:"edge"`
	Definition *feature.CrossSection `json:"-" yaml:"-"`
}

// DefinitionName returns the name of the shared definition.
func (u *CrossSectionUsage) DefinitionName() string {
	if u == nil || u.Definition == nil {
		return ""
	}
	return u.Definition.Name
}

// Edge is a sewer connection with resolved endpoints.
type Edge struct {
	*feature.SewerConnection
	Source       feature.Node       `json:"-" yaml:"-"`
	Target       feature.Node       `json:"-" yaml:"-"`
	Geometry     []feature.Point    `json:"geometry,omitempty" yaml:"geometry,omitempty"`
	CrossSection *CrossSectionUsage `json:"cross_section,omitempty" yaml:"cross_section,omitempty"`
}

// HasGeometry reports whether the edge has a line geometry.
func (e *Edge) HasGeometry() bool { return len(e.Geometry) >= 2 }

// Catchment aggregates the surfaces and discharges of one catchment id.
type Catchment struct {
	Name              string                            `json:"name" yaml:"name"`
	MeteoStationID    string                            `json:"meteo_station,omitempty" yaml:"meteo_station,omitempty"`
	Areas             [feature.SurfaceTypeCount]float64 `json:"areas" yaml:"areas"`
	DryWeatherFlowIDs []string                          `json:"dry_weather_flow,omitempty" yaml:"dry_weather_flow,omitempty"`
	PollutionUnits    int                               `json:"pollution_units" yaml:"pollution_units"`
}

// TotalArea returns the summed area of all surface types.
func (c *Catchment) TotalArea() float64 {
	var sum float64
	for _, a := range c.Areas {
		sum += a
	}
	return sum
}

// LateralSource is a lateral discharge attached to an edge or a node.
type LateralSource struct {
	Name      string             `json:"name" yaml:"name"`
	Discharge *feature.Discharge `json:"discharge" yaml:"discharge"`
	Edge      string             `json:"edge,omitempty" yaml:"edge,omitempty"`
	Node      string             `json:"node,omitempty" yaml:"node,omitempty"`
}

// Stats counts the contents of a graph.
type Stats struct {
	Nodes           int `json:"nodes" yaml:"nodes"`
	Manholes        int `json:"manholes" yaml:"manholes"`
	Edges           int `json:"edges" yaml:"edges"`
	Definitions     int `json:"cross_section_definitions" yaml:"cross_section_definitions"`
	Usages          int `json:"cross_section_usages" yaml:"cross_section_usages"`
	Catchments      int `json:"catchments" yaml:"catchments"`
	RunoffDefs      int `json:"runoff_definitions" yaml:"runoff_definitions"`
	DryWeatherFlows int `json:"dry_weather_flows" yaml:"dry_weather_flows"`
	Laterals        int `json:"laterals" yaml:"laterals"`
}

// Graph is the sewer network plus its rainfall-runoff collections.
type Graph struct {
	mu sync.RWMutex

	nodes    []feature.Node
	manholes []*Manhole

	edges []*Edge

	definitions map[string]*feature.CrossSection
	defOrder    []string

	catchments      []*Catchment
	runoff          map[feature.SurfaceType]*feature.RunoffDefinition
	dryWeatherFlows []*feature.DryWeatherFlowDefinition
	discharges      []*feature.Discharge
	surfaces        []*feature.Surface
	laterals        []*LateralSource
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		definitions: make(map[string]*feature.CrossSection),
		runoff:      make(map[feature.SurfaceType]*feature.RunoffDefinition),
	}
}

// AddNode appends n.
func (g *Graph) AddNode(n feature.Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = append(g.nodes, n)
}

// ReplaceNode swaps the first node named name for n. It reports false when no
// such node exists.
func (g *Graph) ReplaceNode(name string, n feature.Node) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, old := range g.nodes {
		if old.FeatureName() == name {
			g.nodes[i] = n
			return true
		}
	}
	return false
}

// Nodes returns the nodes in attach order.
func (g *Graph) Nodes() []feature.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]feature.Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Node returns the first node named name.
func (g *Graph) Node(name string) (feature.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, n := range g.nodes {
		if n.FeatureName() == name {
			return n, true
		}
	}
	return nil, false
}

// SetManholes replaces the manhole list.
func (g *Graph) SetManholes(m []*Manhole) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.manholes = m
}

// Manholes returns the manholes.
func (g *Graph) Manholes() []*Manhole {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Manhole, len(g.manholes))
	copy(out, g.manholes)
	return out
}

// AddEdge appends e.
func (g *Graph) AddEdge(e *Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = append(g.edges, e)
}

// Edges returns the edges in attach order.
func (g *Graph) Edges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Edge returns the first edge named name.
func (g *Graph) Edge(name string) (*Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, e := range g.edges {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// RemoveEdges drops every edge for which drop returns true and returns the
// removed edges.
func (g *Graph) RemoveEdges(drop func(*Edge) bool) []*Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.edges[:0]
	var removed []*Edge
	for _, e := range g.edges {
		if drop(e) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(g.edges); i++ {
		g.edges[i] = nil
	}
	g.edges = kept
	return removed
}

// AddDefinition stores cs unless a definition of the same name exists. The
// first definition wins.
func (g *Graph) AddDefinition(cs *feature.CrossSection) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.definitions[cs.Name]; ok {
		return false
	}
	g.definitions[cs.Name] = cs
	g.defOrder = append(g.defOrder, cs.Name)
	return true
}

// Definition returns the shared cross-section definition named name.
func (g *Graph) Definition(name string) (*feature.CrossSection, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cs, ok := g.definitions[name]
	return cs, ok
}

// Definitions returns the definitions in insertion order.
func (g *Graph) Definitions() []*feature.CrossSection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*feature.CrossSection, len(g.defOrder))
	for i, n := range g.defOrder {
		out[i] = g.definitions[n]
	}
	return out
}

// SetUsage attaches a cross-section usage to e.
func (g *Graph) SetUsage(e *Edge, u *CrossSectionUsage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e.CrossSection = u
}

// Usages returns the cross-section usages of all edges in edge order.
func (g *Graph) Usages() []*CrossSectionUsage {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*CrossSectionUsage
	for _, e := range g.edges {
		if e.CrossSection != nil {
			out = append(out, e.CrossSection)
		}
	}
	return out
}

// AddSurface records a surface for catchment aggregation.
func (g *Graph) AddSurface(s *feature.Surface) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.surfaces = append(g.surfaces, s)
}

// Surfaces returns the recorded surfaces.
func (g *Graph) Surfaces() []*feature.Surface {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*feature.Surface(nil), g.surfaces...)
}

// AddDischarge records a discharge.
func (g *Graph) AddDischarge(d *feature.Discharge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.discharges = append(g.discharges, d)
}

// Discharges returns the recorded discharges.
func (g *Graph) Discharges() []*feature.Discharge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*feature.Discharge(nil), g.discharges...)
}

// SetRunoff stores the runoff definition of its surface type. It reports
// false when one was already present; the first is kept.
func (g *Graph) SetRunoff(r *feature.RunoffDefinition) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.runoff[r.SurfaceType]; ok {
		return false
	}
	g.runoff[r.SurfaceType] = r
	return true
}

// RunoffDefinitions returns the runoff definitions ordered by surface type.
func (g *Graph) RunoffDefinitions() []*feature.RunoffDefinition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*feature.RunoffDefinition, 0, len(g.runoff))
	for _, r := range g.runoff {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SurfaceType < out[j].SurfaceType })
	return out
}

// AddDryWeatherFlow records a distribution.
func (g *Graph) AddDryWeatherFlow(d *feature.DryWeatherFlowDefinition) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dryWeatherFlows = append(g.dryWeatherFlows, d)
}

// DryWeatherFlows returns the distributions.
func (g *Graph) DryWeatherFlows() []*feature.DryWeatherFlowDefinition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*feature.DryWeatherFlowDefinition(nil), g.dryWeatherFlows...)
}

// SetCatchments replaces the catchment list.
func (g *Graph) SetCatchments(c []*Catchment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.catchments = c
}

// Catchments returns the catchments.
func (g *Graph) Catchments() []*Catchment {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Catchment(nil), g.catchments...)
}

// AddLateral appends a lateral source.
func (g *Graph) AddLateral(l *LateralSource) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.laterals = append(g.laterals, l)
}

// Laterals returns the lateral sources.
func (g *Graph) Laterals() []*LateralSource {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*LateralSource(nil), g.laterals...)
}

// Stats counts the graph contents.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := Stats{
		Nodes:           len(g.nodes),
		Manholes:        len(g.manholes),
		Edges:           len(g.edges),
		Definitions:     len(g.definitions),
		Catchments:      len(g.catchments),
		RunoffDefs:      len(g.runoff),
		DryWeatherFlows: len(g.dryWeatherFlows),
		Laterals:        len(g.laterals),
	}
	for _, e := range g.edges {
		if e.CrossSection != nil {
			s.Usages++
		}
	}
	return s
}
