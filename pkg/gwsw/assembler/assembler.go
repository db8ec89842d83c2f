// Package assembler builds a network.Graph from generated features.
//
// Assembly runs a fixed sequence of passes. Attach, dangling-edge removal and
// name uniqueness are serial; the other passes run over the edges on the
// pipeline coordinator. Every corrective action is logged to the report sink.
package assembler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Deltares-research/DHYDROGUI-sub021/internal/pipeline"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/errors"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/network"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/report"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/metrics"
	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/observability"
)

// ErrNilGraph is returned when Assemble is called without a graph.
var ErrNilGraph = errors.New(errors.ErrorTypeValidation, "network graph is nil")

// Config configures an Assembler.
type Config struct {
	Sink     report.Sink
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Pipeline []pipeline.Option
}

// Option configures an Assembler.
type Option func(*Config)

// WithSink routes assembly warnings to s.
func WithSink(s report.Sink) Option {
	return func(c *Config) { c.Sink = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics records pass durations and corrections on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithPipelineOptions passes options to the parallel passes.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(c *Config) { c.Pipeline = append(c.Pipeline, opts...) }
}

// Assembler runs the assembly passes.
type Assembler struct {
	cfg Config
}

// New creates an assembler.
func New(opts ...Option) *Assembler {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Sink == nil {
		cfg.Sink = report.NewCollector(cfg.Logger)
	}
	cfg.Logger = cfg.Logger.With(zap.String("component", "assembler"))
	return &Assembler{cfg: cfg}
}

// Assemble is a shorthand for New(opts...).Assemble.
func Assemble(ctx context.Context, g *network.Graph, features []feature.Feature, opts ...Option) error {
	return New(opts...).Assemble(ctx, g, features)
}

// state is shared by the passes of one Assemble call.
type state struct {
	g        *network.Graph
	features []feature.Feature

	// manholeNodes keeps the compartments of each manhole in attach order.
	manholeNodes map[string][]feature.Node
	manholeOrder []string
}

type pass struct {
	name string
	run  func(ctx context.Context, s *state) error
}

func (a *Assembler) passes() []pass {
	return []pass{
		{"attach", a.attach},
		{"geometry", a.geometry},
		{"reconnect", a.reconnect},
		{"zero_length", a.zeroLength},
		{"cross_sections", a.crossSections},
		{"pipe_material", a.pipeMaterial},
		{"orifices", a.orifices},
		{"dangling_edges", a.danglingEdges},
		{"unique_names", a.uniqueNames},
		{"rainfall_runoff", a.rainfallRunoff},
	}
}

// Assemble adds features to g. A cancelled context stops assembly between
// passes; the graph then holds the result of the completed passes.
func (a *Assembler) Assemble(ctx context.Context, g *network.Graph, features []feature.Feature) error {
	if g == nil {
		return ErrNilGraph
	}
	ctx, span := observability.StartSpan(ctx, "assemble", attribute.Int("features", len(features)))
	var err error
	defer func() { observability.EndSpan(span, err) }()

	s := &state{g: g, features: features, manholeNodes: make(map[string][]feature.Node)}
	for _, p := range a.passes() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Wrap(ctxErr, errors.ErrorTypeCancelled, "assembly cancelled before pass "+p.name)
			return err
		}
		if err = a.runPass(ctx, p, s); err != nil {
			return err
		}
	}
	stats := g.Stats()
	a.cfg.Logger.Info("network assembled",
		zap.Int("nodes", stats.Nodes),
		zap.Int("edges", stats.Edges),
		zap.Int("cross_section_definitions", stats.Definitions),
		zap.Int("catchments", stats.Catchments))
	return nil
}

func (a *Assembler) runPass(ctx context.Context, p pass, s *state) error {
	ctx, span := observability.StartSpan(ctx, "assemble."+p.name)
	timer := a.cfg.Metrics.StartTimer("assemble." + p.name)
	err := p.run(ctx, s)
	d := timer.Stop()
	observability.EndSpan(span, err)
	a.cfg.Logger.Debug("pass completed", zap.String("pass", p.name), zap.Duration("duration", d))
	return err
}

// forEachEdge runs fn over the current edges on the coordinator.
func (a *Assembler) forEachEdge(ctx context.Context, name string, s *state, fn func(e *network.Edge)) error {
	edges := s.g.Edges()
	opts := append([]pipeline.Option{
		pipeline.WithName("assemble " + name),
		pipeline.WithLogger(a.cfg.Logger),
	}, a.cfg.Pipeline...)
	res := pipeline.Run(ctx, edges, func(_ context.Context, e *network.Edge) (struct{}, error) {
		fn(e)
		return struct{}{}, nil
	}, opts...)
	for _, ie := range res.Errors {
		e := edges[ie.Index]
		a.log(zapcore.ErrorLevel, e.Location, fmt.Sprintf("pass %s failed for connection '%s': %v", name, e.Name, ie.Err))
	}
	if res.Cancelled {
		return errors.New(errors.ErrorTypeCancelled, "assembly cancelled during pass "+name)
	}
	return nil
}

func (a *Assembler) log(level zapcore.Level, loc feature.Location, msg string) {
	a.cfg.Sink.Log(report.Entry{Level: level, Message: msg, File: loc.File, Line: loc.Line, Time: time.Now()})
}

func (a *Assembler) warn(loc feature.Location, format string, args ...interface{}) {
	a.log(zapcore.WarnLevel, loc, fmt.Sprintf(format, args...))
}

// attach adds the features to the graph in file and line order. Kunstwerk
// rows are attached last so they can merge into existing nodes and edges.
func (a *Assembler) attach(_ context.Context, s *state) error {
	ordered := make([]feature.Feature, 0, len(s.features))
	for _, f := range s.features {
		if f != nil {
			ordered = append(ordered, f)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := fromStructure(ordered[i]), fromStructure(ordered[j])
		if si != sj {
			return !si
		}
		return ordered[i].Source().Before(ordered[j].Source())
	})

	for _, f := range ordered {
		switch v := f.(type) {
		case *feature.Compartment:
			s.g.AddNode(v)
		case *feature.OutletCompartment:
			if v.FromStructure {
				a.mergeOutlet(s.g, v)
			} else {
				s.g.AddNode(v)
			}
		case *feature.SewerConnection:
			if v.Origin == feature.OriginStructure {
				a.mergeStructure(s.g, v)
			} else {
				s.g.AddEdge(&network.Edge{SewerConnection: v})
			}
		case *feature.CrossSection:
			if !s.g.AddDefinition(v) {
				a.warn(v.Location, "Cross-section definition '%s' is defined more than once; the first definition is used", v.Name)
			}
		case *feature.Surface:
			s.g.AddSurface(v)
		case *feature.Discharge:
			s.g.AddDischarge(v)
		case *feature.RunoffDefinition:
			if !s.g.SetRunoff(v) {
				a.warn(v.Location, "Runoff definition for surface type %s is defined more than once; the first definition is used", v.SurfaceType)
			}
		case *feature.DryWeatherFlowDefinition:
			s.g.AddDryWeatherFlow(v)
		default:
			a.warn(f.Source(), "Feature '%s' of type %T is not part of the network", f.FeatureName(), f)
		}
	}

	a.groupManholes(s)
	a.resolveEndpoints(s.g)
	return nil
}

func fromStructure(f feature.Feature) bool {
	switch v := f.(type) {
	case *feature.OutletCompartment:
		return v.FromStructure
	case *feature.SewerConnection:
		return v.Origin == feature.OriginStructure
	}
	return false
}

// mergeOutlet turns the compartment of the same name into an outlet. The
// outlet keeps the compartment's geometry, shape, sizes and levels.
func (a *Assembler) mergeOutlet(g *network.Graph, out *feature.OutletCompartment) {
	existing, ok := g.Node(out.Name)
	if !ok {
		g.AddNode(out)
		return
	}
	if o, isOutlet := existing.(*feature.OutletCompartment); isOutlet {
		o.SurfaceWaterLevel = out.SurfaceWaterLevel
		return
	}
	merged := &feature.OutletCompartment{
		Compartment:       *existing.Base(),
		SurfaceWaterLevel: out.SurfaceWaterLevel,
	}
	g.ReplaceNode(out.Name, merged)
}

// mergeStructure copies the structure parameters into the connection of the
// same name, or adds the structure as an edge without endpoints.
func (a *Assembler) mergeStructure(g *network.Graph, sc *feature.SewerConnection) {
	e, ok := g.Edge(sc.Name)
	if !ok {
		g.AddEdge(&network.Edge{SewerConnection: sc})
		return
	}
	if sc.Kind != feature.KindGeneric {
		e.Kind = sc.Kind
	}
	if sc.Pump != nil {
		e.Pump = sc.Pump
	}
	if sc.Weir != nil {
		e.Weir = sc.Weir
	}
	if sc.Orifice != nil {
		e.Orifice = sc.Orifice
	}
}

// groupManholes groups the compartments by parent manhole id. The manhole
// position is the mean of its compartments with geometry.
func (a *Assembler) groupManholes(s *state) {
	for _, n := range s.g.Nodes() {
		id := n.Base().ManholeID
		if id == "" {
			id = n.FeatureName()
		}
		if _, ok := s.manholeNodes[id]; !ok {
			s.manholeOrder = append(s.manholeOrder, id)
		}
		s.manholeNodes[id] = append(s.manholeNodes[id], n)
	}
	s.g.SetManholes(buildManholes(s))
}

func buildManholes(s *state) []*network.Manhole {
	out := make([]*network.Manhole, 0, len(s.manholeOrder))
	for _, id := range s.manholeOrder {
		m := &network.Manhole{Name: id}
		var sx, sy float64
		var count int
		for _, n := range s.manholeNodes[id] {
			m.Compartments = append(m.Compartments, n.FeatureName())
			if p := n.Base().Geometry; p != nil {
				sx += p.X
				sy += p.Y
				count++
			}
		}
		if count > 0 {
			m.Position = &feature.Point{X: sx / float64(count), Y: sy / float64(count)}
		}
		out = append(out, m)
	}
	return out
}

// resolveEndpoints binds edges to nodes by exact name. The first node of a
// name wins.
func (a *Assembler) resolveEndpoints(g *network.Graph) {
	byName := make(map[string]feature.Node)
	for _, n := range g.Nodes() {
		if _, ok := byName[n.FeatureName()]; !ok {
			byName[n.FeatureName()] = n
		}
	}
	for _, e := range g.Edges() {
		if n, ok := byName[e.SourceID]; ok && e.SourceID != "" {
			e.Source = n
		}
		if n, ok := byName[e.TargetID]; ok && e.TargetID != "" {
			e.Target = n
		}
	}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
