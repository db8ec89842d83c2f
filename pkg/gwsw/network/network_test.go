package network

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deltares-research/DHYDROGUI-sub021/pkg/gwsw/feature"
)

func edge(name string) *Edge {
	return &Edge{SewerConnection: &feature.SewerConnection{Name: name}}
}

func TestGraphNodes(t *testing.T) {
	g := New()
	g.AddNode(&feature.Compartment{Name: "a"})
	g.AddNode(&feature.Compartment{Name: "b"})

	out := &feature.OutletCompartment{Compartment: feature.Compartment{Name: "b"}}
	assert.True(t, g.ReplaceNode("b", out))
	assert.False(t, g.ReplaceNode("missing", out))

	n, ok := g.Node("b")
	require.True(t, ok)
	assert.Same(t, out, n)
	_, ok = g.Node("c")
	assert.False(t, ok)
	assert.Len(t, g.Nodes(), 2)
}

func TestGraphRemoveEdges(t *testing.T) {
	g := New()
	for _, n := range []string{"e1", "e2", "e3", "e4"} {
		g.AddEdge(edge(n))
	}

	removed := g.RemoveEdges(func(e *Edge) bool { return e.Name == "e2" || e.Name == "e4" })

	require.Len(t, removed, 2)
	assert.Equal(t, "e2", removed[0].Name)
	var names []string
	for _, e := range g.Edges() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"e1", "e3"}, names)
	_, ok := g.Edge("e2")
	assert.False(t, ok)
}

func TestGraphDefinitionsFirstWins(t *testing.T) {
	g := New()
	first := &feature.CrossSection{Name: "P", Width: 0.3}
	assert.True(t, g.AddDefinition(first))
	assert.False(t, g.AddDefinition(&feature.CrossSection{Name: "P", Width: 0.6}))
	assert.True(t, g.AddDefinition(&feature.CrossSection{Name: "Q"}))

	def, ok := g.Definition("P")
	require.True(t, ok)
	assert.Same(t, first, def)
	defs := g.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "Q", defs[1].Name)
}

func TestGraphUsagesAndStats(t *testing.T) {
	g := New()
	def := &feature.CrossSection{Name: "P"}
	g.AddDefinition(def)
	e1, e2 := edge("e1"), edge("e2")
	g.AddEdge(e1)
	g.AddEdge(e2)
	g.SetUsage(e1, &CrossSectionUsage{Name: "SewerProfile_", Edge: "e1", Definition: def})

	usages := g.Usages()
	require.Len(t, usages, 1)
	assert.Equal(t, "P", usages[0].DefinitionName())
	assert.Equal(t, "", (*CrossSectionUsage)(nil).DefinitionName())

	assert.True(t, g.SetRunoff(&feature.RunoffDefinition{SurfaceType: 2}))
	assert.False(t, g.SetRunoff(&feature.RunoffDefinition{SurfaceType: 2}))
	g.SetRunoff(&feature.RunoffDefinition{SurfaceType: 0})
	runoff := g.RunoffDefinitions()
	require.Len(t, runoff, 2)
	assert.Equal(t, feature.SurfaceType(0), runoff[0].SurfaceType)

	stats := g.Stats()
	assert.Equal(t, 2, stats.Edges)
	assert.Equal(t, 1, stats.Usages)
	assert.Equal(t, 1, stats.Definitions)
	assert.Equal(t, 2, stats.RunoffDefs)
}

func TestGraphConcurrentMutation(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("e%d", i)
			e := edge(name)
			g.AddEdge(e)
			g.SetUsage(e, &CrossSectionUsage{Name: name})
			g.AddDefinition(&feature.CrossSection{Name: fmt.Sprintf("P%d", i%5)})
		}(i)
	}
	wg.Wait()

	stats := g.Stats()
	assert.Equal(t, 50, stats.Edges)
	assert.Equal(t, 50, stats.Usages)
	assert.Equal(t, 5, stats.Definitions)
}

func TestCatchmentTotalArea(t *testing.T) {
	c := &Catchment{}
	c.Areas[0] = 1.5
	c.Areas[11] = 2.5
	assert.Equal(t, 4.0, c.TotalArea())
}
