package visualization

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
)

func hullGraph(t *testing.T) *depgraph.Graph {
	t.Helper()
	phases := depgraph.NewPhaseTable().OwnPrefix("hull.", depgraph.PhaseHullForm)
	g := depgraph.New(phases)
	g.AddDependency("hull.displacement_m3", "hull.loa", depgraph.DataFlow, 1)
	g.AddDependency("hull.displacement_m3", "hull.beam", depgraph.DataFlow, 1)
	require.NoError(t, g.Build())
	return g
}

func TestMermaidRenderer_Format(t *testing.T) {
	renderer := NewMermaidRenderer()
	assert.Equal(t, "mermaid", renderer.Format())
}

func TestMermaidRenderer_RenderNilGraph(t *testing.T) {
	renderer := NewMermaidRenderer()
	_, err := renderer.Render(nil, DefaultRenderOptions())
	assert.Error(t, err)
}

func TestMermaidRenderer_RenderIncludesEveryParameterAndEdge(t *testing.T) {
	g := hullGraph(t)
	renderer := NewMermaidRenderer()

	out, err := renderer.Render(g, DefaultRenderOptions())
	require.NoError(t, err)

	assert.Contains(t, out, "flowchart TB")
	assert.Contains(t, out, "hull_loa")
	assert.Contains(t, out, "hull_beam")
	assert.Contains(t, out, "hull_displacement_m3")
	assert.Contains(t, out, "hull_loa --> hull_displacement_m3")
}

func TestMermaidRenderer_RenderRespectsDirection(t *testing.T) {
	g := hullGraph(t)
	renderer := NewMermaidRenderer()

	opts := DefaultRenderOptions()
	opts.Direction = "LR"
	out, err := renderer.Render(g, opts)
	require.NoError(t, err)
	assert.Contains(t, out, "flowchart LR")
}

func TestMermaidRenderer_RenderShowsEdgeTypeWhenRequested(t *testing.T) {
	g := hullGraph(t)
	renderer := NewMermaidRenderer()

	opts := DefaultRenderOptions()
	opts.ShowEdgeType = true
	out, err := renderer.Render(g, opts)
	require.NoError(t, err)
	assert.Contains(t, out, string(depgraph.DataFlow))
}

func TestMermaidRenderer_RenderGroupsParametersByPhase(t *testing.T) {
	g := hullGraph(t)
	renderer := NewMermaidRenderer()

	out, err := renderer.Render(g, DefaultRenderOptions())
	require.NoError(t, err)

	idx := strings.Index(out, "class ")
	require.GreaterOrEqual(t, idx, 0, "expected a phase class assignment line")
	assert.Contains(t, out, "hullformPhase")
}
