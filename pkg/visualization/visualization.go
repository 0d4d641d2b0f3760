// Package visualization renders a pkg/depgraph.Graph as a Mermaid
// flowchart diagram, one node per parameter, colored by owning design
// phase, for documentation and terminal inspection (magnetctl graph).
package visualization

import (
	"github.com/magnet-design/magnet-core/pkg/depgraph"
)

// Renderer is the interface for rendering a dependency graph in a
// particular output format.
type Renderer interface {
	// Render converts graph into the target format.
	Render(graph *depgraph.Graph, opts *RenderOptions) (string, error)

	// Format returns the format identifier (e.g., "mermaid").
	Format() string
}

// RenderOptions configures how the graph is rendered.
type RenderOptions struct {
	// ShowEdgeType labels each edge with its EdgeType (DATA_FLOW, DERIVED, ...).
	ShowEdgeType bool

	// Direction sets the diagram flow direction.
	// Valid values: "TB" (top-bottom), "LR" (left-right), "RL" (right-left), "BT" (bottom-top).
	Direction string

	// ThemeVariables allows customizing the Mermaid theme.
	ThemeVariables map[string]string
}

// DefaultRenderOptions returns the default rendering options.
func DefaultRenderOptions() *RenderOptions {
	return &RenderOptions{
		ShowEdgeType:   false,
		Direction:      "TB",
		ThemeVariables: nil,
	}
}
