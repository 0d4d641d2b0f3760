package visualization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/magnet-design/magnet-core/pkg/depgraph"
)

// MermaidRenderer renders a dependency graph as a Mermaid flowchart.
type MermaidRenderer struct{}

// NewMermaidRenderer creates a new Mermaid renderer.
func NewMermaidRenderer() *MermaidRenderer {
	return &MermaidRenderer{}
}

// Format returns the format identifier.
func (r *MermaidRenderer) Format() string {
	return "mermaid"
}

// Render converts graph into Mermaid flowchart syntax, one node per
// parameter and one edge per dependency, colored by owning design phase.
func (r *MermaidRenderer) Render(graph *depgraph.Graph, opts *RenderOptions) (string, error) {
	if graph == nil {
		return "", fmt.Errorf("graph is nil")
	}
	if opts == nil {
		opts = DefaultRenderOptions()
	}

	var sb strings.Builder

	if len(opts.ThemeVariables) > 0 {
		sb.WriteString("---\n")
		sb.WriteString("config:\n")
		sb.WriteString("  theme: base\n")
		sb.WriteString("  themeVariables:\n")
		for key, value := range opts.ThemeVariables {
			fmt.Fprintf(&sb, "    %s: \"%s\"\n", key, value)
		}
		sb.WriteString("---\n")
	}

	direction := opts.Direction
	if direction == "" {
		direction = "TB"
	}
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	params := graph.AllParameters()
	for _, path := range params {
		sb.WriteString("    ")
		sb.WriteString(r.renderNode(graph, path))
		sb.WriteString("\n")
	}

	edges := graph.Edges()
	if len(edges) > 0 {
		sb.WriteString("\n")
		for _, edge := range groupBySource(edges) {
			sb.WriteString("    ")
			sb.WriteString(r.renderEdgeGroup(edge, opts))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(r.renderPhaseStyles())
	sb.WriteString("\n")
	sb.WriteString(r.applyPhaseClasses(graph, params))

	return sb.String(), nil
}

// sourceGroup is every edge sharing one source node, preserving the
// original edge order within the group.
type sourceGroup struct {
	source string
	edges  []depgraph.Edge
}

func groupBySource(edges []depgraph.Edge) []sourceGroup {
	order := make([]string, 0)
	bySource := make(map[string][]depgraph.Edge)
	for _, e := range edges {
		if _, ok := bySource[e.Source]; !ok {
			order = append(order, e.Source)
		}
		bySource[e.Source] = append(bySource[e.Source], e)
	}
	sort.Strings(order)

	out := make([]sourceGroup, 0, len(order))
	for _, src := range order {
		out = append(out, sourceGroup{source: src, edges: bySource[src]})
	}
	return out
}

// renderEdgeGroup renders every edge from one source, using the compact
// fan-out syntax ("source --> a & b & c") when no edge in the group needs
// a type label.
func (r *MermaidRenderer) renderEdgeGroup(group sourceGroup, opts *RenderOptions) string {
	if len(group.edges) == 1 {
		return r.renderEdge(group.edges[0], opts)
	}

	if !opts.ShowEdgeType {
		var sb strings.Builder
		sb.WriteString(mermaidID(group.source))
		sb.WriteString(" --> ")
		for i, e := range group.edges {
			if i > 0 {
				sb.WriteString(" & ")
			}
			sb.WriteString(mermaidID(e.Target))
		}
		return sb.String()
	}

	var sb strings.Builder
	for i, e := range group.edges {
		if i > 0 {
			sb.WriteString("\n    ")
		}
		sb.WriteString(r.renderEdge(e, opts))
	}
	return sb.String()
}

func (r *MermaidRenderer) renderEdge(e depgraph.Edge, opts *RenderOptions) string {
	if opts.ShowEdgeType {
		return fmt.Sprintf(`%s -- "%s" --> %s`, mermaidID(e.Source), e.Type, mermaidID(e.Target))
	}
	return fmt.Sprintf("%s --> %s", mermaidID(e.Source), mermaidID(e.Target))
}

// renderNode formats a single parameter node, labeled with its path.
func (r *MermaidRenderer) renderNode(graph *depgraph.Graph, path string) string {
	label := strings.ReplaceAll(path, `"`, `&quot;`)
	return fmt.Sprintf(`%s["%s"]`, mermaidID(path), label)
}

// renderPhaseStyles generates CSS styling for each of the nine design phases.
func (r *MermaidRenderer) renderPhaseStyles() string {
	var sb strings.Builder
	sb.WriteString("\n    %% Phase styles\n")
	for phase, color := range phaseColors {
		fmt.Fprintf(&sb, "    classDef %s fill:%s,stroke:#333,stroke-width:1px,color:#000\n", phaseClassName(phase), color)
	}
	return sb.String()
}

var phaseColors = map[depgraph.Phase]string{
	depgraph.PhaseMission:     "#D0E6FF",
	depgraph.PhaseHullForm:    "#E8D9FF",
	depgraph.PhaseStructure:   "#FFE5C2",
	depgraph.PhaseArrangement: "#DFF7E3",
	depgraph.PhasePropulsion:  "#FFD9E6",
	depgraph.PhaseWeight:      "#D9FFF4",
	depgraph.PhaseStability:   "#FFF3CD",
	depgraph.PhaseCompliance:  "#E0E0E0",
	depgraph.PhaseProduction:  "#F0D9FF",
}

func phaseClassName(phase depgraph.Phase) string {
	return strings.ReplaceAll(string(phase), "_", "") + "Phase"
}

// applyPhaseClasses assigns each parameter's Mermaid class by its owning
// phase, grouping paths per phase for compact output.
func (r *MermaidRenderer) applyPhaseClasses(graph *depgraph.Graph, params []string) string {
	byPhase := make(map[depgraph.Phase][]string)
	for _, path := range params {
		phase, ok := graph.PhaseOf(path)
		if !ok || phase == "" {
			continue
		}
		byPhase[phase] = append(byPhase[phase], path)
	}

	phases := make([]string, 0, len(byPhase))
	for phase := range byPhase {
		phases = append(phases, string(phase))
	}
	sort.Strings(phases)

	var sb strings.Builder
	for _, phaseStr := range phases {
		phase := depgraph.Phase(phaseStr)
		ids := byPhase[phase]
		sb.WriteString("    class ")
		for i, path := range ids {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(mermaidID(path))
		}
		fmt.Fprintf(&sb, " %s\n", phaseClassName(phase))
	}
	return sb.String()
}

// mermaidID sanitizes a parameter path into a valid Mermaid node identifier
// (dots aren't legal inside bare node IDs).
func mermaidID(path string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(path)
}
