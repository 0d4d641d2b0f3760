// Package depgraph implements MAGNET's dependency graph: a validated DAG of
// parameter dependencies with topological recomputation ordering and cycle
// detection (spec §4.2). Nodes live in an arena (a slice) addressed by
// integer handle, per spec §9's cyclic-back-reference design note; each
// node's upstream and downstream sets hold handles rather than pointers.
// The Edge records kept alongside name their endpoints by parameter path,
// not by handle.
package depgraph

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	magerrors "github.com/magnet-design/magnet-core/pkg/errors"
)

// PhaseTable is the declarative phase-ownership input: exact-path
// ownership plus a longest-prefix fallback table (e.g. "hull." -> hull_form).
type PhaseTable struct {
	Exact    map[string]Phase
	Prefixes map[string]Phase
}

// NewPhaseTable returns an empty, ready-to-populate PhaseTable.
func NewPhaseTable() *PhaseTable {
	return &PhaseTable{Exact: map[string]Phase{}, Prefixes: map[string]Phase{}}
}

// Own registers exact ownership of path by phase.
func (t *PhaseTable) Own(path string, phase Phase) *PhaseTable {
	t.Exact[path] = phase
	return t
}

// OwnPrefix registers a longest-prefix fallback, e.g. OwnPrefix("hull.", PhaseHullForm).
func (t *PhaseTable) OwnPrefix(prefix string, phase Phase) *PhaseTable {
	t.Prefixes[prefix] = phase
	return t
}

// Infer resolves a parameter path to its owning phase: exact match first,
// then longest matching prefix. Returns ("", false) if neither matches.
func (t *PhaseTable) Infer(path string) (Phase, bool) {
	if p, ok := t.Exact[path]; ok {
		return p, true
	}
	best := ""
	var bestPhase Phase
	for prefix, phase := range t.Prefixes {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(best) {
			best = prefix
			bestPhase = phase
		}
	}
	if best != "" {
		return bestPhase, true
	}
	return "", false
}

type graphNode struct {
	path       string
	phase      Phase
	upstream   map[int]struct{} // handles of nodes this one depends on (any edge type)
	downstream map[int]struct{} // handles of nodes depending on this one (any edge type)
}

// Graph is MAGNET's dependency DAG. Safe for concurrent reads once Build has
// completed; per spec §5 it is built once and then treated as immutable.
type Graph struct {
	mu sync.RWMutex

	phases *PhaseTable

	nodes []*graphNode
	index map[string]int // path -> handle

	edges    []Edge
	edgeSeen map[edgeKey]struct{}

	built          bool
	buildTimestamp *time.Time
	topoOrder      []string // cached, dataflow-edge-only order over all nodes
}

type edgeKey struct {
	source, target string
	edgeType        EdgeType
}

// New creates an empty graph using the given phase-ownership table.
func New(phases *PhaseTable) *Graph {
	if phases == nil {
		phases = NewPhaseTable()
	}
	return &Graph{
		phases:   phases,
		index:    map[string]int{},
		edgeSeen: map[edgeKey]struct{}{},
	}
}

// AddParameter registers path with an explicit phase, or infers one from the
// phase table when phase is "". Idempotent: re-adding an existing path is a
// no-op (the existing node is returned).
func (g *Graph) AddParameter(path string, phase Phase) Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := g.ensureNode(path, phase)
	return g.nodeAt(h)
}

// ensureNode returns the handle for path, creating it (with phase inference)
// if absent. Caller must hold g.mu.
func (g *Graph) ensureNode(path string, phase Phase) int {
	if h, ok := g.index[path]; ok {
		if phase != "" && g.nodes[h].phase == "" {
			g.nodes[h].phase = phase
		}
		return h
	}
	if phase == "" {
		if inferred, ok := g.phases.Infer(path); ok {
			phase = inferred
		}
	}
	n := &graphNode{
		path:       path,
		phase:      phase,
		upstream:   map[int]struct{}{},
		downstream: map[int]struct{}{},
	}
	g.nodes = append(g.nodes, n)
	h := len(g.nodes) - 1
	g.index[path] = h
	g.built = false
	return h
}

// AddDependency records that target depends on source: an edge
// source -> target. Auto-creates absent nodes. Idempotent on the
// (source, target, edgeType) triple.
func (g *Graph) AddDependency(target, source string, edgeType EdgeType, weight float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sh := g.ensureNode(source, "")
	th := g.ensureNode(target, "")

	key := edgeKey{source: source, target: target, edgeType: edgeType}
	if _, seen := g.edgeSeen[key]; seen {
		return
	}
	g.edgeSeen[key] = struct{}{}

	g.edges = append(g.edges, Edge{Source: source, Target: target, Type: edgeType, Weight: weight})
	g.nodes[sh].downstream[th] = struct{}{}
	g.nodes[th].upstream[sh] = struct{}{}
	g.built = false
}

// Build validates the graph is acyclic over DATA_FLOW|DERIVED edges and
// caches a deterministic topological order over all nodes.
func (g *Graph) Build() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	adj := g.dataflowAdjacency()

	if cycle := findCycle(g.nodes, adj); cycle != nil {
		return &CyclicDependencyError{Cycle: cycle}
	}

	order, err := kahnTopologicalOrder(g.nodes, adj)
	if err != nil {
		// Build already proved acyclicity above; this can only happen on a
		// logic error in kahnTopologicalOrder itself.
		return magerrors.StateErr("DEPGRAPH_TOPOSORT", "topological sort failed after cycle check passed", err)
	}

	now := time.Now().UTC()
	g.topoOrder = order
	g.built = true
	g.buildTimestamp = &now
	return nil
}

// dataflowAdjacency returns handle->[]handle edges restricted to
// DATA_FLOW|DERIVED. Caller must hold g.mu.
func (g *Graph) dataflowAdjacency() map[int][]int {
	adj := make(map[int][]int, len(g.nodes))
	for _, e := range g.edges {
		if !e.Type.participatesInOrdering() {
			continue
		}
		sh := g.index[e.Source]
		th := g.index[e.Target]
		adj[sh] = append(adj[sh], th)
	}
	return adj
}

func (g *Graph) nodeAt(h int) Node {
	n := g.nodes[h]
	return Node{
		Path:       n.path,
		Phase:      n.phase,
		Upstream:   handleSetToPaths(g.nodes, n.upstream),
		Downstream: handleSetToPaths(g.nodes, n.downstream),
	}
}

func handleSetToPaths(nodes []*graphNode, set map[int]struct{}) []string {
	out := make([]string, 0, len(set))
	for h := range set {
		out = append(out, nodes[h].path)
	}
	sort.Strings(out)
	return out
}

// DirectDependencies returns the paths path directly depends on (upstream,
// any edge type). O(1) relative to the number of edges touching path.
func (g *Graph) DirectDependencies(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.index[path]
	if !ok {
		return nil
	}
	return handleSetToPaths(g.nodes, g.nodes[h].upstream)
}

// DirectDependents returns the paths that directly depend on path
// (downstream, any edge type).
func (g *Graph) DirectDependents(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.index[path]
	if !ok {
		return nil
	}
	return handleSetToPaths(g.nodes, g.nodes[h].downstream)
}

// AllDependencies returns the transitive closure of DirectDependencies.
func (g *Graph) AllDependencies(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closure(path, func(n *graphNode) map[int]struct{} { return n.upstream })
}

// AllDownstream returns the transitive closure of DirectDependents.
func (g *Graph) AllDownstream(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closure(path, func(n *graphNode) map[int]struct{} { return n.downstream })
}

// closure performs a BFS over the chosen adjacency direction. Caller must
// hold at least a read lock.
func (g *Graph) closure(path string, adjOf func(*graphNode) map[int]struct{}) []string {
	start, ok := g.index[path]
	if !ok {
		return nil
	}
	visited := map[int]struct{}{}
	queue := []int{start}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		for next := range adjOf(g.nodes[h]) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return handleSetToPaths(g.nodes, visited)
}

// ComputationOrder projects the cached topological order onto subset,
// preserving topological precedence. Requires Build to have succeeded.
func (g *Graph) ComputationOrder(subset []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.built {
		return nil, magerrors.New(magerrors.KindState, "DEPGRAPH_NOT_BUILT", "Build() must succeed before ComputationOrder", "call Build() after adding all parameters and dependencies")
	}
	want := make(map[string]struct{}, len(subset))
	for _, p := range subset {
		want[p] = struct{}{}
	}
	out := make([]string, 0, len(subset))
	for _, p := range g.topoOrder {
		if _, ok := want[p]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// RecalculationOrder returns ComputationOrder(union of AllDownstream(p) for
// p in changed, plus the changed paths themselves).
func (g *Graph) RecalculationOrder(changed []string) ([]string, error) {
	set := map[string]struct{}{}
	for _, p := range changed {
		set[p] = struct{}{}
		for _, d := range g.AllDownstream(p) {
			set[d] = struct{}{}
		}
	}
	subset := make([]string, 0, len(set))
	for p := range set {
		subset = append(subset, p)
	}
	return g.ComputationOrder(subset)
}

// DownstreamPhases returns the set of distinct phases owned by any
// downstream parameter of path.
func (g *Graph) DownstreamPhases(path string) []Phase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := map[Phase]struct{}{}
	for _, p := range g.closure(path, func(n *graphNode) map[int]struct{} { return n.downstream }) {
		h := g.index[p]
		if ph := g.nodes[h].phase; ph != "" {
			set[ph] = struct{}{}
		}
	}
	out := make([]Phase, 0, len(set))
	for ph := range set {
		out = append(out, ph)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Edges returns a sorted copy of every dependency edge, for callers (e.g.
// pkg/visualization) that need the typed Edge slice rather than ToDict's
// JSON round trip.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// AllParameters returns every known parameter path in ascending order.
func (g *Graph) AllParameters() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.path
	}
	sort.Strings(out)
	return out
}

// ParametersForPhase returns every known parameter path owned by phase, in
// ascending order.
func (g *Graph) ParametersForPhase(phase Phase) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0)
	for _, n := range g.nodes {
		if n.phase == phase {
			out = append(out, n.path)
		}
	}
	sort.Strings(out)
	return out
}

// PhaseOf returns the phase owning path, and false if path is unknown.
func (g *Graph) PhaseOf(path string) (Phase, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.index[path]
	if !ok {
		return "", false
	}
	return g.nodes[h].phase, true
}

// Built reports whether Build has succeeded since the last mutation.
func (g *Graph) Built() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.built
}

// ToDict produces a round-trippable snapshot of the graph.
func (g *Graph) ToDict() map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodeDicts := make([]nodeDict, len(g.nodes))
	for i, n := range g.nodes {
		nodeDicts[i] = nodeDict{Path: n.path, Phase: n.phase}
	}
	sort.Slice(nodeDicts, func(i, j int) bool { return nodeDicts[i].Path < nodeDicts[j].Path })

	edgesCopy := make([]Edge, len(g.edges))
	copy(edgesCopy, g.edges)
	sort.Slice(edgesCopy, func(i, j int) bool {
		if edgesCopy[i].Source != edgesCopy[j].Source {
			return edgesCopy[i].Source < edgesCopy[j].Source
		}
		if edgesCopy[i].Target != edgesCopy[j].Target {
			return edgesCopy[i].Target < edgesCopy[j].Target
		}
		return edgesCopy[i].Type < edgesCopy[j].Type
	})

	snap := snapshot{Nodes: nodeDicts, Edges: edgesCopy, Built: g.built, BuildTimestamp: g.buildTimestamp}
	data, _ := json.Marshal(snap)
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	return out
}

// FromDict rebuilds a graph from a dict produced by ToDict.
func FromDict(phases *PhaseTable, d map[string]any) (*Graph, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}

	g := New(phases)
	for _, n := range snap.Nodes {
		g.AddParameter(n.Path, n.Phase)
	}
	for _, e := range snap.Edges {
		g.AddDependency(e.Target, e.Source, e.Type, e.Weight)
	}
	if snap.Built {
		if err := g.Build(); err != nil {
			return nil, err
		}
	}
	return g, nil
}
