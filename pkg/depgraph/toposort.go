package depgraph

import "sort"

// colorState is used by the DFS cycle finder.
type colorState int

const (
	white colorState = iota
	gray
	black
)

// findCycle runs a DFS with color marks over adj (handle -> []handle,
// already restricted to DATA_FLOW|DERIVED edges) and returns the concrete
// cycle path (as parameter paths) if one exists, or nil if the graph is
// acyclic. Node visitation order is deterministic (ascending path) so the
// reported cycle is stable across runs.
func findCycle(nodes []*graphNode, adj map[int][]int) []string {
	order := sortedHandles(nodes)

	color := make([]colorState, len(nodes))
	parent := make([]int, len(nodes))
	for i := range parent {
		parent[i] = -1
	}

	var cyclePath []string

	var visit func(h int) bool
	visit = func(h int) bool {
		color[h] = gray
		neighbors := append([]int(nil), adj[h]...)
		sort.Slice(neighbors, func(i, j int) bool { return nodes[neighbors[i]].path < nodes[neighbors[j]].path })
		for _, next := range neighbors {
			switch color[next] {
			case white:
				parent[next] = h
				if visit(next) {
					return true
				}
			case gray:
				// Found a back edge h -> next; reconstruct the cycle by
				// walking parents from h back up to next.
				cyclePath = reconstructCycle(nodes, parent, h, next)
				return true
			case black:
				// already fully explored, no cycle through here
			}
		}
		color[h] = black
		return false
	}

	for _, h := range order {
		if color[h] == white {
			if visit(h) {
				return cyclePath
			}
		}
	}
	return nil
}

func reconstructCycle(nodes []*graphNode, parent []int, from, to int) []string {
	path := []int{from}
	cur := from
	for cur != to && parent[cur] != -1 {
		cur = parent[cur]
		path = append(path, cur)
	}
	// path is from..to in reverse order; reverse and close the loop.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	path = append(path, to)

	out := make([]string, len(path))
	for i, h := range path {
		out[i] = nodes[h].path
	}
	return out
}

func sortedHandles(nodes []*graphNode) []int {
	order := make([]int, len(nodes))
	for i := range nodes {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return nodes[order[i]].path < nodes[order[j]].path })
	return order
}

// kahnTopologicalOrder computes a topological order over every node in
// nodes (not just those with dataflow edges), breaking ties by ascending
// path so repeated calls on the same graph are byte-identical.
func kahnTopologicalOrder(nodes []*graphNode, adj map[int][]int) ([]string, error) {
	indeg := make([]int, len(nodes))
	for _, targets := range adj {
		for _, t := range targets {
			indeg[t]++
		}
	}

	ready := make([]int, 0, len(nodes))
	for h, d := range indeg {
		if d == 0 {
			ready = append(ready, h)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return nodes[ready[i]].path < nodes[ready[j]].path })

	order := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		// pop the lexicographically smallest ready handle
		h := ready[0]
		ready = ready[1:]
		order = append(order, nodes[h].path)

		newlyReady := make([]int, 0)
		neighbors := append([]int(nil), adj[h]...)
		for _, next := range neighbors {
			indeg[next]--
			if indeg[next] == 0 {
				newlyReady = append(newlyReady, next)
			}
		}
		if len(newlyReady) > 0 {
			ready = append(ready, newlyReady...)
			sort.Slice(ready, func(i, j int) bool { return nodes[ready[i]].path < nodes[ready[j]].path })
		}
	}

	if len(order) != len(nodes) {
		return nil, &CyclicDependencyError{Cycle: []string{"<unknown: topological sort could not order all nodes>"}}
	}
	return order, nil
}
