package component

import "github.com/wrtgo/wrtgo/wrterr"

type nodeColor int

const (
	white nodeColor = iota // unvisited
	gray                   // in-progress
	black                  // done
)

// LinkGraph tracks provider -> dependent edges between registered
// component ids: an edge from A to B means A provides an export B
// imports.
type LinkGraph struct {
	nodes []string            // registration order, for stable tie-breaking
	edges map[string][]string // providerID -> dependentIDs
}

func newLinkGraph() *LinkGraph {
	return &LinkGraph{edges: make(map[string][]string)}
}

func (g *LinkGraph) addNode(id string) {
	for _, n := range g.nodes {
		if n == id {
			return
		}
	}
	g.nodes = append(g.nodes, id)
}

func (g *LinkGraph) addEdge(providerID, dependentID string) {
	for _, d := range g.edges[providerID] {
		if d == dependentID {
			return
		}
	}
	g.edges[providerID] = append(g.edges[providerID], dependentID)
}

func (g *LinkGraph) removeNode(id string) {
	filtered := g.nodes[:0]
	for _, n := range g.nodes {
		if n != id {
			filtered = append(filtered, n)
		}
	}
	g.nodes = filtered
	delete(g.edges, id)
	for provider, deps := range g.edges {
		kept := deps[:0]
		for _, d := range deps {
			if d != id {
				kept = append(kept, d)
			}
		}
		g.edges[provider] = kept
	}
}

// topoSort runs a three-color DFS over the graph and returns providers
// before their dependents. Re-entering a gray (in-progress) node is a cycle;
// handling is governed by mode. In Warn mode every detected cycle is
// recorded and returned as a warning message instead of aborting the sort.
func (g *LinkGraph) topoSort(mode CircularDependencyMode) (order []string, warnings []string, err error) {
	color := make(map[string]nodeColor, len(g.nodes))
	var postorder []string
	var cycleErr error

	var visit func(id string) bool // false = abort (Reject hit a cycle)
	visit = func(id string) bool {
		color[id] = gray
		for _, dep := range g.edges[id] {
			switch color[dep] {
			case white:
				if !visit(dep) {
					return false
				}
			case gray:
				switch mode {
				case Reject:
					cycleErr = wrterr.Errorf(wrterr.CircularDependency, "cycle detected at component %q", dep)
					return false
				case Warn:
					warnings = append(warnings, "cycle detected at component \""+dep+"\": continuing per Warn policy")
				case Allow:
					// proceed, ties broken by registration order (already the iteration order)
				}
			case black:
				// already fully processed via another path
			}
		}
		color[id] = black
		postorder = append(postorder, id)
		return true
	}

	for _, id := range g.nodes {
		if color[id] == white {
			if !visit(id) {
				return nil, warnings, cycleErr
			}
		}
	}

	out := make([]string, len(postorder))
	for i, id := range postorder {
		out[len(postorder)-1-i] = id
	}
	return out, warnings, nil
}
