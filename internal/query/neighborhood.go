package query

import (
	"github.com/linggen/linggen-editor/internal/graph"
)

// BuildNeighborhood returns the one-hop neighbourhood of focusID: the focus
// node, every node sharing an edge with it (either direction), and every
// edge whose endpoints both lie in that set. Edge endpoints that are not
// nodes of g never enter the set. Node and edge order follow g.
//
// An empty focusID returns g itself; an unknown one returns an empty graph.
func BuildNeighborhood(g *graph.Graph, focusID string) *graph.Graph {
	if g == nil || focusID == "" {
		return g
	}

	idx := graph.NewIndex(g)
	set := make(map[string]bool)
	if idx.HasNode(focusID) {
		set[focusID] = true
		for id := range idx.Neighbours(focusID) {
			if idx.HasNode(id) {
				set[id] = true
			}
		}
	}
	return g.Derive(graph.NodesWithin(g.Nodes, set), graph.EdgesWithin(g.Edges, set))
}
