package graph

// ---------------------------------------------------------------------------
// Index
// ---------------------------------------------------------------------------

// Index is a read-only adjacency view over a Graph snapshot. It is built
// once and never mutated, so concurrent readers need no locking.
type Index struct {
	nodes    map[string]bool
	outEdges map[string][]Edge // source → edges
	inEdges  map[string][]Edge // target → edges
}

// NewIndex builds an index over g. Edges are indexed even when an endpoint
// is not a node of g.
func NewIndex(g *Graph) *Index {
	idx := &Index{
		nodes:    make(map[string]bool),
		outEdges: make(map[string][]Edge),
		inEdges:  make(map[string][]Edge),
	}
	if g == nil {
		return idx
	}
	for _, n := range g.Nodes {
		idx.nodes[n.ID] = true
	}
	for _, e := range g.Edges {
		idx.outEdges[e.Source] = append(idx.outEdges[e.Source], e)
		idx.inEdges[e.Target] = append(idx.inEdges[e.Target], e)
	}
	return idx
}

// ============================== LOOKUPS ===================================

// HasNode reports whether id is a node of the indexed graph.
func (x *Index) HasNode(id string) bool {
	return x.nodes[id]
}

// Neighbours returns the set of ids adjacent to id in either direction,
// including endpoints that are not nodes. Self-loops contribute id itself.
func (x *Index) Neighbours(id string) map[string]bool {
	set := make(map[string]bool)
	for _, e := range x.outEdges[id] {
		set[e.Target] = true
	}
	for _, e := range x.inEdges[id] {
		set[e.Source] = true
	}
	return set
}

// ===================== SUBGRAPH EXTRACTION ================================

// EdgesWithin filters edges down to those whose source and target are both
// in set, preserving order.
func EdgesWithin(edges []Edge, set map[string]bool) []Edge {
	out := make([]Edge, 0)
	for _, e := range edges {
		if set[e.Source] && set[e.Target] {
			out = append(out, e)
		}
	}
	return out
}

// NodesWithin filters nodes down to those whose id is in set, preserving
// order.
func NodesWithin(nodes []Node, set map[string]bool) []Node {
	out := make([]Node, 0, len(set))
	for _, n := range nodes {
		if set[n.ID] {
			out = append(out, n)
		}
	}
	return out
}
