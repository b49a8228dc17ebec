package graph

import "fmt"

// ---------------------------------------------------------------------------
// Build status
// ---------------------------------------------------------------------------

// Status is the backend's build state for a source graph.
type Status string

const (
	StatusMissing  Status = "missing"
	StatusStale    Status = "stale"
	StatusReady    Status = "ready"
	StatusBuilding Status = "building"
	StatusError    Status = "error"
)

// Valid reports whether s is one of the known build states.
func (s Status) Valid() bool {
	switch s {
	case StatusMissing, StatusStale, StatusReady, StatusBuilding, StatusError:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Graph
// ---------------------------------------------------------------------------

// Graph is a whole-source (or derived) dependency graph.
//
// Edges may reference node ids that are not present in Nodes; such edges
// are kept in the data model and dropped at render time.
type Graph struct {
	ProjectID string  `json:"project_id"`
	Nodes     []Node  `json:"nodes"`
	Edges     []Edge  `json:"edges"`
	BuiltAt   *string `json:"built_at,omitempty"`
	NodeCount int     `json:"node_count"`
	EdgeCount int     `json:"edge_count"`
	Status    Status  `json:"status,omitempty"`
}

// StatusInfo is the lightweight build status of a source graph.
type StatusInfo struct {
	Status    Status  `json:"status"`
	NodeCount *int    `json:"node_count,omitempty"`
	EdgeCount *int    `json:"edge_count,omitempty"`
	BuiltAt   *string `json:"built_at,omitempty"`
}

// String renders the status the way it is logged to the diagnostic channel.
func (s StatusInfo) String() string {
	n, m := 0, 0
	if s.NodeCount != nil {
		n = *s.NodeCount
	}
	if s.EdgeCount != nil {
		m = *s.EdgeCount
	}
	return fmt.Sprintf("%s (%d nodes, %d edges)", s.Status, n, m)
}

// Empty reports whether the graph has no nodes.
func (g *Graph) Empty() bool {
	return g == nil || len(g.Nodes) == 0
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id string) (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Derive returns a graph with the same metadata as g and the given node and
// edge lists; the counts are recomputed.
func (g *Graph) Derive(nodes []Node, edges []Edge) *Graph {
	out := &Graph{
		Nodes:     nodes,
		Edges:     edges,
		NodeCount: len(nodes),
		EdgeCount: len(edges),
	}
	if g != nil {
		out.ProjectID = g.ProjectID
		out.BuiltAt = g.BuiltAt
		out.Status = g.Status
	}
	return out
}

// Clone returns a shallow copy of g whose node and edge slices may be
// modified without affecting g.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	c := *g
	c.Nodes = append([]Node(nil), g.Nodes...)
	c.Edges = append([]Edge(nil), g.Edges...)
	return &c
}
