package graph

// ---------------------------------------------------------------------------
// Edge kinds
// ---------------------------------------------------------------------------

// Common edge kinds emitted by the backend. The set is open; unknown kinds
// are carried through untouched.
const (
	EdgeKindImport = "import"
	EdgeKindCall   = "call"
	EdgeKindUses   = "uses"
)

// ---------------------------------------------------------------------------
// Edge
// ---------------------------------------------------------------------------

// Edge is a relationship between two nodes. It is directed as returned by
// the backend; neighbourhood computations treat it as undirected.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// Touches reports whether id is either endpoint of the edge.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// Other returns the endpoint opposite id, or "" when id is not an endpoint.
func (e Edge) Other(id string) string {
	switch id {
	case e.Source:
		return e.Target
	case e.Target:
		return e.Source
	}
	return ""
}
