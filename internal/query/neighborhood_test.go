package query

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linggen/linggen-editor/internal/graph"
)

func nodeIDs(g *graph.Graph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func abcdGraph() *graph.Graph {
	return &graph.Graph{
		ProjectID: "demo",
		Nodes:     []graph.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "D"}},
		Edges: []graph.Edge{
			{Source: "A", Target: "B", Kind: "import"},
			{Source: "B", Target: "C", Kind: "import"},
		},
	}
}

func TestBuildNeighborhood_Scenario(t *testing.T) {
	sub := BuildNeighborhood(abcdGraph(), "B")

	assert.Equal(t, []string{"A", "B", "C"}, nodeIDs(sub))
	assert.Equal(t, []graph.Edge{
		{Source: "A", Target: "B", Kind: "import"},
		{Source: "B", Target: "C", Kind: "import"},
	}, sub.Edges)
	assert.Equal(t, "demo", sub.ProjectID)
	assert.Equal(t, 3, sub.NodeCount)
	assert.Equal(t, 2, sub.EdgeCount)
}

func TestBuildNeighborhood_NoFocusIsIdentity(t *testing.T) {
	g := abcdGraph()
	assert.Same(t, g, BuildNeighborhood(g, ""))
}

func TestBuildNeighborhood_IsolatedFocus(t *testing.T) {
	sub := BuildNeighborhood(abcdGraph(), "D")
	assert.Equal(t, []string{"D"}, nodeIDs(sub))
	assert.Empty(t, sub.Edges)
}

func TestBuildNeighborhood_EdgeBetweenNeighbours(t *testing.T) {
	g := abcdGraph()
	g.Edges = append(g.Edges, graph.Edge{Source: "C", Target: "A"})

	sub := BuildNeighborhood(g, "B")
	assert.Len(t, sub.Edges, 3, "edge between two neighbours stays")
}

func TestBuildNeighborhood_DanglingEdgeEndpoint(t *testing.T) {
	g := abcdGraph()
	g.Edges = append(g.Edges, graph.Edge{Source: "X", Target: "B", Kind: "import"})

	sub := BuildNeighborhood(g, "B")
	assert.Equal(t, []string{"A", "B", "C"}, nodeIDs(sub))
	assert.Equal(t, []graph.Edge{
		{Source: "A", Target: "B", Kind: "import"},
		{Source: "B", Target: "C", Kind: "import"},
	}, sub.Edges)
	assert.Equal(t, 2, sub.EdgeCount)
}

// randomGraph builds a graph of n nodes whose edges come from consecutive
// pairs of raw, reduced modulo n+2. Ids N<n> and N<n+1> are never nodes, so
// some edges name missing endpoints as the backend sometimes sends them.
func randomGraph(n int, raw []int) *graph.Graph {
	g := &graph.Graph{}
	for i := 0; i < n; i++ {
		g.Nodes = append(g.Nodes, graph.Node{ID: fmt.Sprintf("N%d", i), Label: fmt.Sprintf("f%d.go", i)})
	}
	for i := 0; i+1 < len(raw); i += 2 {
		g.Edges = append(g.Edges, graph.Edge{
			Source: fmt.Sprintf("N%d", raw[i]%(n+2)),
			Target: fmt.Sprintf("N%d", raw[i+1]%(n+2)),
		})
	}
	return g
}

func isNode(g *graph.Graph, id string) bool {
	_, ok := g.NodeByID(id)
	return ok
}

func TestBuildNeighborhood_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("contains focus and exactly its one-hop neighbours", prop.ForAll(
		func(n int, raw []int, pick int) bool {
			g := randomGraph(n, raw)
			focus := g.Nodes[pick%n].ID
			sub := BuildNeighborhood(g, focus)

			want := map[string]bool{focus: true}
			for _, e := range g.Edges {
				if e.Source == focus && isNode(g, e.Target) {
					want[e.Target] = true
				}
				if e.Target == focus && isNode(g, e.Source) {
					want[e.Source] = true
				}
			}
			if len(sub.Nodes) != len(want) {
				return false
			}
			for _, node := range sub.Nodes {
				if !want[node.ID] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(0, 1000),
	))

	properties.Property("no dangling edges survive", prop.ForAll(
		func(n int, raw []int, pick int) bool {
			g := randomGraph(n, raw)
			sub := BuildNeighborhood(g, g.Nodes[pick%n].ID)

			in := make(map[string]bool)
			for _, node := range sub.Nodes {
				in[node.ID] = true
			}
			for _, e := range sub.Edges {
				if !in[e.Source] || !in[e.Target] {
					return false
				}
			}
			return sub.EdgeCount == len(sub.Edges)
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

func TestBuildNeighborhood_UnknownFocus(t *testing.T) {
	g := abcdGraph()
	g.Edges = append(g.Edges, graph.Edge{Source: "zzz", Target: "A"})

	sub := BuildNeighborhood(g, "zzz")
	require.NotNil(t, sub)
	assert.Empty(t, sub.Nodes)
	assert.Empty(t, sub.Edges)
}
