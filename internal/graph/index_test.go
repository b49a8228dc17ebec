package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() *Graph {
	return &Graph{
		ProjectID: "p1",
		Nodes: []Node{
			{ID: "A", Label: "a.go", Folder: "pkg"},
			{ID: "B", Label: "b.go", Folder: "pkg"},
			{ID: "C", Label: "c.go"},
		},
		Edges: []Edge{
			{Source: "A", Target: "B", Kind: EdgeKindImport},
			{Source: "C", Target: "A", Kind: EdgeKindCall},
			{Source: "B", Target: "ghost", Kind: EdgeKindUses},
		},
	}
}

func TestIndex_Neighbours(t *testing.T) {
	idx := NewIndex(sampleGraph())

	assert.Equal(t, map[string]bool{"B": true, "C": true}, idx.Neighbours("A"))
	assert.Equal(t, map[string]bool{"A": true, "ghost": true}, idx.Neighbours("B"))
	assert.Empty(t, idx.Neighbours("missing"))
}

func TestIndex_HasNode(t *testing.T) {
	idx := NewIndex(sampleGraph())

	assert.True(t, idx.HasNode("C"))
	assert.False(t, idx.HasNode("ghost"), "edge endpoints are not nodes")
	assert.False(t, NewIndex(nil).HasNode("A"))
}

func TestIndex_SelfLoop(t *testing.T) {
	g := &Graph{Nodes: []Node{{ID: "A"}}, Edges: []Edge{{Source: "A", Target: "A"}}}
	idx := NewIndex(g)
	assert.Equal(t, map[string]bool{"A": true}, idx.Neighbours("A"))
}

func TestWithinFilters(t *testing.T) {
	g := sampleGraph()
	set := map[string]bool{"A": true, "B": true}

	nodes := NodesWithin(g.Nodes, set)
	edges := EdgesWithin(g.Edges, set)

	require.Len(t, nodes, 2)
	assert.Equal(t, "A", nodes[0].ID)
	assert.Equal(t, []Edge{{Source: "A", Target: "B", Kind: EdgeKindImport}}, edges)
}

func TestGraph_DeriveAndPath(t *testing.T) {
	g := sampleGraph()
	d := g.Derive(g.Nodes[:1], nil)

	assert.Equal(t, "p1", d.ProjectID)
	assert.Equal(t, 1, d.NodeCount)
	assert.Equal(t, 0, d.EdgeCount)
	assert.Equal(t, "pkg/a.go", g.Nodes[0].Path())
	assert.Equal(t, "c.go", g.Nodes[2].Path())

	n, ok := g.NodeByID("B")
	require.True(t, ok)
	assert.Equal(t, "b.go", n.Label)

	c := g.Clone()
	c.Nodes[0].Label = "changed"
	assert.Equal(t, "a.go", g.Nodes[0].Label)
}

func TestStatusInfo_String(t *testing.T) {
	n, m := 3, 4
	s := StatusInfo{Status: StatusReady, NodeCount: &n, EdgeCount: &m}
	assert.Equal(t, "ready (3 nodes, 4 edges)", s.String())
	assert.Equal(t, "missing (0 nodes, 0 edges)", StatusInfo{Status: StatusMissing}.String())
	assert.True(t, StatusBuilding.Valid())
	assert.False(t, Status("weird").Valid())
}
