package query

import (
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linggen/linggen-editor/internal/graph"
)

func makeNodes(n int) []graph.Node {
	nodes := make([]graph.Node, n)
	for i := range nodes {
		nodes[i] = graph.Node{ID: fmt.Sprintf("n%d", i)}
	}
	return nodes
}

func dist(a, b Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestComputeLayout_Empty(t *testing.T) {
	vp := Viewport{Width: 800, Height: 600}
	assert.Empty(t, ComputeLayout(nil, "", ModeFocus, vp))
	assert.Empty(t, ComputeLayout(nil, "", ModeAll, vp))
}

func TestComputeLayout_FocusRing(t *testing.T) {
	vp := Viewport{Width: 1000, Height: 600}
	nodes := makeNodes(5)
	pos := ComputeLayout(nodes, "n2", ModeFocus, vp)

	require.Len(t, pos, 5)
	assert.Equal(t, Position{X: 500, Y: 300}, pos["n2"])

	radius := 0.32 * 600
	for _, id := range []string{"n0", "n1", "n3", "n4"} {
		assert.InDelta(t, radius, dist(pos[id], vp.Center()), 1e-9, id)
	}
	// n0 takes slot 0 (angle 0); n3 takes slot 2 (angle π).
	assert.InDelta(t, 500+radius, pos["n0"].X, 1e-9)
	assert.InDelta(t, 500-radius, pos["n3"].X, 1e-9)
}

func TestComputeLayout_FocusFallsBackToFirstNode(t *testing.T) {
	vp := Viewport{Width: 400, Height: 400}
	pos := ComputeLayout(makeNodes(3), "missing", ModeFocus, vp)
	assert.Equal(t, vp.Center(), pos["n0"])
}

func TestComputeLayout_SingleNodeCentered(t *testing.T) {
	vp := Viewport{Width: 300, Height: 200}
	pos := ComputeLayout(makeNodes(1), "n0", ModeFocus, vp)
	assert.Equal(t, Position{X: 150, Y: 100}, pos["n0"])
}

func TestComputeLayout_AllRings(t *testing.T) {
	vp := Viewport{Width: 1000, Height: 1000}
	nodes := makeNodes(40)
	pos := ComputeLayout(nodes, "", ModeAll, vp)

	require.Len(t, pos, 40)
	base, gap := 180.0, 120.0
	for i := 0; i < 32; i++ {
		assert.InDelta(t, base, dist(pos[nodes[i].ID], vp.Center()), 1e-9)
	}
	for i := 32; i < 40; i++ {
		assert.InDelta(t, base+gap, dist(pos[nodes[i].ID], vp.Center()), 1e-9)
	}
	// The outer ring has 8 nodes, so n36 sits at slot 4 of 8 (angle π).
	assert.InDelta(t, 500-(base+gap), pos["n36"].X, 1e-9)
}

func TestComputeLayout_Deterministic(t *testing.T) {
	vp := Viewport{Width: 640, Height: 480}
	nodes := makeNodes(50)
	assert.Equal(t, ComputeLayout(nodes, "n7", ModeFocus, vp), ComputeLayout(nodes, "n7", ModeFocus, vp))
	assert.Equal(t, ComputeLayout(nodes, "", ModeAll, vp), ComputeLayout(nodes, "", ModeAll, vp))
}

func TestComputeLayout_FocusCenterProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("focus node sits at the exact viewport centre", prop.ForAll(
		func(n, pick int, w, h float64) bool {
			nodes := makeNodes(n)
			focus := nodes[pick%n].ID
			vp := Viewport{Width: w, Height: h}
			pos := ComputeLayout(nodes, focus, ModeFocus, vp)
			return pos[focus] == Position{X: w / 2, Y: h / 2} && len(pos) == n
		},
		gen.IntRange(1, 80),
		gen.IntRange(0, 1000),
		gen.Float64Range(1, 4000),
		gen.Float64Range(1, 4000),
	))

	properties.TestingRun(t)
}

func TestMode_Toggle(t *testing.T) {
	assert.Equal(t, ModeAll, ModeFocus.Toggle())
	assert.Equal(t, ModeFocus, ModeAll.Toggle())
	assert.True(t, ModeAll.Valid())
	assert.False(t, Mode("grid").Valid())
}
