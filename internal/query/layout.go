package query

import (
	"math"

	"github.com/linggen/linggen-editor/internal/graph"
)

// ---------------------------------------------------------------------------
// Layout types
// ---------------------------------------------------------------------------

// Mode selects which derived graph the view shows.
type Mode string

const (
	ModeFocus Mode = "focus" // focus node and its neighbourhood
	ModeAll   Mode = "all"   // the whole source graph
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeFocus || m == ModeAll }

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeAll {
		return ModeFocus
	}
	return ModeAll
}

// Position is an (x, y) coordinate in viewport space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the drawable area in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the viewport.
func (v Viewport) Center() Position {
	return Position{X: v.Width / 2, Y: v.Height / 2}
}

func (v Viewport) minSide() float64 {
	return math.Min(v.Width, v.Height)
}

const (
	focusRadiusFactor = 0.32
	ringCapacity      = 32
	ringBaseFactor    = 0.18
	ringGapFactor     = 0.12
)

// ---------------------------------------------------------------------------
// ComputeLayout
// ---------------------------------------------------------------------------

// ComputeLayout places nodes for the given mode. It is a pure function of
// its inputs: the same node order, focus and viewport always give the same
// positions. Edges do not influence placement. An empty node list gives an
// empty map.
func ComputeLayout(nodes []graph.Node, focusID string, mode Mode, vp Viewport) map[string]Position {
	positions := make(map[string]Position, len(nodes))
	if len(nodes) == 0 {
		return positions
	}
	if mode == ModeAll {
		placeRings(positions, nodes, vp)
	} else {
		placeFocusRing(positions, nodes, focusID, vp)
	}
	return positions
}

// placeFocusRing centres the focus node (or the first node when focusID is
// absent from nodes) and spreads the rest evenly over one full circle.
func placeFocusRing(positions map[string]Position, nodes []graph.Node, focusID string, vp Viewport) {
	centerIdx := 0
	for i, n := range nodes {
		if n.ID == focusID {
			centerIdx = i
			break
		}
	}

	c := vp.Center()
	radius := vp.minSide() * focusRadiusFactor
	slots := float64(max(1, len(nodes)-1))

	for i, n := range nodes {
		if i == centerIdx {
			continue
		}
		k := i
		if i > centerIdx {
			k = i - 1
		}
		angle := 2.0 * math.Pi * float64(k) / slots
		positions[n.ID] = Position{
			X: c.X + radius*math.Cos(angle),
			Y: c.Y + radius*math.Sin(angle),
		}
	}
	// Written last so a duplicate id elsewhere in the list cannot move it.
	positions[nodes[centerIdx].ID] = c
}

// placeRings distributes nodes over concentric rings of at most
// ringCapacity nodes, each ring spaced evenly by its real occupancy.
func placeRings(positions map[string]Position, nodes []graph.Node, vp Viewport) {
	c := vp.Center()
	base := vp.minSide() * ringBaseFactor
	gap := vp.minSide() * ringGapFactor

	for i, n := range nodes {
		ring := i / ringCapacity
		slot := i % ringCapacity
		occupancy := min(ringCapacity, len(nodes)-ring*ringCapacity)

		radius := base + float64(ring)*gap
		angle := 2.0 * math.Pi * float64(slot) / float64(occupancy)
		if _, exists := positions[n.ID]; exists {
			continue
		}
		positions[n.ID] = Position{
			X: c.X + radius*math.Cos(angle),
			Y: c.Y + radius*math.Sin(angle),
		}
	}
}
