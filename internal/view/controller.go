package view

import (
	"github.com/linggen/linggen-editor/internal/graph"
	"github.com/linggen/linggen-editor/internal/query"
)

// Controller owns one view's State and applies interactions to it. It is
// not safe for concurrent use; a single event loop drives it.
type Controller struct {
	state State

	dragging bool
	nodeGrab bool
	last     Point
}

// NewController returns a controller in focus mode at zoom 1 with no data.
func NewController(vp query.Viewport) *Controller {
	return &Controller{state: State{
		Mode:     query.ModeFocus,
		Zoom:     1,
		Viewport: vp,
	}}
}

// State returns a copy of the current view state.
func (c *Controller) State() State { return c.state }

// HasData reports whether a graph has been applied.
func (c *Controller) HasData() bool { return c.state.Full != nil }

// ============================== DATA =====================================

// Apply installs pushed data and re-derives the current graph for the
// active mode. Pan and zoom are left untouched. A focus id that is not a
// node of the new full graph is dropped.
func (c *Controller) Apply(u Update) {
	switch {
	case u.FullGraph != nil:
		c.state.Full = u.FullGraph
	case u.Graph != nil:
		c.state.Full = u.Graph
	}
	if u.FocusNodeID != nil {
		c.state.FocusID = *u.FocusNodeID
	}
	if _, ok := c.state.Full.NodeByID(c.state.FocusID); !ok {
		c.state.FocusID = ""
	}
	c.derive()
}

// derive recomputes Current from Full.
func (c *Controller) derive() {
	if c.state.Full == nil {
		c.state.Current = nil
		return
	}
	if c.state.Mode == query.ModeAll {
		c.state.Current = c.state.Full
		return
	}
	c.state.Current = query.BuildNeighborhood(c.state.Full, c.state.FocusID)
}

// ============================== ZOOM / PAN ================================

// Wheel zooms by one step anchored at cursor: negative deltaY zooms in.
// The point under the cursor stays fixed. It reports whether the zoom
// changed.
func (c *Controller) Wheel(deltaY float64, cursor Point) bool {
	factor := zoomOutFactor
	if deltaY < 0 {
		factor = zoomInFactor
	}
	old := c.state.Zoom
	next := clampZoom(old * factor)
	if next == old {
		return false
	}
	ratio := next / old
	c.state.Pan = Point{
		X: cursor.X - ratio*(cursor.X-c.state.Pan.X),
		Y: cursor.Y - ratio*(cursor.Y-c.state.Pan.Y),
	}
	c.state.Zoom = next
	return true
}

// NodeDown marks that the next drag starts on a node and must not pan.
func (c *Controller) NodeDown() {
	c.nodeGrab = true
}

// DragStart begins a background pan at p unless a node was grabbed.
func (c *Controller) DragStart(p Point) {
	c.dragging = !c.nodeGrab
	c.last = p
}

// DragMove accumulates the pointer delta into the pan offset. It reports
// whether the pan changed.
func (c *Controller) DragMove(p Point) bool {
	if !c.dragging {
		return false
	}
	dx, dy := p.X-c.last.X, p.Y-c.last.Y
	c.last = p
	if dx == 0 && dy == 0 {
		return false
	}
	c.state.Pan.X += dx
	c.state.Pan.Y += dy
	return true
}

// DragEnd finishes any drag.
func (c *Controller) DragEnd() {
	c.dragging = false
	c.nodeGrab = false
}

// Resize updates the viewport.
func (c *Controller) Resize(vp query.Viewport) bool {
	if vp.Width <= 0 || vp.Height <= 0 || vp == c.state.Viewport {
		return false
	}
	c.state.Viewport = vp
	return true
}

// ============================== FOCUS / MODE ==============================

// Click refocuses on nodeID, switching to focus mode. Ids that are not in
// the full graph are ignored.
func (c *Controller) Click(nodeID string) bool {
	if _, ok := c.state.Full.NodeByID(nodeID); !ok {
		return false
	}
	c.state.FocusID = nodeID
	c.state.Mode = query.ModeFocus
	c.derive()
	return true
}

// ToggleMode switches between focus and all, re-deriving from the cached
// full graph.
func (c *Controller) ToggleMode() {
	c.state.Mode = c.state.Mode.Toggle()
	c.derive()
}

// ============================== LABELS ====================================

// LabelVisible reports whether nodeID's label is drawn at the current zoom.
func (c *Controller) LabelVisible(nodeID string) bool {
	return labelVisible(c.state, nodeID)
}

func labelVisible(s State, nodeID string) bool {
	if nodeID != "" && nodeID == s.FocusID {
		return true
	}
	if s.Zoom >= labelZoomThreshold {
		return true
	}
	return s.Current != nil && len(s.Current.Nodes) <= smallGraphNodes
}

// Positions lays out the current graph.
func (c *Controller) Positions() map[string]query.Position {
	return positionsFor(c.state)
}

func positionsFor(s State) map[string]query.Position {
	var nodes []graph.Node
	if s.Current != nil {
		nodes = s.Current.Nodes
	}
	return query.ComputeLayout(nodes, s.FocusID, s.Mode, s.Viewport)
}
