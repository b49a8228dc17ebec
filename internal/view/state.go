package view

import (
	"github.com/linggen/linggen-editor/internal/graph"
	"github.com/linggen/linggen-editor/internal/query"
)

// ---------------------------------------------------------------------------
// Interaction constants
// ---------------------------------------------------------------------------

const (
	MinZoom = 0.2
	MaxZoom = 5.0

	zoomInFactor  = 1.1
	zoomOutFactor = 0.9

	// Labels are dropped below this zoom for graphs larger than
	// smallGraphNodes; the focus node always keeps its label.
	labelZoomThreshold = 0.9
	smallGraphNodes    = 40
)

// Point is a screen-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State is everything a graph view displays. Current is always derived
// from Full by the controller; it is never set independently.
type State struct {
	Mode     query.Mode     `json:"mode"`
	Zoom     float64        `json:"zoom"`
	Pan      Point          `json:"pan"`
	FocusID  string         `json:"focus_node_id,omitempty"`
	Full     *graph.Graph   `json:"full_graph,omitempty"`
	Current  *graph.Graph   `json:"graph,omitempty"`
	Viewport query.Viewport `json:"viewport"`
}

// Update is a pushed data change from the host. Graph alone replaces the
// full graph when FullGraph is nil. A nil FocusNodeID keeps the current
// focus; a pointer to "" clears it.
type Update struct {
	Graph       *graph.Graph
	FullGraph   *graph.Graph
	FocusNodeID *string
}

func clampZoom(z float64) float64 {
	return max(MinZoom, min(MaxZoom, z))
}
