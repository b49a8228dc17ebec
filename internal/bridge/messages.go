package bridge

import (
	"github.com/linggen/linggen-editor/internal/graph"
	"github.com/linggen/linggen-editor/internal/view"
)

// ---------------------------------------------------------------------------
// View → host
// ---------------------------------------------------------------------------

// HostMessageType names a request a view sends to its host.
type HostMessageType string

const (
	// MsgRefresh asks the host to fetch a fresh graph.
	MsgRefresh HostMessageType = "refresh"
	// MsgOpenLinggen asks the host to open the backend's web UI.
	MsgOpenLinggen HostMessageType = "openLinggen"
)

// HostMessage is an outbound message from a view.
type HostMessage struct {
	Type HostMessageType `json:"type"`
}

// ---------------------------------------------------------------------------
// Host → view
// ---------------------------------------------------------------------------

// ViewMessageType names a push from the host to a view.
type ViewMessageType string

const (
	// MsgGraphData carries new graph data and/or a focus id.
	MsgGraphData ViewMessageType = "graphData"
	// MsgShowMessage replaces the canvas with a status or error text.
	MsgShowMessage ViewMessageType = "message"
)

// ViewMessage is an inbound push. For graphData, FocusNodeID nil keeps the
// view's current focus.
type ViewMessage struct {
	Type        ViewMessageType `json:"type"`
	Graph       *graph.Graph    `json:"graph,omitempty"`
	FullGraph   *graph.Graph    `json:"fullGraph,omitempty"`
	FocusNodeID *string         `json:"focusNodeId"`
	Text        string          `json:"text,omitempty"`
	Error       bool            `json:"error,omitempty"`
}

// GraphData builds a graphData push.
func GraphData(current, full *graph.Graph, focusID string) ViewMessage {
	return ViewMessage{Type: MsgGraphData, Graph: current, FullGraph: full, FocusNodeID: &focusID}
}

// ShowMessage builds a placeholder push.
func ShowMessage(text string, isError bool) ViewMessage {
	return ViewMessage{Type: MsgShowMessage, Text: text, Error: isError}
}

func (m ViewMessage) update() view.Update {
	return view.Update{Graph: m.Graph, FullGraph: m.FullGraph, FocusNodeID: m.FocusNodeID}
}

// ---------------------------------------------------------------------------
// Surface → view
// ---------------------------------------------------------------------------

// UIEventType names a raw interaction reported by the rendering surface.
type UIEventType string

const (
	EventWheel       UIEventType = "wheel"
	EventDragStart   UIEventType = "dragStart"
	EventDragMove    UIEventType = "dragMove"
	EventDragEnd     UIEventType = "dragEnd"
	EventNodeDown    UIEventType = "nodeDown"
	EventClick       UIEventType = "click"
	EventToggleMode  UIEventType = "toggleMode"
	EventResize      UIEventType = "resize"
	EventRefresh     UIEventType = "refresh"
	EventOpenLinggen UIEventType = "openLinggen"
)

// UIEvent is one interaction from the surface. Fields not relevant to Type
// stay zero.
type UIEvent struct {
	Type   UIEventType `json:"type"`
	DeltaY float64     `json:"deltaY,omitempty"`
	X      float64     `json:"x,omitempty"`
	Y      float64     `json:"y,omitempty"`
	Width  float64     `json:"width,omitempty"`
	Height float64     `json:"height,omitempty"`
	NodeID string      `json:"nodeId,omitempty"`
}

// ---------------------------------------------------------------------------
// View → surface
// ---------------------------------------------------------------------------

// surfaceFrame is what the page script receives.
type surfaceFrame struct {
	Type  string  `json:"type"` // "frame" | "message"
	SVG   string  `json:"svg,omitempty"`
	Meta  string  `json:"meta,omitempty"`
	Mode  string  `json:"mode,omitempty"`
	Zoom  float64 `json:"zoom,omitempty"`
	Text  string  `json:"text,omitempty"`
	Error bool    `json:"error,omitempty"`
}
