package view

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/linggen/linggen-editor/internal/query"
)

// ---------------------------------------------------------------------------
// Styling
// ---------------------------------------------------------------------------

const (
	focusRadius  = 11.0
	nodeRadius   = 7.0
	focusFill    = "#f97316"
	nodeFill     = "#38bdf8"
	nodeStroke   = "rgba(15,23,42,0.9)"
	edgeStroke   = "rgba(148,163,184,0.5)"
	labelOffsetY = 6.0
)

// ---------------------------------------------------------------------------
// Frame
// ---------------------------------------------------------------------------

// Frame is one rendered picture of a view, ready for the surface.
type Frame struct {
	SVG   template.HTML `json:"svg"`
	Meta  string        `json:"meta"`
	Mode  query.Mode    `json:"mode"`
	Zoom  float64       `json:"zoom"`
	Nodes int           `json:"nodes"`
	Edges int           `json:"edges"`
}

type svgEdge struct {
	X1, Y1, X2, Y2 float64
	Kind           string
}

type svgNode struct {
	ID, Label, Language string
	X, Y, R             float64
	Fill                string
	Focus, ShowLabel    bool
	LabelY              float64
}

type svgData struct {
	Width, Height float64
	PanX, PanY    float64
	Zoom          float64
	Edges         []svgEdge
	Nodes         []svgNode
	NodeStroke    string
	EdgeStroke    string
}

var svgTmpl = template.Must(template.New("graph").Funcs(template.FuncMap{
	"f": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{f .Width}}" height="{{f .Height}}" data-role="canvas">
<g transform="translate({{f .PanX}} {{f .PanY}}) scale({{f .Zoom}})">
<g class="edges">{{range .Edges}}
<line x1="{{f .X1}}" y1="{{f .Y1}}" x2="{{f .X2}}" y2="{{f .Y2}}" stroke="{{$.EdgeStroke}}" stroke-width="1" data-kind="{{.Kind}}"/>{{end}}
</g>
<g class="nodes">{{range .Nodes}}
<g class="node{{if .Focus}} focus{{end}}" data-id="{{.ID}}" transform="translate({{f .X}} {{f .Y}})">
<circle r="{{f .R}}" fill="{{.Fill}}" stroke="{{$.NodeStroke}}" stroke-width="1.5"><title>{{.Label}}{{if .Language}} ({{.Language}}){{end}}</title></circle>{{if .ShowLabel}}
<text y="{{f .LabelY}}" text-anchor="middle" font-size="11" fill="#e2e8f0">{{.Label}}</text>{{end}}
</g>{{end}}
</g>
</g>
</svg>`))

// Render draws s. Edges whose endpoints have no position are skipped, so
// malformed graphs still render.
func Render(s State) (Frame, error) {
	pos := positionsFor(s)
	data := svgData{
		Width:      s.Viewport.Width,
		Height:     s.Viewport.Height,
		PanX:       s.Pan.X,
		PanY:       s.Pan.Y,
		Zoom:       s.Zoom,
		NodeStroke: nodeStroke,
		EdgeStroke: edgeStroke,
	}

	if s.Current != nil {
		for _, e := range s.Current.Edges {
			a, okA := pos[e.Source]
			b, okB := pos[e.Target]
			if !okA || !okB {
				continue
			}
			data.Edges = append(data.Edges, svgEdge{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y, Kind: e.Kind})
		}
		seen := make(map[string]bool, len(s.Current.Nodes))
		for _, n := range s.Current.Nodes {
			p, ok := pos[n.ID]
			if !ok || seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			focus := n.ID == s.FocusID
			r, fill := nodeRadius, nodeFill
			if focus {
				r, fill = focusRadius, focusFill
			}
			data.Nodes = append(data.Nodes, svgNode{
				ID:        n.ID,
				Label:     n.Label,
				Language:  n.Language,
				X:         p.X,
				Y:         p.Y,
				R:         r,
				Fill:      fill,
				Focus:     focus,
				ShowLabel: labelVisible(s, n.ID),
				LabelY:    -r - labelOffsetY,
			})
		}
	}

	var buf bytes.Buffer
	if err := svgTmpl.Execute(&buf, data); err != nil {
		return Frame{}, fmt.Errorf("view: render svg: %w", err)
	}
	return Frame{
		SVG:   template.HTML(buf.String()),
		Meta:  fmt.Sprintf("%d nodes · %d edges", len(data.Nodes), len(data.Edges)),
		Mode:  s.Mode,
		Zoom:  s.Zoom,
		Nodes: len(data.Nodes),
		Edges: len(data.Edges),
	}, nil
}
