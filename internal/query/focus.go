package query

import (
	"path"
	"strings"

	"github.com/linggen/linggen-editor/internal/graph"
)

// ---------------------------------------------------------------------------
// FocusTarget
// ---------------------------------------------------------------------------

// FocusTarget is the file (or folder) the user is looking at, expressed
// relative to the root of the resolved source with forward slashes.
type FocusTarget struct {
	Path   string `json:"path"`   // full relative path, e.g. "src/app/main.go"
	Label  string `json:"label"`  // base name, e.g. "main.go"
	Folder string `json:"folder"` // parent folder, "" at top level
}

// NewFocusTarget splits a relative POSIX path into its label and parent
// folder. Backslashes are normalised and leading "./" or "/" is dropped.
func NewFocusTarget(rel string) FocusTarget {
	p := strings.ReplaceAll(rel, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")

	t := FocusTarget{Path: p, Label: path.Base(p)}
	if p == "" {
		t.Label = ""
	}
	if i := strings.LastIndex(p, "/"); i >= 0 {
		t.Folder = p[:i]
	}
	return t
}

// matches applies the three folder conventions the indexer is known to use.
// The second and third conditions can both hold for the same node; the
// caller takes the first matching node in array order regardless.
func (t FocusTarget) matches(n graph.Node) bool {
	if n.Label != t.Label {
		return false
	}
	return n.Folder == t.Folder ||
		n.Folder == t.Path ||
		n.Folder+"/"+n.Label == t.Path
}

// ResolveFocusNode returns the id of the first node in g (array order) that
// corresponds to target, or "" when nothing matches.
func ResolveFocusNode(g *graph.Graph, target FocusTarget) string {
	if g == nil || target.Label == "" {
		return ""
	}
	for _, n := range g.Nodes {
		if target.matches(n) {
			return n.ID
		}
	}
	return ""
}
