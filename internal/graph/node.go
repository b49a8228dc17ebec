package graph

import "strings"

// ---------------------------------------------------------------------------
// Node
// ---------------------------------------------------------------------------

// Node is a single file-level entity in a source's dependency graph as
// returned by the Linggen backend.
type Node struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Language string `json:"language"`
	Folder   string `json:"folder"`
}

// Path returns the node's repository-relative path reconstructed from its
// folder and label ("folder/label", or just the label at top level).
func (n Node) Path() string {
	if n.Folder == "" {
		return n.Label
	}
	return strings.TrimSuffix(n.Folder, "/") + "/" + n.Label
}
