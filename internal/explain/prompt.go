// Package explain turns cross-project query results into a short,
// copy-pasteable prompt and renders it for display.
package explain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linggen/linggen-editor/internal/backend"
)

const (
	// QueryLimit is the number of chunks requested from the query endpoint.
	QueryLimit = 3
	// MemoryLimit is the number of memories requested; at most
	// maxMemories are listed.
	MemoryLimit = 5

	maxMemories    = 3
	memoryQueryCap = 1200
	unknownSource  = "unknown_source"
)

// Target is the code under explanation.
type Target struct {
	Path      string // workspace-relative when known, else absolute
	StartLine int    // 1-based, inclusive
	EndLine   int
	Code      string
}

// Location renders "path:start-end".
func (t Target) Location() string {
	return fmt.Sprintf("%s:%d-%d", t.Path, t.StartLine, t.EndLine)
}

// MemoryQuery is the text sent to the semantic memory search.
func (t Target) MemoryQuery() string {
	q := "Target file: " + t.Path + "\n" + t.Code
	if len(q) > memoryQueryCap {
		q = q[:memoryQueryCap]
	}
	return q
}

// ParseResults decodes a query endpoint reply. ok is false when the reply
// is not JSON, in which case the raw text should be shown as-is.
func ParseResults(raw string) (results []backend.QueryResult, ok bool) {
	var resp backend.QueryResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, false
	}
	return resp.Results, true
}

// PromptInput gathers everything BuildPrompt needs.
type PromptInput struct {
	Target    Target
	Results   []backend.QueryResult
	Memories  []backend.MemoryResult
	Resources []backend.Resource // for source id → name
}

// BuildPrompt builds the short prompt: instructions, the target, the
// de-duplicated context files and up to three related memories. Code
// excerpts from the results are never included.
func BuildPrompt(in PromptInput) string {
	names := make(map[string]string, len(in.Resources))
	for _, r := range in.Resources {
		names[r.ID] = r.Name
	}
	sourceName := func(sid string) string {
		if sid == "" {
			return unknownSource
		}
		if n, ok := names[sid]; ok {
			return n
		}
		return sid
	}

	lines := []string{
		"Linggen MCP is the memory layer, indexed related projects.",
		"Call Linggen MCP first, list tools of it.",
		"Find out on context files from Linggen MCP.",
		"Explain the relationship between the target file and the context files.",
		"Target file: " + in.Target.Location(),
		"Target code: " + in.Target.Code,
		"",
	}

	if len(in.Results) > 0 {
		lines = append(lines, "Context files:")
		seen := make(map[string]struct{}, len(in.Results))
		for _, r := range in.Results {
			key := r.SourceID + "::" + r.DocumentID
			if r.SourceID == "" {
				key = unknownSource + "::" + r.DocumentID
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if r.DocumentID != "" {
				lines = append(lines, "- "+sourceName(r.SourceID)+": "+r.DocumentID)
			} else {
				lines = append(lines, "- "+sourceName(r.SourceID))
			}
		}
	} else {
		lines = append(lines, "Context sources: (none returned)")
	}

	if len(in.Memories) > 0 {
		lines = append(lines, "", "Related memories:")
		for i, m := range in.Memories {
			if i == maxMemories {
				break
			}
			label := m.Location()
			if label == "" {
				label = m.Title
			}
			if label == "" {
				label = m.ID
			}
			if label == "" {
				label = "memory"
			}
			lines = append(lines, "- "+sourceName(m.SourceID)+": "+label)
		}
	}

	return strings.Join(lines, "\n")
}
