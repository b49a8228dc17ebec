package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linggen/linggen-editor/internal/backend"
	"github.com/linggen/linggen-editor/internal/explain"
	"github.com/linggen/linggen-editor/internal/resource"
)

// ExplainTitle names the rendered explanation document.
const ExplainTitle = "Linggen Explain"

// contextLines is the number of lines taken on each side of the cursor
// when nothing is selected.
const contextLines = 10

// ExplainRequest is the code to explain.
type ExplainRequest struct {
	Target
	StartLine int // 1-based, inclusive
	EndLine   int
	Code      string
}

// Explanation is the result of ExplainAcrossProjects.
type Explanation struct {
	SourceID string // resolved current source, "" when unresolved
	Raw      string // the query endpoint's reply
	Markdown string
	HTML     []byte
}

// Snippet selects lines from content. With a selection (start > 0) it
// returns lines start..end; otherwise the lines within ten of cursor. All
// numbers are 1-based and clamped to the content.
func Snippet(content string, start, end, cursor int) (code string, from, to int) {
	lines := strings.Split(content, "\n")
	last := len(lines)
	clamp := func(n int) int { return max(1, min(last, n)) }

	if start > 0 {
		from, to = clamp(min(start, end)), clamp(max(start, end))
	} else {
		from, to = clamp(cursor-contextLines), clamp(cursor+contextLines)
	}
	return strings.Join(lines[from-1:to], "\n"), from, to
}

// ExplainAcrossProjects queries the other indexed projects for code
// related to req, adds related memories and renders a short prompt the
// user can paste into an assistant. The current project is excluded from
// the query when it can be resolved.
func (c *Commands) ExplainAcrossProjects(ctx context.Context, req ExplainRequest) (*Explanation, error) {
	if !c.client.CheckServerHealth(ctx) {
		c.notifier.Info(ctx, "Linggen is not running. Start it: linggen")
		return nil, ErrOffline
	}

	display, _ := req.workspaceRelative()
	out := &Explanation{}

	resources, err := c.client.ListResources(ctx)
	if err != nil {
		slog.Warn("explain: failed to resolve current source", "error", err)
	} else if match := resource.ResolveResource(resources, req.Path, req.WorkspaceRoot); match != nil {
		out.SourceID = match.ID
		slog.Info("explain: resolved current source",
			"source_id", match.ID, "name", match.Name, "exclude_source_id", match.ID)
	} else {
		slog.Info("explain: could not resolve current source; exclude_source_id will not be applied")
	}

	query := req.Code
	if query == "" {
		query = display
	}
	endpoint := c.client.JoinURL(c.explainEndpoint)
	slog.Info("explain across projects", "endpoint", endpoint,
		"context", fmt.Sprintf("%s:%d-%d", display, req.StartLine, req.EndLine))

	raw, err := c.client.QueryAcrossProjects(ctx, c.explainEndpoint, backend.QueryRequest{
		Query:           query,
		Limit:           explain.QueryLimit,
		ExcludeSourceID: out.SourceID,
	})
	if err != nil {
		var httpErr *backend.HTTPError
		if errors.As(err, &httpErr) {
			slog.Error("explain failed", "status", httpErr.Status, "body", httpErr.Body)
			c.notifier.Error(ctx, "Linggen explain failed (HTTP %d). See the log for details.", httpErr.Status)
		} else {
			slog.Error("explain request failed", "error", err)
			c.notifier.Error(ctx, "Linggen explain request failed. See the log for details.")
		}
		return nil, fmt.Errorf("host: explain: %w", err)
	}
	out.Raw = raw
	slog.Debug("explain response", "body", raw)

	text := raw
	if results, ok := explain.ParseResults(raw); ok {
		target := explain.Target{Path: display, StartLine: req.StartLine, EndLine: req.EndLine, Code: req.Code}
		memories, err := c.client.SearchMemorySemantic(ctx, target.MemoryQuery(), explain.MemoryLimit)
		if err != nil {
			slog.Debug("memory search unavailable", "error", err)
		}
		text = explain.BuildPrompt(explain.PromptInput{
			Target:    target,
			Results:   results,
			Memories:  memories,
			Resources: resources,
		})
	}

	out.Markdown = explain.FormatAsMarkdown(text)
	html, err := explain.RenderHTML(ExplainTitle, out.Markdown)
	if err != nil {
		return nil, fmt.Errorf("host: explain: render: %w", err)
	}
	out.HTML = html
	c.notifier.Info(ctx, "Linggen: explanation received.")
	return out, nil
}
