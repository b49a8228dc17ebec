package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/linggen/linggen-editor/internal/graph"
)

// GraphQuery narrows a server-side graph fetch. Zero values are omitted.
type GraphQuery struct {
	Folder string
	Focus  string
	Hops   int
}

func (q GraphQuery) values() url.Values {
	v := url.Values{}
	if q.Folder != "" {
		v.Set("folder", q.Folder)
	}
	if q.Focus != "" {
		v.Set("focus", q.Focus)
	}
	if q.Hops > 0 {
		v.Set("hops", strconv.Itoa(q.Hops))
	}
	return v
}

func sourcePath(sourceID, suffix string) string {
	return "/api/sources/" + url.PathEscape(sourceID) + "/graph" + suffix
}

// GetGraphStatus returns the build state of a source's graph.
func (c *Client) GetGraphStatus(ctx context.Context, sourceID string) (*graph.StatusInfo, error) {
	var resp graph.StatusInfo
	if err := c.doJSON(ctx, http.MethodGet, sourcePath(sourceID, "/status"), nil, statusTimeout, nil, &resp); err != nil {
		return nil, fmt.Errorf("backend: graph status %s: %w", sourceID, err)
	}
	return &resp, nil
}

// GetGraph fetches a source's graph, optionally narrowed by q.
func (c *Client) GetGraph(ctx context.Context, sourceID string, q GraphQuery) (*graph.Graph, error) {
	var g graph.Graph
	if err := c.doJSON(ctx, http.MethodGet, sourcePath(sourceID, ""), q.values(), graphTimeout, nil, &g); err != nil {
		return nil, fmt.Errorf("backend: graph %s: %w", sourceID, err)
	}
	normalise(&g)
	return &g, nil
}

// GetGraphWithStatus fetches the full graph with its build status and
// counts merged in.
func (c *Client) GetGraphWithStatus(ctx context.Context, sourceID string) (*graph.Graph, error) {
	var g graph.Graph
	if err := c.doJSON(ctx, http.MethodGet, sourcePath(sourceID, "/with_status"), nil, graphTimeout, nil, &g); err != nil {
		return nil, fmt.Errorf("backend: graph with status %s: %w", sourceID, err)
	}
	normalise(&g)
	return &g, nil
}

// normalise replaces nil slices and fills counts the backend left out.
func normalise(g *graph.Graph) {
	if g.Nodes == nil {
		g.Nodes = []graph.Node{}
	}
	if g.Edges == nil {
		g.Edges = []graph.Edge{}
	}
	if g.NodeCount == 0 {
		g.NodeCount = len(g.Nodes)
	}
	if g.EdgeCount == 0 {
		g.EdgeCount = len(g.Edges)
	}
}
