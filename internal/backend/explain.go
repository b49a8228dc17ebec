package backend

import (
	"context"
	"fmt"
	"net/http"
)

// QueryRequest is the body posted to the cross-project query endpoint.
type QueryRequest struct {
	Query           string `json:"query"`
	Limit           int    `json:"limit"`
	ExcludeSourceID string `json:"exclude_source_id,omitempty"`
}

// QueryResult is one retrieved chunk. DocumentID carries the file path.
type QueryResult struct {
	SourceID   string `json:"source_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Content    string `json:"content,omitempty"`
}

// QueryResponse is the parsed form of the query endpoint's reply.
type QueryResponse struct {
	Results []QueryResult `json:"results"`
}

// QueryAcrossProjects posts req to endpoint (e.g. "/api/query") and returns
// the raw response text. The reply is not always JSON, so parsing is left
// to the caller.
func (c *Client) QueryAcrossProjects(ctx context.Context, endpoint string, req QueryRequest) (string, error) {
	text, err := c.doRaw(ctx, http.MethodPost, endpoint, explainTimeout, req)
	if err != nil {
		return "", fmt.Errorf("backend: query %s: %w", endpoint, err)
	}
	return text, nil
}
