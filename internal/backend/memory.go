package backend

import (
	"context"
	"fmt"
	"net/http"
)

// MemoryResult is one hit from the semantic memory search. The backend has
// used several field names over time, so most are optional.
type MemoryResult struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Path     string `json:"path,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
	Text     string `json:"text,omitempty"`
	SourceID string `json:"source_id,omitempty"`
}

// Location returns the memory's file path, preferring file_path.
func (r MemoryResult) Location() string {
	if r.FilePath != "" {
		return r.FilePath
	}
	return r.Path
}

type memorySearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type memorySearchResponse struct {
	Results []MemoryResult `json:"results"`
}

// SearchMemorySemantic runs POST /api/memory/search_semantic.
func (c *Client) SearchMemorySemantic(ctx context.Context, query string, limit int) ([]MemoryResult, error) {
	var resp memorySearchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/memory/search_semantic", nil, memoryTimeout,
		memorySearchRequest{Query: query, Limit: limit}, &resp); err != nil {
		return nil, fmt.Errorf("backend: memory search: %w", err)
	}
	if resp.Results == nil {
		return []MemoryResult{}, nil
	}
	return resp.Results, nil
}
