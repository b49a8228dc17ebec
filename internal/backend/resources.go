package backend

import (
	"context"
	"fmt"
	"net/http"
)

// ---------------------------------------------------------------------------
// Resource types
// ---------------------------------------------------------------------------

// ResourceType is the kind of location a resource points at.
type ResourceType string

const (
	ResourceGit     ResourceType = "git"
	ResourceLocal   ResourceType = "local"
	ResourceWeb     ResourceType = "web"
	ResourceUploads ResourceType = "uploads"
)

// Resource is a project or folder registered with the backend.
type Resource struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	ResourceType    ResourceType `json:"resource_type"`
	Path            string       `json:"path"`
	Enabled         bool         `json:"enabled"`
	IncludePatterns []string     `json:"include_patterns"`
	ExcludePatterns []string     `json:"exclude_patterns"`
}

// CreateResourceRequest is the body of POST /api/resources.
type CreateResourceRequest struct {
	Name            string       `json:"name"`
	ResourceType    ResourceType `json:"resource_type"`
	Path            string       `json:"path"`
	IncludePatterns []string     `json:"include_patterns"`
	ExcludePatterns []string     `json:"exclude_patterns"`
}

// CreateResourceResponse is the body returned by POST /api/resources.
type CreateResourceResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listResourcesResponse struct {
	Resources []Resource `json:"resources"`
}

// ---------------------------------------------------------------------------
// Endpoints
// ---------------------------------------------------------------------------

// ListResources returns every registered resource. A missing list in the
// response is treated as empty.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	var resp listResourcesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/resources", nil, listTimeout, nil, &resp); err != nil {
		return nil, fmt.Errorf("backend: list resources: %w", err)
	}
	if resp.Resources == nil {
		return []Resource{}, nil
	}
	return resp.Resources, nil
}

// CreateResource registers a new resource. Nil pattern lists are sent as
// empty arrays.
func (c *Client) CreateResource(ctx context.Context, req CreateResourceRequest) (*CreateResourceResponse, error) {
	if req.IncludePatterns == nil {
		req.IncludePatterns = []string{}
	}
	if req.ExcludePatterns == nil {
		req.ExcludePatterns = []string{}
	}
	var resp CreateResourceResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/resources", nil, listTimeout, req, &resp); err != nil {
		return nil, fmt.Errorf("backend: create resource: %w", err)
	}
	return &resp, nil
}
