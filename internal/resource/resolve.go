package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/linggen/linggen-editor/internal/backend"
)

// ErrNotFound is returned when no registered resource matches a workspace
// and creation was not requested.
var ErrNotFound = errors.New("no Linggen source matches this workspace")

// ---------------------------------------------------------------------------
// Pass 1: path overlap
// ---------------------------------------------------------------------------

// FindResourceForPath returns the resource whose path is a prefix of fsPath
// or has fsPath as a prefix. Candidates rank by the larger of the two path
// lengths, then by the resource path's own length, so the deepest
// registered root wins. Full ties keep the earlier resource.
func FindResourceForPath(resources []backend.Resource, fsPath string) *backend.Resource {
	var best *backend.Resource
	bestLen, bestOwn := -1, -1
	for i := range resources {
		r := &resources[i]
		if r.Path == "" {
			continue
		}
		if !strings.HasPrefix(fsPath, r.Path) && !strings.HasPrefix(r.Path, fsPath) {
			continue
		}
		l := max(len(r.Path), len(fsPath))
		if l > bestLen || (l == bestLen && len(r.Path) > bestOwn) {
			bestLen, bestOwn = l, len(r.Path)
			best = r
		}
	}
	return best
}

// ---------------------------------------------------------------------------
// Pass 2: base-name heuristic
// ---------------------------------------------------------------------------

const (
	scoreNameMatch     = 10
	scoreBasenameMatch = 8
	maxLengthBonus     = 5
)

// matchByName scores resources against folderName. A zero base score
// excludes the resource; the best strictly-greater score wins.
func matchByName(resources []backend.Resource, folderName string) *backend.Resource {
	if folderName == "" || folderName == "." || folderName == "/" {
		return nil
	}
	var best *backend.Resource
	bestScore := -1
	for i := range resources {
		r := &resources[i]
		score := 0
		if r.Name == folderName {
			score += scoreNameMatch
		}
		if baseName(r.Path) == folderName {
			score += scoreBasenameMatch
		}
		if score == 0 {
			continue
		}
		score += min(maxLengthBonus, len(r.Path)/20)
		if score > bestScore {
			bestScore = score
			best = r
		}
	}
	return best
}

// ResolveResource runs the path-overlap pass against targetPath and falls
// back to matching the workspace folder name (or targetPath's base name
// when workspaceRoot is empty). It returns nil when neither pass matches.
func ResolveResource(resources []backend.Resource, targetPath, workspaceRoot string) *backend.Resource {
	if r := FindResourceForPath(resources, targetPath); r != nil {
		return r
	}
	root := workspaceRoot
	if root == "" {
		root = targetPath
	}
	return matchByName(resources, baseName(root))
}

// baseName handles both separators so backend paths from another OS (or a
// container mount) compare correctly.
func baseName(p string) string {
	p = strings.TrimRight(strings.ReplaceAll(p, "\\", "/"), "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// ---------------------------------------------------------------------------
// Create on miss
// ---------------------------------------------------------------------------

// ResourceClient is the subset of the backend client the resolver needs.
type ResourceClient interface {
	ListResources(ctx context.Context) ([]backend.Resource, error)
	CreateResource(ctx context.Context, req backend.CreateResourceRequest) (*backend.CreateResourceResponse, error)
}

// GetOrCreateLocal returns the resource overlapping workspacePath, creating
// a local resource when none does. The created resource's id is usable
// immediately.
func GetOrCreateLocal(ctx context.Context, client ResourceClient, workspacePath string) (*backend.Resource, error) {
	resources, err := client.ListResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("resource: list: %w", err)
	}
	if r := FindResourceForPath(resources, workspacePath); r != nil {
		return r, nil
	}

	name := filepath.Base(workspacePath)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "Workspace"
	}
	created, err := client.CreateResource(ctx, backend.CreateResourceRequest{
		Name:            name,
		ResourceType:    backend.ResourceLocal,
		Path:            workspacePath,
		IncludePatterns: []string{},
		ExcludePatterns: []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("resource: failed to create Linggen resource: %w", err)
	}
	if created.Name != "" {
		name = created.Name
	}
	slog.Info("created Linggen resource", "id", created.ID, "name", name, "path", workspacePath)

	return &backend.Resource{
		ID:              created.ID,
		Name:            name,
		ResourceType:    backend.ResourceLocal,
		Path:            workspacePath,
		Enabled:         true,
		IncludePatterns: []string{},
		ExcludePatterns: []string{},
	}, nil
}

// ---------------------------------------------------------------------------
// Relative paths
// ---------------------------------------------------------------------------

// RelativePath returns targetPath relative to the resource root with
// forward slashes. Paths outside the root are returned as given (with
// forward slashes).
func RelativePath(r *backend.Resource, targetPath string) string {
	if r != nil && r.Path != "" && strings.HasPrefix(targetPath, r.Path) {
		if rel, err := filepath.Rel(r.Path, targetPath); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(targetPath)
}
