package host

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linggen/linggen-editor/internal/backend"
	"github.com/linggen/linggen-editor/internal/resource"
)

// IndexCurrentProject finds or creates the local resource for workspace,
// starts an incremental indexing job and waits for it to finish. Progress
// goes to the Jobs broadcaster.
func (c *Commands) IndexCurrentProject(ctx context.Context, workspace string) (backend.Job, error) {
	base := c.client.BaseURL()
	slog.Info("indexing project via Linggen HTTP API", "workspace", workspace)

	if !c.client.CheckServerHealth(ctx) {
		c.notifier.Error(ctx, "Linggen server is not reachable at %s. Cannot index project.", base)
		return backend.Job{}, ErrOffline
	}

	res, err := resource.GetOrCreateLocal(ctx, c.client, workspace)
	if err != nil {
		c.notifier.Error(ctx, "Failed to index project via Linggen HTTP API: %v", err)
		return backend.Job{}, fmt.Errorf("host: index: %w", err)
	}
	slog.Info("using Linggen resource", "source_id", res.ID, "name", res.Name, "path", res.Path)

	started, err := c.client.IndexSource(ctx, res.ID, backend.IndexIncremental)
	if err != nil {
		c.notifier.Error(ctx, "Failed to index project via Linggen HTTP API: %v. Make sure Linggen server is running on %s", err, base)
		return backend.Job{}, fmt.Errorf("host: index: %w", err)
	}
	c.notifier.Info(ctx, "Started indexing job for Linggen resource: %s", res.Name)

	job, err := c.client.WaitForJob(ctx, started.JobID, c.jobInterval, c.jobs)
	if err != nil {
		c.notifier.Error(ctx, "Indexing failed for %s: %v", res.Name, err)
		return job, fmt.Errorf("host: index: %w", err)
	}

	files := 0
	if job.FilesIndexed != nil {
		files = *job.FilesIndexed
	}
	c.notifier.Info(ctx, "Indexing completed for %s (%d files).", res.Name, files)
	c.cache.Invalidate(res.ID)
	return job, nil
}
