package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Job types
// ---------------------------------------------------------------------------

// JobStatus is the lifecycle state of a backend indexing job.
type JobStatus string

const (
	JobRunning   JobStatus = "Running"
	JobCompleted JobStatus = "Completed"
	JobFailed    JobStatus = "Failed"
)

// Terminal reports whether the job will not change state again.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is one entry of the jobs list.
type Job struct {
	ID            string    `json:"id"`
	SourceID      string    `json:"source_id,omitempty"`
	Status        JobStatus `json:"status"`
	FilesIndexed  *int      `json:"files_indexed,omitempty"`
	ChunksCreated *int      `json:"chunks_created,omitempty"`
	Error         *string   `json:"error,omitempty"`
}

// IndexMode selects full or incremental indexing.
type IndexMode string

const (
	IndexIncremental IndexMode = "incremental"
	IndexFull        IndexMode = "full"
)

// IndexSourceResponse is the body returned by POST /api/index_source.
type IndexSourceResponse struct {
	JobID         string `json:"job_id"`
	FilesIndexed  *int   `json:"files_indexed,omitempty"`
	ChunksCreated *int   `json:"chunks_created,omitempty"`
}

type indexSourceRequest struct {
	SourceID string    `json:"source_id"`
	Mode     IndexMode `json:"mode"`
}

type listJobsResponse struct {
	Jobs []Job `json:"jobs"`
}

// ---------------------------------------------------------------------------
// Endpoints
// ---------------------------------------------------------------------------

// IndexSource starts an indexing job for sourceID.
func (c *Client) IndexSource(ctx context.Context, sourceID string, mode IndexMode) (*IndexSourceResponse, error) {
	if mode == "" {
		mode = IndexIncremental
	}
	var resp IndexSourceResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/index_source", nil, indexTimeout,
		indexSourceRequest{SourceID: sourceID, Mode: mode}, &resp); err != nil {
		return nil, fmt.Errorf("backend: index source %s: %w", sourceID, err)
	}
	return &resp, nil
}

// ListJobs returns the backend's job list.
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var resp listJobsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/jobs", nil, listTimeout, nil, &resp); err != nil {
		return nil, fmt.Errorf("backend: list jobs: %w", err)
	}
	return resp.Jobs, nil
}

// ---------------------------------------------------------------------------
// Broadcaster interface: keeps backend free of transport packages
// ---------------------------------------------------------------------------

// Broadcaster receives job progress events. The api package's SSE hub
// satisfies it through an adapter.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// ---------------------------------------------------------------------------
// JobWatcher
// ---------------------------------------------------------------------------

// JobWatcher polls the jobs list until one job reaches a terminal state or
// the watcher is stopped.
type JobWatcher struct {
	client      *Client
	jobID       string
	interval    time.Duration
	broadcaster Broadcaster

	done     chan struct{}
	result   chan Job
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewJobWatcher creates a watcher for jobID. Pass nil for broadcaster when
// progress events are not needed.
func NewJobWatcher(client *Client, jobID string, interval time.Duration, broadcaster Broadcaster) *JobWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &JobWatcher{
		client:      client,
		jobID:       jobID,
		interval:    interval,
		broadcaster: broadcaster,
		done:        make(chan struct{}),
		result:      make(chan Job, 1),
	}
}

// Start begins polling in the background.
func (w *JobWatcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()
}

// Result delivers the terminal job state. It is never sent to when the
// watcher is stopped first.
func (w *JobWatcher) Result() <-chan Job { return w.result }

// Stop ends polling and waits for the loop to exit. Safe to call twice.
func (w *JobWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}

func (w *JobWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if job, ok := w.poll(ctx); ok && job.Status.Terminal() {
			w.result <- job
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
		}
	}
}

func (w *JobWatcher) poll(ctx context.Context) (Job, bool) {
	jobs, err := w.client.ListJobs(ctx)
	if err != nil {
		slog.Warn("job poll failed", "job_id", w.jobID, "error", err)
		return Job{}, false
	}
	for _, j := range jobs {
		if j.ID != w.jobID {
			continue
		}
		if w.broadcaster != nil {
			w.broadcaster.Broadcast("job_progress", j)
		}
		return j, true
	}
	return Job{}, false
}

// WaitForJob is a blocking convenience around JobWatcher.
func (c *Client) WaitForJob(ctx context.Context, jobID string, interval time.Duration, broadcaster Broadcaster) (Job, error) {
	w := NewJobWatcher(c, jobID, interval, broadcaster)
	w.Start(ctx)
	defer w.Stop()

	select {
	case j := <-w.Result():
		if j.Status == JobFailed {
			msg := "unknown error"
			if j.Error != nil {
				msg = *j.Error
			}
			return j, fmt.Errorf("backend: job %s failed: %s", jobID, msg)
		}
		return j, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}
