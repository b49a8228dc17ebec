package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/linggen/linggen-editor/internal/graph"
	"github.com/linggen/linggen-editor/internal/metrics"
)

// Fetcher loads a full source graph from the backend.
type Fetcher interface {
	GetGraphWithStatus(ctx context.Context, sourceID string) (*graph.Graph, error)
}

// GraphCache is a per-session cache of full source graphs keyed by source
// id. Entries never expire; they change only through Refresh or
// Invalidate. Safe for concurrent use.
type GraphCache struct {
	fetcher Fetcher
	metrics *metrics.Registry

	mu      sync.RWMutex
	entries map[string]*graph.Graph

	// loads collapses concurrent misses for the same source id.
	loads singleflight.Group
}

// New creates an empty cache. metrics may be nil.
func New(fetcher Fetcher, m *metrics.Registry) *GraphCache {
	return &GraphCache{
		fetcher: fetcher,
		metrics: m,
		entries: make(map[string]*graph.Graph),
	}
}

// Get returns the cached graph for sourceID, fetching and storing it on a
// miss. Concurrent misses share a single fetch.
func (c *GraphCache) Get(ctx context.Context, sourceID string) (*graph.Graph, error) {
	if g, ok := c.Peek(sourceID); ok {
		if c.metrics != nil {
			c.metrics.CacheHits.WithLabelValues(sourceID).Inc()
		}
		return g, nil
	}

	v, err, _ := c.loads.Do(sourceID, func() (any, error) {
		// Double-check inside the flight; a Refresh may have landed.
		if g, ok := c.Peek(sourceID); ok {
			return g, nil
		}
		if c.metrics != nil {
			c.metrics.CacheMisses.WithLabelValues(sourceID).Inc()
		}
		return c.fetchAndStore(ctx, sourceID)
	})
	if err != nil {
		return nil, err
	}
	g, ok := v.(*graph.Graph)
	if !ok {
		return nil, fmt.Errorf("cache: unexpected type from load group: %T", v)
	}
	return g, nil
}

// Refresh always fetches from the backend and overwrites the entry when the
// fetch completes. Overlapping refreshes are not cancelled; whichever
// finishes last wins.
func (c *GraphCache) Refresh(ctx context.Context, sourceID string) (*graph.Graph, error) {
	if c.metrics != nil {
		c.metrics.CacheRefreshes.WithLabelValues(sourceID).Inc()
	}
	return c.fetchAndStore(ctx, sourceID)
}

// Invalidate drops the entry so the next Get fetches again.
func (c *GraphCache) Invalidate(sourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sourceID)
}

// Peek returns the cached entry without fetching.
func (c *GraphCache) Peek(sourceID string) (*graph.Graph, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.entries[sourceID]
	return g, ok
}

// Len returns the number of cached graphs.
func (c *GraphCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *GraphCache) fetchAndStore(ctx context.Context, sourceID string) (*graph.Graph, error) {
	start := time.Now()
	g, err := c.fetcher.GetGraphWithStatus(ctx, sourceID)
	if c.metrics != nil {
		c.metrics.RecordGraphFetch(err, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("cache: fetch %s: %w", sourceID, err)
	}

	c.mu.Lock()
	c.entries[sourceID] = g
	c.mu.Unlock()

	slog.Info("graph cached",
		"source_id", sourceID,
		"status", g.Status,
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return g, nil
}
