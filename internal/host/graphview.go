package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/linggen/linggen-editor/internal/backend"
	"github.com/linggen/linggen-editor/internal/bridge"
	"github.com/linggen/linggen-editor/internal/graph"
	"github.com/linggen/linggen-editor/internal/query"
	"github.com/linggen/linggen-editor/internal/resource"
)

// OpenGraphView loads the graph for target into p and then serves p's
// requests (refresh, open in Linggen) until p closes. p must already be
// started; it shows its loading placeholder until the first push.
//
// Failures before the graph is shown replace the placeholder with a
// message and are returned. The source is resolved by path overlap only;
// no resource is created.
func (c *Commands) OpenGraphView(ctx context.Context, p *bridge.Panel, target Target) error {
	base := c.client.BaseURL()
	if !c.client.CheckServerHealth(ctx) {
		msg := fmt.Sprintf("Linggen server is not reachable at %s.", base)
		p.Post(bridge.ShowMessage(msg, true))
		c.notifier.Error(ctx, "%s Please start Linggen and try again.", msg)
		return ErrOffline
	}

	resources, err := c.client.ListResources(ctx)
	if err != nil {
		msg := fmt.Sprintf("Failed to load Linggen resources: %v", err)
		p.Post(bridge.ShowMessage(msg, true))
		c.notifier.Error(ctx, "%s", msg)
		return fmt.Errorf("host: open graph view: %w", err)
	}
	if len(resources) == 0 {
		msg := "No Linggen sources found. Please add this project as a source in Linggen and index it first."
		p.Post(bridge.ShowMessage(msg, false))
		c.notifier.Warn(ctx, "%s", msg)
		return ErrNoSources
	}

	src := resource.FindResourceForPath(resources, target.root())
	if src == nil {
		msg := "No Linggen source matches this workspace. Please add this folder as a source in Linggen and index it first."
		p.Post(bridge.ShowMessage(msg, false))
		c.notifier.Warn(ctx, "%s", msg)
		return resource.ErrNotFound
	}
	slog.Info("using Linggen source for graph view",
		"source_id", src.ID, "name", src.Name, "path", src.Path)

	c.logGraphStatus(ctx, src.ID)

	full, err := c.cache.Get(ctx, src.ID)
	if err != nil {
		msg := fmt.Sprintf("Failed to load Linggen graph: %v", err)
		p.Post(bridge.ShowMessage(msg, true))
		c.notifier.Error(ctx, "%s", msg)
		return fmt.Errorf("host: open graph view: %w", err)
	}

	rel := resource.RelativePath(src, target.Path)
	s := &graphSession{
		cmds:   c,
		panel:  p,
		source: *src,
		rel:    rel,
		filter: resource.NewFilter(src),
		focus:  query.NewFocusTarget(rel),
	}
	s.push(full)
	go s.serve(ctx)
	return nil
}

// logGraphStatus is informational only; failures are logged and ignored.
func (c *Commands) logGraphStatus(ctx context.Context, sourceID string) {
	st, err := c.client.GetGraphStatus(ctx, sourceID)
	if err != nil {
		slog.Warn("failed to get graph status", "source_id", sourceID, "error", err)
		return
	}
	nodes, edges := 0, 0
	if st.NodeCount != nil {
		nodes = *st.NodeCount
	}
	if st.EdgeCount != nil {
		edges = *st.EdgeCount
	}
	slog.Info("graph status", "source_id", sourceID, "status", st.Status, "nodes", nodes, "edges", edges)
}

// ---------------------------------------------------------------------------
// graphSession
// ---------------------------------------------------------------------------

// graphSession serves one panel's requests after its first graph push.
type graphSession struct {
	cmds   *Commands
	panel  *bridge.Panel
	source backend.Resource
	rel    string
	filter *resource.Filter
	focus  query.FocusTarget

	refreshing atomic.Bool
	wg         sync.WaitGroup
}

// push resolves the focus in full and sends the neighborhood plus the full
// graph to the panel.
func (s *graphSession) push(full *graph.Graph) {
	focusID := query.ResolveFocusNode(full, s.focus)
	current := full
	if focusID != "" {
		current = query.BuildNeighborhood(full, focusID)
	} else if s.rel != "" && s.filter.Excluded(s.rel) {
		slog.Info("focus file is excluded by the source's patterns",
			"source_id", s.source.ID, "file", s.rel)
	}
	slog.Info("graph loaded",
		"source_id", s.source.ID,
		"project_id", full.ProjectID,
		"nodes", len(full.Nodes),
		"edges", len(full.Edges),
		"focus", focusID,
	)
	s.panel.Post(bridge.GraphData(current, full, focusID))
}

// serve runs until the panel's outbound channel closes.
func (s *graphSession) serve(ctx context.Context) {
	defer s.wg.Wait()
	for msg := range s.panel.Outbound() {
		switch msg.Type {
		case bridge.MsgRefresh:
			s.refresh(ctx)
		case bridge.MsgOpenLinggen:
			s.openLinggen(ctx)
		default:
			slog.Warn("unknown view request", "type", msg.Type)
		}
	}
}

// refresh re-fetches the graph in the background. Requests arriving while
// one is in flight are dropped.
func (s *graphSession) refresh(ctx context.Context) {
	if !s.refreshing.CompareAndSwap(false, true) {
		slog.Debug("graph refresh already in flight", "source_id", s.source.ID)
		return
	}
	slog.Info("view requested graph refresh", "source_id", s.source.ID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.refreshing.Store(false)

		full, err := s.cmds.cache.Refresh(ctx, s.source.ID)
		if err != nil {
			s.cmds.notifier.Error(ctx, "Failed to refresh Linggen graph: %v", err)
			return
		}
		s.push(full)
	}()
}

func (s *graphSession) openLinggen(ctx context.Context) {
	u := s.cmds.client.BaseURL()
	slog.Info("view requested to open Linggen UI", "url", u)
	if err := s.cmds.opener.Open(ctx, u); err != nil {
		s.cmds.notifier.Error(ctx, "Failed to open Linggen in browser: %v", err)
	}
}
