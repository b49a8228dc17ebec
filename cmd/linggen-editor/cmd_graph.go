package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/linggen/linggen-editor/internal/api"
	"github.com/linggen/linggen-editor/internal/bridge"
	"github.com/linggen/linggen-editor/internal/config"
	"github.com/linggen/linggen-editor/internal/host"
	"github.com/linggen/linggen-editor/internal/integration"
	"github.com/linggen/linggen-editor/internal/monitor"
	"github.com/linggen/linggen-editor/internal/query"
)

func newGraphCmd(a *app) *cobra.Command {
	var openBrowser bool
	cmd := &cobra.Command{
		Use:   "graph [path]",
		Short: "Open an interactive graph view focused on a file",
		Long: `Starts the local view server, opens a graph view focused on the given file
(or the workspace) and prints its URL. The view stays available until the
process is interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.Context(), a, a.target(args), openBrowser, cmd)
		},
	}
	cmd.Flags().BoolVar(&openBrowser, "open", false, "Open the view in the default browser")
	return cmd
}

func runGraph(ctx context.Context, a *app, target host.Target, openBrowser bool, cmd *cobra.Command) error {
	srv := api.NewServer(a.sse, a.metrics)
	srv.RegisterRoutes()
	if _, err := srv.Start(a.cfg.View.Addr); err != nil {
		return err
	}

	panel := bridge.NewPanel(
		"Linggen Graph: "+filepath.Base(target.Path),
		query.Viewport{Width: a.cfg.View.Width, Height: a.cfg.View.Height},
		a.metrics,
	)
	panel.Start(ctx)
	srv.AddView(panel)

	viewURL := srv.ViewURL(panel.ID())
	fmt.Fprintln(cmd.OutOrStdout(), viewURL)
	if openBrowser {
		if err := (host.BrowserOpener{}).Open(ctx, viewURL); err != nil {
			slog.Warn("could not open browser", "error", err)
		}
	}

	// Background health monitor; its status is streamed on /api/events.
	mon := startMonitor(ctx, a, func(u monitor.Update) { a.sse.Publish(api.EventMonitorStatus, u) })
	defer mon.Stop()

	go func() {
		if err := a.cmds.OpenGraphView(ctx, panel, target); err != nil {
			slog.Warn("graph view not loaded", "error", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case <-panel.Done():
		slog.Info("graph view closed", "view_id", panel.ID())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("view server shutdown error", "error", err)
	}
	return nil
}

// startMonitor starts the health monitor with registration through the
// workspace's MCP config and restarts it whenever the config file changes.
func startMonitor(ctx context.Context, a *app, onUpdate func(monitor.Update)) *monitor.Monitor {
	build := func(cfg config.Config) monitor.Options {
		opts := monitor.OptionsFromConfig(cfg)
		opts.Registrar = integration.Select(nil, integration.NewFileConfig(a.workspace))
		opts.Metrics = a.metrics
		opts.OnUpdate = onUpdate
		if a.store != nil {
			opts.State = a.store
		}
		return opts
	}

	mon := monitor.New(build(a.cfg))
	mon.Start(ctx)

	if err := a.loader.Watch(func(cfg config.Config) {
		mon.Restart(ctx, build(cfg))
	}); err != nil {
		slog.Debug("config not watched", "error", err)
	}
	return mon
}
