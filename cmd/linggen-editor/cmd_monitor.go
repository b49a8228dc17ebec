package main

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/linggen/linggen-editor/internal/monitor"
)

func newMonitorCmd(a *app) *cobra.Command {
	var headless bool
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch Linggen health and keep the MCP server registered",
		Long: `Polls the Linggen server every healthPoll.intervalMs, logs UP/DOWN
transitions and registers the MCP server in .cursor/mcp.json whenever
Linggen comes up. Shows a status bar unless --headless is given or
healthPoll.showStatusBar is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if headless || !a.cfg.HealthPoll.ShowStatusBar {
				mon := startMonitor(ctx, a, func(u monitor.Update) {
					slog.Info("Linggen status", "status", u.Status, "url", u.BaseURL)
				})
				<-ctx.Done()
				mon.Stop()
				return nil
			}

			bar := monitor.NewStatusBar(monitor.Update{Status: monitor.StatusChecking, BaseURL: a.cfg.Backend.HTTPURL})
			p := tea.NewProgram(bar, tea.WithContext(ctx))

			// Send blocks until the program runs, so updates are relayed.
			updates := make(chan monitor.Update, 64)
			go func() {
				for u := range updates {
					p.Send(monitor.StatusMsg(u))
				}
			}()
			mon := startMonitor(ctx, a, func(u monitor.Update) {
				select {
				case updates <- u:
				default:
					slog.Warn("status update dropped", "status", u.Status)
				}
			})
			defer close(updates)
			defer mon.Stop()

			if _, err := p.Run(); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "Log status changes instead of showing the status bar")
	return cmd
}
