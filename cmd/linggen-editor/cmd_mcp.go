package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/linggen/linggen-editor/internal/integration"
	"github.com/linggen/linggen-editor/internal/state"
)

func newMCPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Manage the Linggen MCP server registration",
	}

	configure := &cobra.Command{
		Use:   "configure",
		Short: "Add the Linggen server to .cursor/mcp.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file := integration.NewFileConfig(a.workspace)
			outcome, err := file.Configure(integration.ServerName, integration.MCPURL(a.cfg.Backend.HTTPURL))
			if err != nil {
				return err
			}
			if a.store != nil {
				if err := a.store.Set(cmd.Context(), state.KeyMCPConfigured, true); err != nil {
					slog.Warn("failed to record MCP configuration", "error", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", file.Path(), outcome)
			return nil
		},
	}

	tools := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the Linggen MCP server exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := integration.ListTools(cmd.Context(), integration.MCPURL(a.cfg.Backend.HTTPURL))
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	cmd.AddCommand(configure, tools)
	return cmd
}
