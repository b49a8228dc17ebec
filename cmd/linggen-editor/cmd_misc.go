package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linggen/linggen-editor/internal/host"
)

func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open [path]",
		Short: "Open the Linggen UI focused on a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := a.target(args)
			fmt.Fprintln(cmd.OutOrStdout(), a.cmds.LinggenURL(target))
			return a.cmds.OpenInLinggen(cmd.Context(), target)
		},
	}
}

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Open the Linggen install page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cmds.Install(cmd.Context())
		},
	}
}

func newPromptsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "Create .linggen/prompts.md if it is missing and print its path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := host.EnsurePrompts(a.workspace)
			if err != nil {
				return err
			}
			if created {
				a.notifier.Info(cmd.Context(), "Created Linggen prompts file: %s", path)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newNoticesCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Show recent notices, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return errors.New("host state is unavailable")
			}
			notices, err := a.store.RecentNotices(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, n := range notices {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-5s  %s\n",
					n.CreatedAt.Local().Format("2006-01-02 15:04:05"), n.Level, n.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of notices to show")
	return cmd
}
