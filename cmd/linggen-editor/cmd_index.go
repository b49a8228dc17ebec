package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Index the workspace with Linggen and wait for the job",
		Long: `Finds the Linggen source for the workspace (creating a local one when
none matches), starts an incremental indexing job and waits for it to
complete or fail. Progress is published on /api/events when a view server
is running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.cmds.IndexCurrentProject(cmd.Context(), a.workspace)
			if err != nil {
				return err
			}
			files, chunks := 0, 0
			if job.FilesIndexed != nil {
				files = *job.FilesIndexed
			}
			if job.ChunksCreated != nil {
				chunks = *job.ChunksCreated
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s %s: %d files, %d chunks\n", job.ID, job.Status, files, chunks)
			return nil
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the Linggen server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.client.CheckServerHealth(cmd.Context()) {
				fmt.Fprintf(cmd.OutOrStdout(), "offline (%s)\n", a.client.BaseURL())
				return fmt.Errorf("Linggen server is not reachable at %s", a.client.BaseURL())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "running (%s)\n", a.client.BaseURL())
			return nil
		},
	}
}
