package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linggen/linggen-editor/internal/host"
)

func newExplainCmd(a *app) *cobra.Command {
	var (
		lines    string
		cursor   int
		htmlPath string
	)
	cmd := &cobra.Command{
		Use:   "explain <file>",
		Short: "Explain code across the other indexed projects",
		Long: `Queries Linggen for code in other indexed projects related to a
selection and prints a short markdown prompt listing the context files and
related memories. Without --lines, the ten lines around --line are used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := a.target(args)
			data, err := os.ReadFile(target.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", target.Path, err)
			}

			start, end := 0, 0
			if lines != "" {
				if start, end, err = parseLines(lines); err != nil {
					return err
				}
			}
			code, from, to := host.Snippet(string(data), start, end, cursor)

			out, err := a.cmds.ExplainAcrossProjects(cmd.Context(), host.ExplainRequest{
				Target:    target,
				StartLine: from,
				EndLine:   to,
				Code:      code,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Markdown)

			if htmlPath != "" {
				if err := os.WriteFile(htmlPath, out.HTML, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", htmlPath, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lines, "lines", "", "Selected lines, e.g. 10-24")
	cmd.Flags().IntVar(&cursor, "line", 1, "Cursor line when nothing is selected")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Also write the explanation as an HTML page")
	return cmd
}
