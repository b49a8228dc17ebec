package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linggen/linggen-editor/internal/host"
	"github.com/linggen/linggen-editor/internal/memory"
)

func newPinCmd(a *app) *cobra.Command {
	var (
		lines string
		note  string
	)
	cmd := &cobra.Command{
		Use:   "pin <file>",
		Short: "Pin a selection to Linggen memory",
		Long: `Writes a memory note under .linggen/memory containing the selected lines,
a YAML frontmatter with a fresh id and the optional note text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := a.target(args)
			start, end, err := parseLines(lines)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(target.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", target.Path, err)
			}
			code, from, to := host.Snippet(string(data), start, end, 0)

			rel := target.Path
			if r, err := filepath.Rel(a.workspace, target.Path); err == nil && !strings.HasPrefix(r, "..") {
				rel = filepath.ToSlash(r)
			}
			n, err := memory.Pin(a.workspace, memory.PinRequest{
				File:      rel,
				StartLine: from,
				EndLine:   to,
				Code:      code,
				Note:      note,
				Language:  strings.TrimPrefix(filepath.Ext(target.Path), "."),
			}, time.Now())
			if err != nil {
				return err
			}
			a.notifier.Info(cmd.Context(), "Pinned to Linggen memory: %s", filepath.Base(n.Path))
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nlinggen memory: %s\n", n.Path, n.Meta.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&lines, "lines", "", "Lines to pin, e.g. 10-24 (required)")
	cmd.Flags().StringVar(&note, "note", "", "Optional note stored with the snippet")
	_ = cmd.MarkFlagRequired("lines")
	return cmd
}

func newMemoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Look up pinned memory notes",
	}

	find := &cobra.Command{
		Use:   "find <id>",
		Short: "Print the note with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := memory.Find(a.workspace, args[0])
			if err != nil {
				return err
			}
			n, err := memory.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n\n%s\n", memory.Title(args[0], &n), n.Path, n.Body)
			return nil
		},
	}

	refs := &cobra.Command{
		Use:   "refs <file>",
		Short: "List memory references in a file with their hints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := a.target(args)
			data, err := os.ReadFile(target.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", target.Path, err)
			}
			for _, ref := range memory.References(string(data)) {
				hint := " | (not found)"
				if path, err := memory.Find(a.workspace, ref.ID); err == nil {
					if n, err := memory.Load(path); err == nil {
						hint = memory.Hint(n)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d: linggen memory: %s%s\n", ref.Line, ref.ID, hint)
			}
			return nil
		},
	}

	cmd.AddCommand(find, refs)
	return cmd
}
