package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a tree for broken positions, caches, and parents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			report, err := a.nodes.Check(ctx, a.tree)
			if err != nil {
				return err
			}

			err = render(cmd.OutOrStdout(), report, func(w io.Writer) error {
				if report.OK() {
					_, err := fmt.Fprintf(w, "tree %q: %d nodes, no problems\n", a.tree, report.Nodes)
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(w)
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Node", "Kind", "Detail"})
				for _, p := range report.Problems {
					t.AppendRow(table.Row{p.NodeID, p.Kind, wrapString(p.Detail, getTerminalWidth()/2)})
				}
				t.Render()
				return nil
			})
			if err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("tree %q has %d problem(s)", a.tree, len(report.Problems))
			}
			return nil
		},
	}

	return cmd
}
