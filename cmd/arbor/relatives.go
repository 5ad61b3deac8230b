package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arbor-db/arbor/internal/usecase"
)

type relativesFunc func(u *usecase.Node, ctx context.Context, tree, ref string) ([]usecase.NodeView, error)

func newAncestorsCmd() *cobra.Command {
	return newRelativesCmd("ancestors", "List the ancestors of a node, root first", (*usecase.Node).Ancestors)
}

func newDescendantsCmd() *cobra.Command {
	return newRelativesCmd("descendants", "List the descendants of a node in display order", (*usecase.Node).Descendants)
}

func newRelativesCmd(use, short string, fetch relativesFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <node>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			nodes, err := fetch(a.nodes, ctx, a.tree, args[0])
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), nodes, func(w io.Writer) error {
				if len(nodes) == 0 {
					_, err := fmt.Fprintf(w, "'%s' has no %s\n", args[0], use)
					return err
				}
				outputTable(w, nodes, false)
				return nil
			})
		},
	}

	return cmd
}
