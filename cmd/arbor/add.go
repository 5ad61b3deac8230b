package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arbor-db/arbor/internal/usecase"
)

func newAddCmd() *cobra.Command {
	var (
		parent   string
		position int64
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a node to a tree",
		Long:  "Add a named node as a root or under --parent. Without --position the node is appended after its siblings.",
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

			node, err := a.nodes.Add(ctx, usecase.AddInput{
				Tree:     a.tree,
				Name:     args[0],
				Parent:   parent,
				Position: position,
			})
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), node, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Added '%s' (#%d) at position %d\n", node.Name, node.ID, node.Position)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "Parent node id or name")
	cmd.Flags().Int64Var(&position, "position", 0, "1-based position among siblings")

	return cmd
}
