package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <node> <name>",
		Short: "Rename a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			node, err := a.nodes.Rename(ctx, a.tree, args[0], args[1])
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), node, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Renamed #%d to '%s'\n", node.ID, node.Name)
				return err
			})
		},
	}

	return cmd
}
