package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arbor-db/arbor/internal/usecase"
)

func newMoveCmd() *cobra.Command {
	var (
		parent   string
		before   string
		after    string
		root     bool
		position int64
	)

	cmd := &cobra.Command{
		Use:   "move <node>",
		Short: "Move a node within its tree",
		Long: `Move a node under --parent, to the roots with --root, or next to a sibling
with --before or --after. --position picks the 1-based rank with --parent or
--root; a move that changes nothing is reported as a noop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			result, err := a.nodes.Move(ctx, usecase.MoveInput{
				Tree:     a.tree,
				Node:     args[0],
				Parent:   parent,
				Before:   before,
				After:    after,
				Root:     root,
				Position: position,
			})
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), result, func(w io.Writer) error {
				if result.Kind == "noop" {
					_, err := fmt.Fprintf(w, "'%s' is already in place\n", result.Node.Name)
					return err
				}
				_, err := fmt.Fprintf(w, "Moved '%s' (%s): %s -> %s\n", result.Node.Name, result.Kind, result.From, result.To)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "New parent id or name")
	cmd.Flags().StringVar(&before, "before", "", "Place directly before this sibling")
	cmd.Flags().StringVar(&after, "after", "", "Place directly after this sibling")
	cmd.Flags().BoolVar(&root, "root", false, "Move to the roots of the tree")
	cmd.Flags().Int64Var(&position, "position", 0, "1-based position with --parent or --root")
	cmd.MarkFlagsMutuallyExclusive("parent", "before", "after", "root")
	cmd.MarkFlagsMutuallyExclusive("position", "before")
	cmd.MarkFlagsMutuallyExclusive("position", "after")

	return cmd
}
