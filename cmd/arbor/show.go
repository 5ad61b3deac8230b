package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"

	"github.com/arbor-db/arbor/internal/usecase"
)

func newShowCmd() *cobra.Command {
	var showIDs bool

	cmd := &cobra.Command{
		Use:   "show [node]",
		Short: "Print a tree, or the subtree under a node, as an outline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			nodes, err := a.nodes.Show(ctx, a.tree, ref)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), nodes, func(w io.Writer) error {
				if len(nodes) == 0 {
					fmt.Fprintf(w, "tree %q is empty\n", a.tree)
					return nil
				}
				outputOutline(w, nodes, showIDs)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showIDs, "ids", false, "Show node ids")

	return cmd
}

// outputOutline renders pre-ordered nodes as an indented list. Depths are
// taken relative to the first node so subtrees start at the margin.
func outputOutline(w io.Writer, nodes []usecase.NodeView, showIDs bool) {
	l := list.NewWriter()
	l.SetOutputMirror(w)
	l.SetStyle(list.StyleConnectedLight)

	base := nodes[0].Depth
	level := int64(0)
	for _, n := range nodes {
		depth := n.Depth - base
		for ; level < depth; level++ {
			l.Indent()
		}
		for ; level > depth; level-- {
			l.UnIndent()
		}

		item := n.Name
		if showIDs {
			item = fmt.Sprintf("%s (#%d)", n.Name, n.ID)
		}
		l.AppendItem(item)
	}

	l.Render()
}
