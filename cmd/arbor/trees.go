package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTreesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trees",
		Short: "List trees with node counts",
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

			trees, err := a.nodes.Trees(ctx)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), trees, func(w io.Writer) error {
				t := table.NewWriter()
				t.SetOutputMirror(w)
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Tree", "Nodes", "Roots", "Max Depth"})
				for _, tr := range trees {
					t.AppendRow(table.Row{tr.TreeID, tr.NodeCount, tr.RootCount, tr.MaxDepth})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.AddCommand(newTreesDeleteCmd())

	return cmd
}

func newTreesDeleteCmd() *cobra.Command {
	var (
		force bool
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "delete <tree> | --all",
		Short: "Delete every node of a tree, or of all trees",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				message := "Delete all trees? Every node will be permanently removed. (y/N) "
				if !all {
					message = fmt.Sprintf("Delete tree '%s'? All of its nodes will be permanently removed. (y/N) ", args[0])
				}
				ok, err := confirm(cmd, message)
				if err != nil || !ok {
					return err
				}
			}

			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			if all {
				if err := a.nodes.DeleteAllTrees(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Deleted all trees")
				return nil
			}

			name := args[0]
			deleted, err := a.nodes.DeleteTree(ctx, name)
			if err != nil {
				return err
			}
			if deleted == 0 {
				return fmt.Errorf("tree '%s' not found", name)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tree '%s' (%d nodes)\n", name, deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&all, "all", false, "Delete every tree")

	return cmd
}
